package probe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// snowflakeEpochMs is the service's snowflake epoch.
const snowflakeEpochMs = 1420070400000

// Public-flag bits, checked in registry order for stable badge output.
var flagBadges = []struct {
	bit  int64
	name string
}{
	{1 << 0, "Staff"},
	{1 << 1, "Partner"},
	{1 << 2, "HypeSquad Events"},
	{1 << 3, "Bug Hunter 1"},
	{1 << 6, "HypeSquad Bravery"},
	{1 << 7, "HypeSquad Brilliance"},
	{1 << 8, "HypeSquad Balance"},
	{1 << 9, "Early Supporter"},
	{1 << 14, "Bug Hunter 2"},
	{1 << 17, "Verified Bot Developer"},
	{1 << 18, "Moderator Program Alumni"},
	{1 << 22, "Active Developer"},
	{1 << 35, "Quest Completed"},
	{1 << 36, "Orb Profile Badge"},
}

var paymentTypes = map[int]string{
	1:  "Credit Card",
	2:  "PayPal",
	3:  "Paysafecard",
	4:  "YouTube",
	8:  "Operator",
	9:  "Server Subscription",
	13: "Apple Store",
}

func premiumTypeName(t int) string {
	switch t {
	case 1:
		return "Nitro Classic"
	case 2:
		return "Nitro"
	case 3:
		return "Nitro Basic"
	default:
		return ""
	}
}

// tenureTiers are evaluated longest first; the first match wins.
var tenureTiers = []struct {
	months int
	name   string
}{
	{72, "Opal (72+ Months)"},
	{60, "Ruby (60 Months)"},
	{36, "Emerald (36 Months)"},
	{24, "Diamond (24 Months)"},
	{12, "Platinum (12 Months)"},
	{6, "Gold (6 Months)"},
	{3, "Silver (3 Months)"},
}

const baselineTier = "Bronze (1 Month)"

// tierFromTenure maps elapsed subscription time to a tier name.
func tierFromTenure(premiumSince, now time.Time) string {
	months := int(now.Sub(premiumSince).Hours() / 24 / 30)
	for _, t := range tenureTiers {
		if months >= t.months {
			return t.name
		}
	}
	return baselineTier
}

var tenureBadgeRe = regexp.MustCompile(`(?i)(\d+)\s*months?:\s*(\w+)`)

// deriveTier prefers a server-provided tenure badge and falls back to the
// elapsed-time breakpoints. When both exist the server badge wins verbatim.
func deriveTier(badges []profileBadge, premiumSince *time.Time, premiumType int, now time.Time) string {
	for _, b := range badges {
		if !strings.HasPrefix(b.ID, "premium_tenure_") && !strings.Contains(b.Description, "months:") {
			continue
		}
		if m := tenureBadgeRe.FindStringSubmatch(b.Description); m != nil {
			return fmt.Sprintf("%s (%s Months)", m[2], m[1])
		}
		if b.Description != "" {
			return b.Description
		}
	}
	if premiumType > 0 && premiumSince != nil {
		return tierFromTenure(*premiumSince, now)
	}
	return ""
}

// deriveBadges returns the descriptive badge list when present, hiding the
// tenure and booster badges that are reported separately, and otherwise
// decodes the combined flag bitmask against the registry.
func deriveBadges(profile *profileResponse, flags int64) []string {
	if profile != nil && len(profile.Badges) > 0 {
		var out []string
		for _, b := range profile.Badges {
			if strings.HasPrefix(b.ID, "guild_booster_") || strings.HasPrefix(b.ID, "premium_tenure_") {
				continue
			}
			out = append(out, b.Description)
		}
		if len(out) > 0 {
			return out
		}
	}

	combined := flags
	if profile != nil {
		combined |= profile.User.PublicFlagsExt
	}
	var out []string
	for _, fb := range flagBadges {
		if combined&fb.bit != 0 {
			out = append(out, fb.name)
		}
	}
	return out
}

func deriveBoostBadge(badges []profileBadge) string {
	for _, b := range badges {
		if strings.HasPrefix(b.ID, "guild_booster_") {
			return b.Description
		}
	}
	return ""
}

// deriveBoosts partitions slots into active (bound to a guild subscription)
// and available.
func deriveBoosts(slots []boostSlot) BoostCounts {
	active := 0
	for _, s := range slots {
		if len(s.PremiumGuildSubscription) > 0 {
			active++
		}
	}
	return BoostCounts{
		Active:    active,
		Available: len(slots) - active,
		Total:     len(slots),
	}
}

// derivePayments maps each source through the type table; card entries get
// the brand/last-4/expiry/country composition.
func derivePayments(sources []paymentSource) []string {
	out := make([]string, 0, len(sources))
	for _, p := range sources {
		var details string
		if p.Type == 1 {
			details = fmt.Sprintf("%s *%s", strings.ToUpper(p.Brand), p.Last4)
			if p.ExpiresMonth > 0 && p.ExpiresYear > 0 {
				details += fmt.Sprintf(" (%d/%d)", p.ExpiresMonth, p.ExpiresYear)
			}
			if p.BillingAddress != nil && p.BillingAddress.Country != "" {
				details += " - " + p.BillingAddress.Country
			}
		} else if name, ok := paymentTypes[p.Type]; ok {
			details = name
		} else {
			details = fmt.Sprintf("Unknown (%d)", p.Type)
		}

		status := "Valid"
		if p.Invalid {
			status = "Invalid"
		} else if p.DeletedAt != nil {
			status = "Deleted"
		}
		out = append(out, details+" ["+status+"]")
	}
	return out
}

// deriveRemaining locates the premium subscription and renders the time left
// against its end (or trial end) timestamp, clamping to an ended state.
func deriveRemaining(subs []subscription, now time.Time) string {
	var sub *subscription
	for i := range subs {
		switch subs[i].Type {
		case 1, 2, 3:
			sub = &subs[i]
		}
		if sub != nil {
			break
		}
	}
	if sub == nil {
		return ""
	}

	if sub.TrialEndsAt != nil {
		end, err := parseTimestamp(*sub.TrialEndsAt)
		if err != nil {
			return "Ended"
		}
		d := end.Sub(now)
		if d <= 0 {
			return "Trial has ended"
		}
		return "Trial: " + formatCountdown(d)
	}

	var raw string
	switch {
	case sub.CurrentPeriodEnd != nil:
		raw = *sub.CurrentPeriodEnd
	case sub.EndsAt != nil:
		raw = *sub.EndsAt
	default:
		return "Ended"
	}
	end, err := parseTimestamp(raw)
	if err != nil {
		return "Ended"
	}
	d := end.Sub(now)
	if d <= 0 {
		return "Ended"
	}
	return formatCountdown(d)
}

func formatCountdown(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d Day %d Hour %d Minute", days, hours, minutes)
}

// creationTime recovers the account creation instant from a snowflake id.
func creationTime(id uint64) time.Time {
	ms := int64(id>>22) + snowflakeEpochMs
	return time.UnixMilli(ms).UTC()
}

// formatAge renders elapsed wall-clock time as weeks/days/hours/minutes/
// seconds, omitting zero components.
func formatAge(created, now time.Time) string {
	d := now.Sub(created)
	if d < 0 {
		d = 0
	}

	seconds := int64(d.Seconds())
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	weeks := days / 7

	var parts []string
	if weeks > 0 {
		parts = append(parts, fmt.Sprintf("%dw", weeks))
	}
	if days%7 > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days%7))
	}
	if hours%24 > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours%24))
	}
	if minutes%60 > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes%60))
	}
	if seconds%60 > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds%60))
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// sortedBadgeIDs is a debugging aid for verbose output.
func sortedBadgeIDs(badges []profileBadge) []string {
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	sort.Strings(ids)
	return ids
}
