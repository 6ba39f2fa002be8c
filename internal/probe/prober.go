// Package probe classifies single credentials against the remote service:
// one primary identity call with a bounded retry budget, then a set of
// parallel secondary lookups that degrade to defaults on failure.
package probe

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/krexdev/krexcheck/internal/queue"
)

// tokenShape is the expected credential format, only enforced in strict mode.
var tokenShape = regexp2.MustCompile(`^[\w-]{20,}\.[\w-]{5,}\.[\w-]{20,}$`, 0)

// Config tunes the classification pass, not the transport (see ClientConfig).
type Config struct {
	MinTokenLength int
	StrictFormat   bool
}

type Prober struct {
	client *Client
	cfg    Config
	log    *logrus.Logger

	now func() time.Time
}

func NewProber(client *Client, cfg Config, log *logrus.Logger) *Prober {
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = 50
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Prober{
		client: client,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Probe produces exactly one Outcome for the item. Expected failures never
// surface as errors; a last-resort recover converts anything unexpected into
// a counted error outcome.
func (p *Prober) Probe(ctx context.Context, item queue.Item) (out Outcome) {
	out = Outcome{Index: item.Index, Payload: item.Payload}

	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("token", Redact(item.Payload)).Errorf("probe panic: %v", r)
			out.Kind = OutcomeError
			out.Err = "internal error"
			out.Account = nil
		}
	}()

	// Local pre-checks make no network calls.
	if !p.localValid(item.Payload) {
		out.Kind = OutcomeInvalid
		out.Reason = ReasonTooShort
		return out
	}

	user, err := p.client.Identity(ctx, item.Payload)
	if err != nil {
		return p.classifyPrimaryFailure(out, err)
	}

	acct := p.collect(ctx, item.Payload, user)
	out.Kind = OutcomeValid
	out.Account = acct
	return out
}

func (p *Prober) localValid(token string) bool {
	if len(token) < p.cfg.MinTokenLength {
		return false
	}
	if p.cfg.StrictFormat {
		ok, err := tokenShape.MatchString(token)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (p *Prober) classifyPrimaryFailure(out Outcome, err error) Outcome {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			out.Kind = OutcomeInvalid
			out.Reason = ReasonUnauthorized
			return out
		case http.StatusForbidden:
			out.Kind = OutcomeInvalid
			out.Reason = ReasonForbidden
			return out
		}
	}
	out.Kind = OutcomeError
	out.Err = err.Error()
	return out
}

// collect runs the secondary lookups in parallel and folds everything into
// an Account. Each lookup's failure is mapped to its documented default, so
// only the primary call can fail an item.
func (p *Prober) collect(ctx context.Context, token string, user *userResponse) *Account {
	var (
		wg      sync.WaitGroup
		profile *profileResponse
		slots   []boostSlot
		subs    []subscription
		sources []paymentSource
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		v, err := p.client.Profile(ctx, token, user.ID)
		if err != nil {
			p.log.WithField("token", Redact(token)).Debugf("profile lookup degraded: %v", err)
			return // default: nil profile
		}
		profile = v
	}()
	go func() {
		defer wg.Done()
		v, err := p.client.BoostSlots(ctx, token)
		if err != nil {
			p.log.WithField("token", Redact(token)).Debugf("boost lookup degraded: %v", err)
			return // default: no slots
		}
		slots = v
	}()
	go func() {
		defer wg.Done()
		v, err := p.client.Subscriptions(ctx, token)
		if err != nil {
			p.log.WithField("token", Redact(token)).Debugf("subscription lookup degraded: %v", err)
			return // default: no subscriptions
		}
		subs = v
	}()
	go func() {
		defer wg.Done()
		v, err := p.client.PaymentSources(ctx, token)
		if err != nil {
			p.log.WithField("token", Redact(token)).Debugf("payment lookup degraded: %v", err)
			return // default: no sources
		}
		sources = v
	}()
	wg.Wait()

	now := p.now()

	acct := &Account{
		ID:            user.ID,
		Username:      displayName(user),
		Email:         user.Email,
		EmailVerified: user.Verified,
		Phone:         "None",
		NitroType:     premiumTypeName(user.PremiumType),
		HasNitro:      user.PremiumType > 0,
	}
	if user.Phone != nil && *user.Phone != "" {
		acct.Phone = *user.Phone
		acct.PhoneVerified = true
	}

	premiumSince := premiumSinceOf(user, profile)

	var badges []profileBadge
	if profile != nil {
		badges = profile.Badges
		p.log.WithField("badges", sortedBadgeIDs(badges)).Trace("profile badges")
	}

	acct.PremiumTier = deriveTier(badges, premiumSince, user.PremiumType, now)
	acct.Badges = deriveBadges(profile, user.PublicFlags|user.Flags)
	acct.BoostBadge = deriveBoostBadge(badges)
	acct.Boosts = deriveBoosts(slots)
	acct.PaymentMethods = derivePayments(sources)
	acct.NitroRemaining = deriveRemaining(subs, now)

	if id, err := strconv.ParseUint(user.ID, 10, 64); err == nil {
		acct.CreatedAt = creationTime(id)
		acct.AccountAge = formatAge(acct.CreatedAt, now)
	}

	return acct
}

// premiumSinceOf prefers the profile's timestamp over the identity record's.
func premiumSinceOf(user *userResponse, profile *profileResponse) *time.Time {
	var raw *string
	if profile != nil && profile.PremiumSince != nil {
		raw = profile.PremiumSince
	} else if user.PremiumSince != nil {
		raw = user.PremiumSince
	}
	if raw == nil {
		return nil
	}
	t, err := parseTimestamp(*raw)
	if err != nil {
		return nil
	}
	return &t
}

func displayName(user *userResponse) string {
	if user.Discriminator != "" && user.Discriminator != "0" {
		return user.Username + "#" + user.Discriminator
	}
	return user.Username
}
