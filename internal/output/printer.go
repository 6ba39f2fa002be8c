package output

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/krexdev/krexcheck/internal/probe"
	"github.com/krexdev/krexcheck/internal/stats"
)

type Printer struct {
	noColor bool
	verbose bool

	logger *log.Logger
}

func NewPrinter(stdout io.Writer, noColor, verbose bool) *Printer {
	return &Printer{
		noColor: noColor,
		verbose: verbose,
		logger:  log.New(stdout, "", 0),
	}
}

func (p *Printer) Logger() *log.Logger {
	return p.logger
}

// Outcome renders one finished item. Completion order is unordered across
// workers, so the stable index is printed with each line.
func (p *Printer) Outcome(o probe.Outcome, total int) {
	switch o.Kind {
	case probe.OutcomeValid:
		p.valid(o, total)
	case probe.OutcomeInvalid:
		if p.noColor {
			p.logger.Printf("[%d/%d] [-] INVALID (%s): %s", o.Index+1, total, o.Reason, probe.Redact(o.Payload))
		} else {
			p.logger.Printf("[%d/%d] [%s] %s (%s): %s",
				o.Index+1, total,
				color.HiRedString("-"),
				color.HiRedString("INVALID"),
				o.Reason,
				probe.Redact(o.Payload),
			)
		}
	default:
		if p.noColor {
			p.logger.Printf("[%d/%d] [!] ERROR: %s", o.Index+1, total, o.Err)
		} else {
			p.logger.Printf("[%d/%d] [%s] %s: %s",
				o.Index+1, total,
				color.HiRedString("!"),
				color.HiMagentaString("ERROR"),
				color.HiRedString(o.Err),
			)
		}
	}
}

func (p *Printer) valid(o probe.Outcome, total int) {
	acct := o.Account

	head := fmt.Sprintf("[%d/%d]", o.Index+1, total)
	if p.noColor {
		p.logger.Printf("%s [+] VALID: %s (%s)", head, acct.Username, acct.ID)
	} else {
		p.logger.Printf("%s [%s] %s: %s (%s)",
			head,
			color.HiGreenString("+"),
			color.HiGreenString("VALID"),
			color.HiWhiteString(acct.Username),
			acct.ID,
		)
	}

	if !p.verbose {
		return
	}

	rows := []struct{ label, value string }{
		{"Email", fmt.Sprintf("%s [%s]", orNone(acct.Email), verified(acct.EmailVerified))},
		{"Phone", fmt.Sprintf("%s [%s]", acct.Phone, verified(acct.PhoneVerified))},
		{"Nitro Type", orNone(acct.NitroType)},
		{"Nitro Tier", orNone(acct.PremiumTier)},
		{"Boost Badge", orNone(acct.BoostBadge)},
		{"Badges", orNone(strings.Join(acct.Badges, ", "))},
		{"Remaining Nitro Time", orNone(acct.NitroRemaining)},
		{"Boosts", fmt.Sprintf("%d used, %d available, %d total", acct.Boosts.Active, acct.Boosts.Available, acct.Boosts.Total)},
		{"Payments", orNone(strings.Join(acct.PaymentMethods, ", "))},
		{"Created At", createdAt(acct)},
	}

	for _, row := range rows {
		if p.noColor {
			p.logger.Printf("    %s: %s", row.label, row.value)
		} else {
			p.logger.Printf("    %s %s", color.HiCyanString(row.label+":"), row.value)
		}
	}
}

// Summary prints the final totals block.
func (p *Printer) Summary(s stats.Snapshot, total, duplicatesRemoved, concurrency int) {
	elapsed := s.Elapsed().Round(time.Millisecond)

	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(s.Checked) / elapsed.Minutes()
	}
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(s.Valid+s.Invalid+s.Errors) / float64(total) * 100
	}

	line := strings.Repeat("=", 60)
	p.logger.Println(line)

	rows := []struct{ label, value string }{
		{"Checked", fmt.Sprintf("%d/%d", s.Checked, total)},
		{"Valid", fmt.Sprintf("%d", s.Valid)},
		{"Invalid", fmt.Sprintf("%d", s.Invalid)},
		{"Errors", fmt.Sprintf("%d", s.Errors)},
		{"Rate Limited", fmt.Sprintf("%d", s.RateLimited)},
		{"Nitro", fmt.Sprintf("%d", s.Nitro)},
		{"Boosts", fmt.Sprintf("%d", s.Boosts)},
		{"Payments", fmt.Sprintf("%d", s.Payments)},
		{"Duplicates Removed", fmt.Sprintf("%d", duplicatesRemoved)},
		{"Concurrency", fmt.Sprintf("%d", concurrency)},
		{"Elapsed", elapsed.String()},
		{"Throughput", fmt.Sprintf("%.1f tokens/min", throughput)},
		{"Accuracy", fmt.Sprintf("%.1f%%", accuracy)},
	}
	for _, row := range rows {
		if p.noColor {
			p.logger.Printf("%-20s %s", row.label+":", row.value)
		} else {
			p.logger.Printf("%s %s", color.HiCyanString("%-20s", row.label+":"), row.value)
		}
	}

	p.logger.Println(line)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func verified(v bool) string {
	if v {
		return "Verified"
	}
	return "Not Verified"
}

func createdAt(acct *probe.Account) string {
	if acct.CreatedAt.IsZero() {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%s ago)", acct.CreatedAt.Format("Jan 2, 2006 15:04"), acct.AccountAge)
}
