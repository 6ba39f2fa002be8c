package output

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krexdev/krexcheck/internal/probe"
	"github.com/krexdev/krexcheck/internal/stats"
)

func validOutcome() probe.Outcome {
	return probe.Outcome{
		Index:   2,
		Payload: "some-live-token-value-long-enough",
		Kind:    probe.OutcomeValid,
		Account: &probe.Account{
			ID:             "4194304",
			Username:       "someone#0001",
			Email:          "someone@example.com",
			EmailVerified:  true,
			Phone:          "None",
			NitroType:      "Nitro",
			PremiumTier:    "Gold (6 Months)",
			Badges:         []string{"Early Supporter"},
			Boosts:         probe.BoostCounts{Active: 1, Available: 1, Total: 2},
			PaymentMethods: []string{"PayPal [Valid]"},
			CreatedAt:      time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC),
			AccountAge:     "300w",
		},
	}
}

func TestOutcomeValidPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Outcome(validOutcome(), 10)

	assert.Equal(t, "[3/10] [+] VALID: someone#0001 (4194304)\n", buf.String())
}

func TestOutcomeValidVerbose(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, true)

	p.Outcome(validOutcome(), 10)

	out := buf.String()
	assert.Contains(t, out, "Email: someone@example.com [Verified]")
	assert.Contains(t, out, "Phone: None [Not Verified]")
	assert.Contains(t, out, "Nitro Tier: Gold (6 Months)")
	assert.Contains(t, out, "Badges: Early Supporter")
	assert.Contains(t, out, "Boosts: 1 used, 1 available, 2 total")
	assert.Contains(t, out, "Payments: PayPal [Valid]")
	assert.Contains(t, out, "Created At: Mar 1, 2020 12:00 (300w ago)")
}

func TestOutcomeInvalidRedactsToken(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Outcome(probe.Outcome{
		Index:   0,
		Payload: "secret-token-that-must-not-leak",
		Kind:    probe.OutcomeInvalid,
		Reason:  probe.ReasonUnauthorized,
	}, 1)

	out := buf.String()
	assert.Contains(t, out, "INVALID (Unauthorized)")
	assert.Contains(t, out, "secret-t********")
	assert.NotContains(t, out, "secret-token-that-must-not-leak")
}

func TestOutcomeError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Outcome(probe.Outcome{Index: 4, Kind: probe.OutcomeError, Err: "retry budget exhausted"}, 5)

	assert.Equal(t, "[5/5] [!] ERROR: retry budget exhausted\n", buf.String())
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, false)

	p.Summary(stats.Snapshot{
		Checked:     3,
		Valid:       2,
		Invalid:     1,
		RateLimited: 1,
		Nitro:       1,
		Boosts:      2,
		Payments:    1,
		StartTime:   time.Now().Add(-time.Minute),
	}, 3, 1, 10)

	out := buf.String()
	row := func(label, value string) string {
		return fmt.Sprintf("%-20s %s", label+":", value)
	}
	assert.Contains(t, out, row("Checked", "3/3"))
	assert.Contains(t, out, row("Valid", "2"))
	assert.Contains(t, out, row("Rate Limited", "1"))
	assert.Contains(t, out, row("Duplicates Removed", "1"))
	assert.Contains(t, out, row("Concurrency", "10"))
	assert.Contains(t, out, "tokens/min")
	assert.Contains(t, out, row("Accuracy", "100.0%"))
}
