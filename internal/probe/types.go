package probe

import "time"

// OutcomeKind tags the terminal classification of one work item.
type OutcomeKind int

const (
	OutcomeValid OutcomeKind = iota
	OutcomeInvalid
	OutcomeError
)

// InvalidReason says why a credential was rejected without (or by) the
// remote service.
type InvalidReason string

const (
	ReasonTooShort     InvalidReason = "Too Short"
	ReasonUnauthorized InvalidReason = "Unauthorized"
	ReasonForbidden    InvalidReason = "Forbidden"
)

// BoostCounts partitions boost slots.
type BoostCounts struct {
	Active    int
	Available int
	Total     int
}

// Account carries every classification field derived for a valid credential.
type Account struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	Phone         string
	PhoneVerified bool

	PremiumTier    string // tenure tier, e.g. "Diamond (24 Months)"
	NitroType      string // premium_type decode, e.g. "Nitro"
	HasNitro       bool
	NitroRemaining string

	Badges         []string
	BoostBadge     string
	Boosts         BoostCounts
	PaymentMethods []string

	CreatedAt  time.Time
	AccountAge string
}

// Outcome is the tagged result of probing one item. Exactly one is produced
// per item.
type Outcome struct {
	Index   int
	Payload string

	Kind    OutcomeKind
	Reason  InvalidReason // set when Kind == OutcomeInvalid
	Err     string        // set when Kind == OutcomeError
	Account *Account      // set when Kind == OutcomeValid
}

// Wire shapes for each endpoint. Optional fields are pointers so absence is
// distinguishable from zero.

type userResponse struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Email         string  `json:"email"`
	Verified      bool    `json:"verified"`
	Phone         *string `json:"phone"`
	PremiumType   int     `json:"premium_type"`
	PremiumSince  *string `json:"premium_since"`
	PublicFlags   int64   `json:"public_flags"`
	Flags         int64   `json:"flags"`
}

type profileBadge struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type profileResponse struct {
	User struct {
		PublicFlagsExt int64 `json:"public_flags_ext"`
	} `json:"user"`
	Badges       []profileBadge `json:"badges"`
	PremiumSince *string        `json:"premium_since"`
}

type boostSlot struct {
	ID                       string                 `json:"id"`
	PremiumGuildSubscription map[string]interface{} `json:"premium_guild_subscription"`
}

type subscription struct {
	Type             int     `json:"type"`
	CurrentPeriodEnd *string `json:"current_period_end"`
	EndsAt           *string `json:"ends_at"`
	TrialEndsAt      *string `json:"trial_ends_at"`
}

type billingAddress struct {
	Country string `json:"country"`
}

type paymentSource struct {
	Type           int             `json:"type"`
	Brand          string          `json:"brand"`
	Last4          string          `json:"last_4"`
	ExpiresMonth   int             `json:"expires_month"`
	ExpiresYear    int             `json:"expires_year"`
	Invalid        bool            `json:"invalid"`
	DeletedAt      *string         `json:"deleted_at"`
	BillingAddress *billingAddress `json:"billing_address"`
}

type rateLimitResponse struct {
	RetryAfter float64 `json:"retry_after"`
}
