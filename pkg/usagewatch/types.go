package usagewatch

import "time"

// UsageSnapshot is the reconciled view of a user's quota and spending for
// the current billing cycle. It is recomputed on every refresh and never
// persisted or cached.
type UsageSnapshot struct {
	// RemainingRequests is max(0, TotalRequests - used).
	RemainingRequests int

	// TotalRequests is the quota for the current cycle.
	TotalRequests int

	// SpendCents is the user's spend this cycle, in cents. Only present
	// when the snapshot was enriched from team spend data.
	SpendCents *int

	// HardLimitDollars is the user's configured spend ceiling. Only
	// present when sourced from team spend data.
	HardLimitDollars *float64

	// Reset describes when the current cycle ends, if known.
	Reset *ResetInfo

	// TeamID is the team the snapshot was enriched from, if any.
	TeamID *int
}

// ResetInfo describes the end of the current billing cycle.
type ResetInfo struct {
	// ResetDate is the first instant of the next cycle (exclusive end of
	// the current one).
	ResetDate time.Time

	// DaysRemaining is ceil((ResetDate - now) / 24h). It may be negative
	// transiently under clock skew; use DisplayDaysRemaining for output.
	DaysRemaining int
}

// DisplayDaysRemaining clamps DaysRemaining to zero for presentation.
func (r ResetInfo) DisplayDaysRemaining() int {
	if r.DaysRemaining < 0 {
		return 0
	}
	return r.DaysRemaining
}

// AuthFingerprint identifies the credential and team under which cached
// data was fetched. It is persisted across restarts and compared by value.
type AuthFingerprint struct {
	// CookieHash is a non-reversible digest of the session credential.
	CookieHash string `json:"cookieHash"`

	// TeamID is the team selector in effect, nil when unset.
	TeamID *int `json:"teamId,omitempty"`
}

// NotificationState is the persisted daily notification tuple.
type NotificationState struct {
	// Date is the local calendar day the tuple belongs to, "2006-01-02".
	Date string `json:"date"`

	// Attempts is the number of delivery attempts consumed today, 0..3.
	Attempts int `json:"attempts"`

	// Sent reports whether today's notification was delivered.
	Sent bool `json:"sent"`
}

// UserInfo is the upstream identity record for the authenticated user.
type UserInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`

	// CycleStart is the start of the user's current billing cycle.
	CycleStart time.Time `json:"cycleStart"`
}

// QuotaUsage is the upstream per-user quota figure for the current cycle.
type QuotaUsage struct {
	UsedRequests  int `json:"usedRequests"`
	TotalRequests int `json:"totalRequests"`
}

// Team is a single entry of the upstream team list.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TeamDetails is the upstream membership record for one team.
type TeamDetails struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Members []TeamMember `json:"members"`
}

// TeamMember is a single membership row of a team.
type TeamMember struct {
	UserID int    `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TeamSpend is the upstream per-member spend aggregation for one team.
type TeamSpend struct {
	TeamID  int           `json:"teamId"`
	Members []MemberSpend `json:"members"`
}

// MemberSpend is one member's row of a team spend report. Numeric fields
// are pointers because the upstream omits them for members without data.
type MemberSpend struct {
	UserID           int      `json:"userId"`
	FastRequests     *int     `json:"fastRequests,omitempty"`
	SpendCents       *int     `json:"spendCents,omitempty"`
	HardLimitDollars *float64 `json:"hardLimitDollars,omitempty"`
}
