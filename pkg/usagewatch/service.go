package usagewatch

import "context"

// UsageService is the upstream usage-accounting API consumed by the sync
// core. CurrentUser, Teams, and TeamDetails are stable calls whose
// responses are cached; QuotaUsage and TeamSpend are volatile and always
// fetched fresh through the retry executor.
//
// Implementations should honor context cancellation on every call: the
// retry executor cancels the attempt context on timeout, and a transport
// without its own deadline would otherwise leak the in-flight request.
type UsageService interface {
	// CurrentUser returns the authenticated user's identity and billing
	// cycle start.
	CurrentUser(ctx context.Context) (*UserInfo, error)

	// QuotaUsage returns the user's request usage for the current cycle.
	QuotaUsage(ctx context.Context) (*QuotaUsage, error)

	// Teams returns the teams the user belongs to.
	Teams(ctx context.Context) ([]Team, error)

	// TeamDetails returns one team's membership rows.
	TeamDetails(ctx context.Context, teamID int) (*TeamDetails, error)

	// TeamSpend returns one team's per-member spend aggregation.
	TeamSpend(ctx context.Context, teamID int) (*TeamSpend, error)
}
