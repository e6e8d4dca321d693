package usagewatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/coder/quartz"
	"golang.org/x/sync/singleflight"
)

// teamOverrideKey persists an explicitly selected team id across restarts.
const teamOverrideKey = "team:override"

// Metric outcomes for a refresh cycle.
const (
	refreshOutcomeOK           = "ok"
	refreshOutcomePartial      = "partial"
	refreshOutcomeFailed       = "failed"
	refreshOutcomeNoCredential = "no_credential"
)

// Reconciler builds a single consistent UsageSnapshot from the two
// independent upstream sources: the per-user quota figure and, when a team
// is resolved, the per-team spend aggregation. Stable calls go through the
// cache; volatile calls go through the retry executor. The failure of the
// team-scoped enrichment degrades the snapshot instead of failing the
// cycle.
type Reconciler struct {
	service     UsageService
	cache       *Cache
	storage     Storage
	credentials CredentialStore
	retrier     *Retrier
	config      Config
	logger      Logger
	metrics     Metrics
	clock       quartz.Clock

	group singleflight.Group

	// sessionTeamID memoizes the auto-detected team for the lifetime of
	// the process.
	mu            sync.Mutex
	sessionTeamID *int
}

// NewReconciler creates a usage reconciler. storage holds the persisted
// team override; cache and retrier carry the stable and volatile call
// policies.
func NewReconciler(service UsageService, cache *Cache, storage Storage, credentials CredentialStore, config Config) *Reconciler {
	config = config.withDefaults()
	return &Reconciler{
		service:     service,
		cache:       cache,
		storage:     storage,
		credentials: credentials,
		retrier:     NewRetrier(config),
		config:      config,
		logger:      config.Logger,
		metrics:     config.Metrics,
		clock:       config.Clock,
	}
}

// Refresh produces the current usage snapshot. Overlapping calls are
// coalesced: concurrent invocations share one upstream round trip.
//
// Failure taxonomy: a missing credential returns ErrNoCredential and is
// never retried; a quota-usage failure after all retries fails the whole
// cycle; a team-scoped failure is swallowed and the snapshot degrades to
// individual data only.
func (r *Reconciler) Refresh(ctx context.Context) (*UsageSnapshot, error) {
	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return r.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*UsageSnapshot), nil
}

func (r *Reconciler) refresh(ctx context.Context) (*UsageSnapshot, error) {
	started := r.clock.Now()

	secret, err := r.credentials.Get(ctx, r.config.CredentialName)
	if err != nil || secret == "" {
		if err != nil && !errors.Is(err, ErrCredentialNotFound) {
			return nil, fmt.Errorf("read credential: %w", err)
		}
		r.metrics.RecordRefresh(refreshOutcomeNoCredential, r.clock.Since(started))
		return nil, ErrNoCredential
	}

	user := r.currentUser(ctx)

	quota, err := RetryValue(ctx, r.retrier, "quota_usage", r.service.QuotaUsage)
	if err != nil {
		r.metrics.RecordRefresh(refreshOutcomeFailed, r.clock.Since(started))
		return nil, fmt.Errorf("fetch quota usage: %w", err)
	}

	teamID := r.resolveTeamID(ctx)

	snapshot := &UsageSnapshot{
		TotalRequests: quota.TotalRequests,
	}
	used := quota.UsedRequests
	outcome := refreshOutcomeOK

	if teamID != nil && user != nil {
		row, err := r.memberSpend(ctx, *teamID, user.ID)
		switch {
		case err != nil:
			// Partial failure: team data is an enrichment, the cycle
			// still yields a valid individual snapshot.
			outcome = refreshOutcomePartial
			r.logger.Warn("team data unavailable, using individual usage",
				Field{Key: "team", Value: *teamID},
				Field{Key: "error", Value: err.Error()},
			)
		case row != nil && row.FastRequests != nil:
			// Team spend may reflect more current aggregation than the
			// individual quota figure, so prefer it when present.
			used = *row.FastRequests
			snapshot.SpendCents = row.SpendCents
			snapshot.HardLimitDollars = row.HardLimitDollars
			snapshot.TeamID = teamID
		}
	}

	snapshot.RemainingRequests = quota.TotalRequests - used
	if snapshot.RemainingRequests < 0 {
		snapshot.RemainingRequests = 0
	}

	if user != nil && !user.CycleStart.IsZero() {
		reset := computeResetInfo(user.CycleStart, r.clock.Now())
		snapshot.Reset = &reset
	}

	r.metrics.RecordRefresh(outcome, r.clock.Since(started))
	return snapshot, nil
}

// currentUser returns the cached or freshly fetched user identity, or nil
// when the identity is unavailable. Without it the snapshot loses reset
// info and team enrichment but the cycle still succeeds.
func (r *Reconciler) currentUser(ctx context.Context) *UserInfo {
	var cached UserInfo
	hit, err := r.cache.Get(ctx, CacheKeyUser, &cached)
	if err == nil && hit {
		return &cached
	}
	if err != nil {
		r.logger.Warn("user cache read failed", Field{Key: "error", Value: err.Error()})
	}

	user, err := r.service.CurrentUser(ctx)
	if err != nil {
		r.logger.Warn("user identity unavailable", Field{Key: "error", Value: err.Error()})
		return nil
	}
	if err := r.cache.Set(ctx, CacheKeyUser, user); err != nil {
		r.logger.Warn("user cache write failed", Field{Key: "error", Value: err.Error()})
	}
	return user
}

// resolveTeamID resolves the effective team: the explicit config value
// wins; "auto" drops the persisted override and falls through to
// detection; detection uses the per-session memo, then the cached (or
// fetched) team list, taking the first team. No team means "individual
// user", not an error.
func (r *Reconciler) resolveTeamID(ctx context.Context) *int {
	if id, err := strconv.Atoi(r.config.TeamID); err == nil {
		return &id
	}

	if r.config.TeamID == TeamSelectorAuto {
		if err := r.storage.Delete(ctx, teamOverrideKey); err != nil {
			r.logger.Warn("clear team override failed", Field{Key: "error", Value: err.Error()})
		}
	} else if raw, err := r.storage.Get(ctx, teamOverrideKey); err == nil {
		if id, err := strconv.Atoi(string(raw)); err == nil {
			return &id
		}
	}

	r.mu.Lock()
	memo := r.sessionTeamID
	r.mu.Unlock()
	if memo != nil {
		return memo
	}

	teams := r.teams(ctx)
	if len(teams) == 0 {
		return nil
	}

	id := teams[0].ID
	r.mu.Lock()
	r.sessionTeamID = &id
	r.mu.Unlock()
	return &id
}

// SetTeamOverride persists an explicit team selection that survives
// restarts until the selector is set to "auto".
func (r *Reconciler) SetTeamOverride(ctx context.Context, teamID int) error {
	return r.storage.Set(ctx, teamOverrideKey, []byte(strconv.Itoa(teamID)))
}

func (r *Reconciler) teams(ctx context.Context) []Team {
	var cached []Team
	hit, err := r.cache.Get(ctx, CacheKeyTeams, &cached)
	if err == nil && hit {
		return cached
	}
	if err != nil {
		r.logger.Warn("team list cache read failed", Field{Key: "error", Value: err.Error()})
	}

	teams, err := r.service.Teams(ctx)
	if err != nil {
		r.logger.Warn("team list unavailable", Field{Key: "error", Value: err.Error()})
		return nil
	}
	if err := r.cache.Set(ctx, CacheKeyTeams, teams); err != nil {
		r.logger.Warn("team list cache write failed", Field{Key: "error", Value: err.Error()})
	}
	return teams
}

// memberSpend fetches the team membership details (cached) and the team
// spend aggregation (volatile, retried) and returns the caller's spend
// row. A nil row with nil error means the user has no row in the report.
func (r *Reconciler) memberSpend(ctx context.Context, teamID, userID int) (*MemberSpend, error) {
	details, err := r.teamDetails(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetch team details: %w", err)
	}

	member := false
	for _, m := range details.Members {
		if m.UserID == userID {
			member = true
			break
		}
	}
	if !member {
		return nil, nil
	}

	spend, err := RetryValue(ctx, r.retrier, "team_spend", func(ctx context.Context) (*TeamSpend, error) {
		return r.service.TeamSpend(ctx, teamID)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch team spend: %w", err)
	}

	for i := range spend.Members {
		if spend.Members[i].UserID == userID {
			return &spend.Members[i], nil
		}
	}
	return nil, nil
}

func (r *Reconciler) teamDetails(ctx context.Context, teamID int) (*TeamDetails, error) {
	key := TeamDetailsCacheKey(teamID)

	var cached TeamDetails
	hit, err := r.cache.Get(ctx, key, &cached)
	if err == nil && hit {
		return &cached, nil
	}
	if err != nil {
		r.logger.Warn("team details cache read failed", Field{Key: "error", Value: err.Error()})
	}

	details, err := r.service.TeamDetails(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, details); err != nil {
		r.logger.Warn("team details cache write failed", Field{Key: "error", Value: err.Error()})
	}
	return details, nil
}
