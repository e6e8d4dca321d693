package usagewatch

import (
	"time"

	"github.com/coder/quartz"
)

const (
	// DefaultCacheTTL is how long stable upstream responses stay valid.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the fixed delay between attempts.
	DefaultRetryDelay = 100 * time.Millisecond

	// DefaultAttemptTimeout bounds a single attempt of a volatile call.
	DefaultAttemptTimeout = 10 * time.Second

	// DefaultNotifyHour is the earliest local hour a daily notification
	// may be delivered.
	DefaultNotifyHour = 9

	// DefaultCredentialName is the credential-store entry holding the
	// upstream session cookie.
	DefaultCredentialName = "session_cookie"

	// DefaultMaxNotifyAttempts caps delivery attempts per calendar day.
	DefaultMaxNotifyAttempts = 3

	// TeamSelectorAuto asks the reconciler to auto-detect the team and
	// drop any persisted override.
	TeamSelectorAuto = "auto"
)

// Config holds configuration shared by the sync components. The zero value
// is usable; constructors fill in defaults.
type Config struct {
	// TeamID selects the team to enrich from: a numeric id, "auto", or
	// empty to use the persisted override / auto-detection.
	TeamID string

	// CredentialName is the credential-store entry to read the session
	// cookie from (default: "session_cookie").
	CredentialName string

	// CacheTTL is the validity window for cached stable responses
	// (default: 24h).
	CacheTTL time.Duration

	// MaxRetries is the number of retries after the first attempt of a
	// volatile call (default: 2, i.e. 3 total attempts).
	MaxRetries int

	// RetryDelay is the fixed inter-attempt delay (default: 100ms).
	RetryDelay time.Duration

	// AttemptTimeout bounds each attempt of a volatile call (default: 10s).
	AttemptTimeout time.Duration

	// NotifyHour is the earliest local hour for daily notifications
	// (default: 9).
	NotifyHour int

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger

	// Metrics is used for operational metrics (default: NoopMetrics).
	Metrics Metrics

	// Clock is the time source, swappable in tests (default: real clock).
	Clock quartz.Clock
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.CredentialName == "" {
		c.CredentialName = DefaultCredentialName
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.NotifyHour == 0 {
		c.NotifyHour = DefaultNotifyHour
	}
	if c.Logger == nil {
		c.Logger = &NoopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = &NoopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	return c
}
