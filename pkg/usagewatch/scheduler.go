package usagewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// notificationStateKey is the storage key for the persisted daily tuple.
const notificationStateKey = "notify:state"

// dateLayout is the local calendar-day format of NotificationState.Date.
const dateLayout = "2006-01-02"

// Scheduler gates the once-daily usage notification. It evaluates a small
// state machine over the persisted {date, attempts, sent} tuple: the tuple
// resets on a fresh calendar day, delivery is guarded until the configured
// local hour, and at most three attempts are consumed per day. The attempt
// counter is incremented before delivery is tried and persisted
// unconditionally, so a crash mid-delivery still consumes the attempt.
type Scheduler struct {
	storage  Storage
	renderer Renderer
	notifier Notifier
	config   Config
	logger   Logger
	metrics  Metrics
	clock    quartz.Clock

	// mu serializes Check so overlapping timer firings cannot
	// double-count attempts.
	mu sync.Mutex

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	firstTimer  *quartz.Timer
}

// NewScheduler creates a notification scheduler over the given persisted
// storage, renderer boundary, and delivery collaborator.
func NewScheduler(storage Storage, renderer Renderer, notifier Notifier, config Config) *Scheduler {
	config = config.withDefaults()
	return &Scheduler{
		storage:  storage,
		renderer: renderer,
		notifier: notifier,
		config:   config,
		logger:   config.Logger,
		metrics:  config.Metrics,
		clock:    config.Clock,
	}
}

// Check evaluates the state machine once. It is idempotent with respect to
// a delivered or exhausted day and safe to call at any time; concurrent
// calls are serialized.
func (s *Scheduler) Check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	today := now.Format(dateLayout)

	state := s.load(ctx)
	changed := false
	if state.Date != today {
		state = NotificationState{Date: today}
		changed = true
	}

	if state.Sent || state.Attempts >= DefaultMaxNotifyAttempts || now.Hour() < s.config.NotifyHour {
		if changed {
			return s.store(ctx, state)
		}
		return nil
	}

	// Entering the attempting state consumes one of the day's budgeted
	// attempts even if delivery fails below.
	state.Attempts++

	renderState, snapshot := s.renderer.Refresh(ctx)
	if renderState == RenderReady && snapshot != nil {
		if err := s.notifier.Notify(ctx, snapshot.Summary()); err != nil {
			s.metrics.RecordNotification("delivery_failed")
			s.logger.Warn("notification delivery failed",
				Field{Key: "attempt", Value: state.Attempts},
				Field{Key: "error", Value: err.Error()},
			)
		} else {
			state.Sent = true
			s.metrics.RecordNotification("sent")
			s.logger.Info("usage notification delivered",
				Field{Key: "attempt", Value: state.Attempts})
		}
	} else {
		s.metrics.RecordNotification("not_ready")
		s.logger.Debug("summary not ready, suppressing notification",
			Field{Key: "state", Value: renderState.String()},
			Field{Key: "attempt", Value: state.Attempts},
		)
	}

	return s.store(ctx, state)
}

// Start arms a timer to the next local notify-hour boundary, then
// re-checks every 24 hours until ctx is cancelled or Stop is called.
// There is no drift correction beyond deriving the first boundary at
// startup.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	now := s.clock.Now()
	until := nextWallHour(now, s.config.NotifyHour).Sub(now)

	s.firstTimer = s.clock.AfterFunc(until, func() {
		if ctx.Err() != nil {
			return
		}
		s.checkLogged(ctx)
		s.clock.TickerFunc(ctx, 24*time.Hour, func() error {
			s.checkLogged(ctx)
			return nil
		}, "scheduler", "daily")
	}, "scheduler", "first")
}

// Stop cancels the daily schedule. In-flight checks complete normally.
func (s *Scheduler) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	if s.firstTimer != nil {
		s.firstTimer.Stop()
		s.firstTimer = nil
	}
}

func (s *Scheduler) checkLogged(ctx context.Context) {
	if err := s.Check(ctx); err != nil {
		s.logger.Error("notification check failed",
			Field{Key: "error", Value: err.Error()})
	}
}

// load returns the persisted tuple; absence and corruption both yield the
// zero tuple, which Check treats as a fresh day.
func (s *Scheduler) load(ctx context.Context) NotificationState {
	raw, err := s.storage.Get(ctx, notificationStateKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("notification state read failed",
				Field{Key: "error", Value: err.Error()})
		}
		return NotificationState{}
	}

	var state NotificationState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding corrupt notification state",
			Field{Key: "error", Value: err.Error()})
		return NotificationState{}
	}
	return state
}

func (s *Scheduler) store(ctx context.Context, state NotificationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store notification state: %w", err)
	}
	if err := s.storage.Set(ctx, notificationStateKey, raw); err != nil {
		return fmt.Errorf("store notification state: %w", err)
	}
	return nil
}

// nextWallHour returns the next instant at the given local hour, strictly
// after now.
func nextWallHour(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
