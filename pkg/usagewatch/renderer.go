package usagewatch

import (
	"context"
	"errors"
)

// RenderState is the tagged readiness of the rendered summary. The
// scheduler suppresses notifications on every state except RenderReady;
// matching on display strings is deliberately not supported.
type RenderState int

const (
	// RenderReady means a valid snapshot is displayed.
	RenderReady RenderState = iota

	// RenderLoading means a refresh is in flight or not yet attempted.
	RenderLoading

	// RenderUnconfigured means no credential is available.
	RenderUnconfigured

	// RenderFailed means the last refresh was a complete failure.
	RenderFailed
)

func (s RenderState) String() string {
	switch s {
	case RenderReady:
		return "ready"
	case RenderLoading:
		return "loading"
	case RenderUnconfigured:
		return "unconfigured"
	case RenderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Renderer is the boundary to the display surface. Refresh re-renders the
// summary and reports the resulting state; the snapshot is non-nil only
// for RenderReady.
type Renderer interface {
	Refresh(ctx context.Context) (RenderState, *UsageSnapshot)
}

// Notifier delivers a plain-text notification to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ReconcilerRenderer adapts a Reconciler to the Renderer boundary for
// hosts without a display surface of their own.
type ReconcilerRenderer struct {
	Reconciler *Reconciler
}

func (r *ReconcilerRenderer) Refresh(ctx context.Context) (RenderState, *UsageSnapshot) {
	snapshot, err := r.Reconciler.Refresh(ctx)
	switch {
	case errors.Is(err, ErrNoCredential):
		return RenderUnconfigured, nil
	case err != nil:
		return RenderFailed, nil
	default:
		return RenderReady, snapshot
	}
}
