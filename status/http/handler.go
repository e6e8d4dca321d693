// Package http exposes the current usage snapshot over plain net/http.
// The handler is framework-agnostic and mounts unchanged under chi or any
// other mux that accepts an http.Handler.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

// Response is the JSON shape of the status endpoint.
type Response struct {
	// State is the render state: ready, loading, unconfigured or failed.
	State string `json:"state"`

	// Summary is the one-line human-readable rendering. Empty unless
	// State is ready.
	Summary string `json:"summary,omitempty"`

	RemainingRequests *int     `json:"remainingRequests,omitempty"`
	TotalRequests     *int     `json:"totalRequests,omitempty"`
	SpendCents        *int     `json:"spendCents,omitempty"`
	HardLimitDollars  *float64 `json:"hardLimitDollars,omitempty"`
	DaysUntilReset    *int     `json:"daysUntilReset,omitempty"`
	TeamID            *int     `json:"teamId,omitempty"`
}

// NewResponse builds the wire representation of a refresh result.
func NewResponse(state usagewatch.RenderState, snapshot *usagewatch.UsageSnapshot) Response {
	resp := Response{State: state.String()}
	if state != usagewatch.RenderReady || snapshot == nil {
		return resp
	}

	resp.Summary = snapshot.Summary()
	resp.RemainingRequests = &snapshot.RemainingRequests
	resp.TotalRequests = &snapshot.TotalRequests
	resp.SpendCents = snapshot.SpendCents
	resp.HardLimitDollars = snapshot.HardLimitDollars
	resp.TeamID = snapshot.TeamID
	if snapshot.Reset != nil {
		days := snapshot.Reset.DisplayDaysRemaining()
		resp.DaysUntilReset = &days
	}
	return resp
}

// StatusCode maps a render state to the HTTP status of the endpoint.
func StatusCode(state usagewatch.RenderState) int {
	switch state {
	case usagewatch.RenderFailed:
		return http.StatusBadGateway
	case usagewatch.RenderUnconfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// Config holds status handler configuration.
type Config struct {
	// Renderer produces the snapshot on each request (required).
	Renderer usagewatch.Renderer
}

// Handler returns a GET handler serving the current usage status as JSON.
// Each request triggers a refresh; concurrent requests are coalesced by
// the reconciler behind the renderer.
func Handler(config Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		state, snapshot := config.Renderer.Refresh(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusCode(state))
		_ = json.NewEncoder(w).Encode(NewResponse(state, snapshot))
	})
}
