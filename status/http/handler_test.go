package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

type staticRenderer struct {
	state    usagewatch.RenderState
	snapshot *usagewatch.UsageSnapshot
}

func (r staticRenderer) Refresh(ctx context.Context) (usagewatch.RenderState, *usagewatch.UsageSnapshot) {
	return r.state, r.snapshot
}

func intPtr(v int) *int { return &v }

func TestHandler_Ready(t *testing.T) {
	handler := Handler(Config{Renderer: staticRenderer{
		state: usagewatch.RenderReady,
		snapshot: &usagewatch.UsageSnapshot{
			RemainingRequests: 360,
			TotalRequests:     500,
			SpendCents:        intPtr(1234),
			Reset:             &usagewatch.ResetInfo{DaysRemaining: 13},
			TeamID:            intPtr(4),
		},
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.State)
	assert.Contains(t, resp.Summary, "360/500 fast requests left")
	require.NotNil(t, resp.RemainingRequests)
	assert.Equal(t, 360, *resp.RemainingRequests)
	require.NotNil(t, resp.DaysUntilReset)
	assert.Equal(t, 13, *resp.DaysUntilReset)
	require.NotNil(t, resp.TeamID)
	assert.Equal(t, 4, *resp.TeamID)
}

func TestHandler_States(t *testing.T) {
	tests := []struct {
		state      usagewatch.RenderState
		wantStatus int
		wantState  string
	}{
		{usagewatch.RenderLoading, http.StatusOK, "loading"},
		{usagewatch.RenderUnconfigured, http.StatusServiceUnavailable, "unconfigured"},
		{usagewatch.RenderFailed, http.StatusBadGateway, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.wantState, func(t *testing.T) {
			handler := Handler(Config{Renderer: staticRenderer{state: tt.state}})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.State)
			assert.Empty(t, resp.Summary)
			assert.Nil(t, resp.RemainingRequests)
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := Handler(Config{Renderer: staticRenderer{state: usagewatch.RenderReady}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
