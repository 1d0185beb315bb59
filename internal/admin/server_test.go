package admin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"altbot/internal/dispatch"
	"altbot/internal/execution"
	"altbot/internal/infra"
	"altbot/internal/maintenance"
	"altbot/internal/risk"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMovers []maintenance.Mover

func (f fixedMovers) TopMovers(n int) []maintenance.Mover {
	return f[:min(n, len(f))]
}

func setupTestServer(t *testing.T) (*Server, *risk.Gate) {
	t.Helper()
	gate, err := risk.New(risk.DefaultConfig(8, 1000))
	require.NoError(t, err)
	disp, err := dispatch.New(dispatch.DefaultCapacity)
	require.NoError(t, err)

	s, err := New(Deps{
		Risk:    gate,
		Metrics: &infra.Metrics{},
		Queue:   disp,
		Events:  execution.NewTracker(gate),
		Movers: fixedMovers{
			{SymbolID: 4, Return1h: 30_000_000, ReturnPct: "30.0000%"},
			{SymbolID: 1, Return1h: 10_000_000, ReturnPct: "10.0000%"},
			{SymbolID: 2, Return1h: -5_000_000, ReturnPct: "-5.0000%"},
		},
	})
	require.NoError(t, err)
	return s, gate
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestNew_RequiresRisk(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	s, _ := setupTestServer(t)
	resp, body := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.True(t, st.Risk.BuyEnabled)
	assert.Equal(t, int64(1000), st.Risk.Budget)
	require.NotNil(t, st.Queue)
	assert.Equal(t, dispatch.DefaultCapacity, st.Queue.Capacity)
	require.NotNil(t, st.Metrics)
	require.NotNil(t, st.Events)
}

func TestSetBuy(t *testing.T) {
	s, gate := setupTestServer(t)

	resp, body := do(t, s, http.MethodPost, "/risk/buy", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st risk.State
	require.NoError(t, json.Unmarshal(body, &st))
	assert.False(t, st.BuyEnabled)
	assert.Equal(t, risk.BlockedBuyDisabled, gate.Check(0, 1_000))

	resp, _ = do(t, s, http.MethodPost, "/risk/buy", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, risk.Accepted, gate.Check(0, 1_000))
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"buy missing field", "/risk/buy", `{}`},
		{"buy malformed", "/risk/buy", `{"enabled":`},
		{"budget zero", "/risk/budget", `{"amount":0}`},
		{"budget negative", "/risk/budget", `{"amount":-3}`},
		{"max-open missing", "/risk/max-open", `{"maximum":3}`},
		{"max-open negative", "/risk/max-open", `{"max":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gate := setupTestServer(t)
			before := gate.State()

			resp, body := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, before, gate.State(), "rejected request changed the gate")
		})
	}
}

func TestReplenish(t *testing.T) {
	s, gate := setupTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/risk/budget", `{"amount":50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1050), gate.State().Budget)
	assert.Equal(t, int64(50), gate.State().Replenished)
}

func TestSetMaxOpen(t *testing.T) {
	s, gate := setupTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/risk/max-open", `{"max":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), gate.State().MaxOpenIntents)

	gate.IntentEnqueued()
	assert.Equal(t, risk.BlockedOpenIntents, gate.Check(0, 1_000))
}

func TestSetMaxOpen_ZeroBlocksAllEmissions(t *testing.T) {
	s, gate := setupTestServer(t)
	resp, body := do(t, s, http.MethodPost, "/risk/max-open", `{"max":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st risk.State
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Zero(t, st.MaxOpenIntents)
	assert.Zero(t, gate.State().MaxOpenIntents)
	assert.Equal(t, risk.BlockedOpenIntents, gate.Check(0, 1_000))
}

func TestCancelIntent(t *testing.T) {
	s, gate := setupTestServer(t)

	resp, _ := do(t, s, http.MethodPost, "/intents/cancel", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	gate.IntentEnqueued()
	gate.IntentEnqueued()
	resp, body := do(t, s, http.MethodPost, "/intents/cancel", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st risk.State
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, int64(1), st.OpenIntents)
}

func TestMovers(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := do(t, s, http.MethodGet, "/movers?n=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []maintenance.Mover
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint32(4), got[0].SymbolID)
	assert.Equal(t, "10.0000%", got[1].ReturnPct)

	resp, body = do(t, s, http.MethodGet, "/movers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got, 3)

	resp, _ = do(t, s, http.MethodGet, "/movers?n=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMovers_Unavailable(t *testing.T) {
	gate, err := risk.New(risk.DefaultConfig(1, 1))
	require.NoError(t, err)
	s, err := New(Deps{Risk: gate})
	require.NoError(t, err)

	resp, _ := do(t, s, http.MethodGet, "/movers", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), `"queue"`)
}
