package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/types"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:              srv.URL,
		APIKey:               "n8n_api_testkeytestkeytestkeytestkey",
		MaxRetries:           3,
		Timeout:              2 * time.Second,
		MaxRequestsPerSecond: 100,
	})
	require.NoError(t, err)
	return c
}

func TestGetWorkflowsUnwrapsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "n8n_api_testkeytestkeytestkeytestkey", r.Header.Get("X-N8N-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []types.Workflow{{Name: "A"}, {Name: "B"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	workflows, err := c.GetWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 2)
}

func TestGetWorkflowsTopLevelArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]types.Workflow{{Name: "A"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	workflows, err := c.GetWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 1)
}

func TestCreateWorkflowRejectsMissingName(t *testing.T) {
	c := &Client{}
	_, err := c.CreateWorkflow(context.Background(), types.Workflow{Nodes: []types.Node{{}}})
	require.Error(t, err)
}

func TestRetryOnServerErrorThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]types.Workflow{{Name: "ok"}})
	}))
	defer srv.Close()

	c, err := New(Options{
		BaseURL:              srv.URL,
		APIKey:               "n8n_api_testkeytestkeytestkeytestkey",
		MaxRetries:           5,
		Timeout:              2 * time.Second,
		MaxRequestsPerSecond: 100,
	})
	require.NoError(t, err)

	// The backoff is not shrunk: the real 1s/2s/4s policy applies, so this
	// waits 1s then 2s. The context budget only caps the test's duration,
	// and the test counts attempts instead of timing them.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	workflows, err := c.GetWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	require.Equal(t, int32(3), attempts.Load())

	stats := c.GetStats()
	require.Equal(t, int64(2), stats.Retried)
}

func TestRetryExhaustionPropagatesLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Options{
		BaseURL:              srv.URL,
		APIKey:               "n8n_api_testkeytestkeytestkeytestkey",
		MaxRetries:           2,
		Timeout:              2 * time.Second,
		MaxRequestsPerSecond: 100,
	})
	require.NoError(t, err)

	_, err = c.GetWorkflows(context.Background())
	require.Error(t, err)
}

func TestNotFoundClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetWorkflow(context.Background(), "missing")
	require.Error(t, err)

	var te *apierr.TransferError
	require.ErrorAs(t, err, &te)
	require.Equal(t, apierr.NotFound, te.ErrCode)
}

func TestRateLimiterAdmitsUpToLimitWithoutWaiting(t *testing.T) {
	rl := newRateLimiter(2)
	base := time.Now()
	cur := base
	clock := func() time.Time { return cur }

	waited1 := rl.wait(clock)
	waited2 := rl.wait(clock)
	require.False(t, waited1)
	require.False(t, waited2)
}
