package transfer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/transfer"
	"github.com/rakunlabs/transferctl/internal/types"
)

// n8nFake is a minimal in-memory n8n-compatible server: GET /api/v1/workflows
// lists, POST /api/v1/workflows creates (id assigned, stored).
type n8nFake struct {
	workflows []types.Workflow
	nextID    int
}

func newN8NFake(initial ...types.Workflow) *httptest.Server {
	f := &n8nFake{workflows: initial}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"data": f.workflows})
		case http.MethodPost:
			var wf types.Workflow
			_ = json.NewDecoder(r.Body).Decode(&wf)
			f.nextID++
			wf.ID = itoa(f.nextID)
			f.workflows = append(f.workflows, wf)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(wf)
		}
	})
	return httptest.NewServer(mux)
}

func intPtr(n int) *int { return &n }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func newTestManager(t *testing.T, source, target *httptest.Server, reportDir string) *transfer.Manager {
	t.Helper()
	cfg := types.Config{
		Source: types.ServerConfig{URL: source.URL, APIKey: "n8n_api_sourcekeysourcekeysourcekey"},
		Target: types.ServerConfig{URL: target.URL, APIKey: "n8n_api_targetkeytargetkeytargetkey"},
	}

	reg := plugin.NewRegistry()
	require.NoError(t, builtin.RegisterAll(reg, reportDir))

	mgr, err := transfer.New(cfg, transfer.ManagerOptions{PluginRegistry: reg, ReportDir: reportDir})
	require.NoError(t, err)
	return mgr
}

func TestTransferHappyPathSerial(t *testing.T) {
	source := newN8NFake(
		types.Workflow{ID: "1", Name: "wf-a", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
		types.Workflow{ID: "2", Name: "wf-b", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
	)
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	reportDir := t.TempDir()
	mgr := newTestManager(t, source, target, reportDir)

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{Parallelism: intPtr(1)})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 2, summary.Transferred)
	require.Equal(t, 0, summary.Failed)
	require.NotEmpty(t, summary.Reports)
}

func TestTransferSkipsDuplicateByName(t *testing.T) {
	source := newN8NFake(types.Workflow{ID: "1", Name: "wf-a", Nodes: []types.Node{{ID: "n1", Type: "start"}}})
	defer source.Close()
	target := newN8NFake(types.Workflow{ID: "99", Name: "wf-a", Nodes: []types.Node{{ID: "n1", Type: "start"}}})
	defer target.Close()

	mgr := newTestManager(t, source, target, t.TempDir())

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{Parallelism: intPtr(1)})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, types.StatusSkipped, summary.Workflows[0].Status)
}

func TestTransferDryRunWithNameFilter(t *testing.T) {
	source := newN8NFake(
		types.Workflow{ID: "1", Name: "keep-me", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
		types.Workflow{ID: "2", Name: "drop-me", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
	)
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	mgr := newTestManager(t, source, target, t.TempDir())

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{
		Parallelism: intPtr(1),
		DryRun:      true,
		Filters:     &types.Filters{WorkflowNames: []string{"keep-me"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Total)
	require.True(t, summary.Workflows[0].Simulated)
	require.NotEmpty(t, summary.Workflows[0].TargetID)
}

func TestTransferParallelWithValidatorFailure(t *testing.T) {
	source := newN8NFake(
		types.Workflow{ID: "1", Name: "good", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
		types.Workflow{ID: "2", Name: "", Nodes: nil}, // fails integrity-validator: empty name + no nodes
	)
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	mgr := newTestManager(t, source, target, t.TempDir())

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{Parallelism: intPtr(5)})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Transferred)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 0, summary.Failed)
}

func TestTransferSkipsWorkflowWithCredentialsWhenSkipCredentialsSet(t *testing.T) {
	source := newN8NFake(
		types.Workflow{ID: "1", Name: "has-creds", Nodes: []types.Node{
			{ID: "n1", Type: "start", Credentials: map[string]any{"apiKey": "secret"}},
		}},
		types.Workflow{ID: "2", Name: "clean", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
	)
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	mgr := newTestManager(t, source, target, t.TempDir())

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{
		Parallelism:     intPtr(1),
		SkipCredentials: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Transferred)
	require.Equal(t, 1, summary.Skipped)

	var skipped types.WorkflowResult
	for _, r := range summary.Workflows {
		if r.Status == types.StatusSkipped {
			skipped = r
		}
	}
	require.Equal(t, "has-creds", skipped.Name)
	require.Equal(t, "Workflow contains credentials (skipCredentials=true)", skipped.Reason)
}

func TestValidateStandaloneReportsIssuesWithoutTransferring(t *testing.T) {
	source := newN8NFake(types.Workflow{ID: "1", Name: "no-type", Nodes: []types.Node{{ID: "n1"}}})
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	reportDir := t.TempDir()
	mgr := newTestManager(t, source, target, reportDir)

	result, err := mgr.Validate(context.Background(), types.TransferOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 1, result.Warnings) // missing node type is a warning, not an error
	require.Equal(t, 1, result.Valid)

	entries, _ := os.ReadDir(reportDir)
	require.Empty(t, entries) // Validate never writes a report
}

func TestCancelWhenIdleReturnsFalseAndRunCompletes(t *testing.T) {
	source := newN8NFake(
		types.Workflow{ID: "1", Name: "a", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
		types.Workflow{ID: "2", Name: "b", Nodes: []types.Node{{ID: "n1", Type: "start"}}},
	)
	defer source.Close()
	target := newN8NFake()
	defer target.Close()

	mgr := newTestManager(t, source, target, t.TempDir())

	// Cancel before the run starts: no run is in progress, so Cancel
	// reports false and the transfer proceeds uninterrupted. This
	// exercises the reported-state contract of Cancel rather than an
	// in-flight abort, which would be racy to assert on deterministically.
	require.False(t, mgr.Cancel())

	summary, err := mgr.Transfer(context.Background(), types.TransferOptions{Parallelism: intPtr(1)})
	require.NoError(t, err)
	require.False(t, summary.Cancelled)
}
