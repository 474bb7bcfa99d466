package builtin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/types"
)

func TestMarkdownReporterWritesFile(t *testing.T) {
	dir := t.TempDir()
	r := builtin.NewMarkdownReporter(dir)

	summary := types.TransferSummary{
		RunID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SourceURL:   "https://source.example.com",
		TargetURL:   "https://target.example.com",
		Total:       1,
		Transferred: 1,
		StartTime:   time.Now(),
		EndTime:     time.Now(),
		Workflows: []types.WorkflowResult{
			{Name: "wf-a", Status: types.StatusTransferred},
		},
	}

	path, err := r.Generate(context.Background(), summary)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path) || filepath.Dir(path) == dir)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), summary.RunID)
	assert.Contains(t, string(data), "wf-a")
}

func TestMarkdownReporterCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	r := builtin.NewMarkdownReporter(dir)

	path, err := r.Generate(context.Background(), types.TransferSummary{RunID: "run-1"})
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
