package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/report"
	"github.com/rakunlabs/transferctl/internal/types"
)

const markdownTemplate = `# Transfer Report

Run: {{.RunID}}
Source: {{.SourceURL}}
Target: {{.TargetURL}}
Dry run: {{.DryRun}}

| Metric | Value |
|---|---|
| Total | {{.Total}} |
| Transferred | {{.Transferred}} |
| Skipped | {{.Skipped}} |
| Failed | {{.Failed}} |

## Workflows
{{range .Workflows}}
- **{{.Name}}** — {{.Status}}{{if .Reason}} ({{.Reason}}){{end}}{{if .Error}} (error: {{.Error}}){{end}}
{{- end}}
`

// MarkdownReporter renders a TransferSummary as a Markdown file using
// the mugo templating engine wired in internal/report.
type MarkdownReporter struct {
	plugin.BasePlugin
	dir string
}

// NewMarkdownReporter constructs the default "markdown-reporter" plugin,
// writing report files under dir.
func NewMarkdownReporter(dir string) *MarkdownReporter {
	r := &MarkdownReporter{
		BasePlugin: plugin.BasePlugin{
			PluginName:    "markdown-reporter",
			PluginVersion: "1.0.0",
			PluginKind:    types.KindReporter,
		},
		dir: dir,
	}
	r.Enable()
	return r
}

func (r *MarkdownReporter) Generate(_ context.Context, summary types.TransferSummary) (string, error) {
	rendered, err := report.Execute(markdownTemplate, summary)
	if err != nil {
		return "", fmt.Errorf("markdown-reporter: render: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("markdown-reporter: create report directory: %w", err)
	}

	name := fmt.Sprintf("transfer-%s.md", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return "", fmt.Errorf("markdown-reporter: write report: %w", err)
	}

	return path, nil
}

// RegisterAll installs the in-tree reference plugins into reg at
// startup, explicitly rather than via directory scanning; Discover in
// internal/plugin remains available for third-party .so plugins.
func RegisterAll(reg *plugin.Registry, reportDir string) error {
	if err := reg.Register(NewStandardDeduplicator()); err != nil {
		return err
	}
	if err := reg.Register(NewIntegrityValidator()); err != nil {
		return err
	}
	if err := reg.Register(NewMarkdownReporter(reportDir)); err != nil {
		return err
	}
	return nil
}
