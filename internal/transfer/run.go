package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rakunlabs/transferctl/internal/logger"
	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/types"
)

// Transfer runs the full pipeline: validate options, fetch SOURCE and
// TARGET inventories, filter, then run dedup/validate/
// transfer for every candidate workflow with opts.Parallelism concurrent
// workers, finishing with report generation. It returns partial results
// (never an error) for per-workflow failures; it returns an error only
// for setup failures (bad options, unreachable servers, unresolvable
// plugins) that prevent the run from starting.
func (m *Manager) Transfer(ctx context.Context, opts types.TransferOptions) (types.TransferSummary, error) {
	start := time.Now()
	runID := newRunID()
	runLogger := m.logger.With("runId", runID)
	ctx = logger.WithContext(ctx, runLogger)

	opts, err := ValidateOptions(opts)
	if err != nil {
		return types.TransferSummary{}, err
	}

	dedup, validators, reporters, err := m.resolvePlugins(opts)
	if err != nil {
		return types.TransferSummary{}, err
	}

	runLogger.Info("transfer: fetching source workflows")
	sourceWorkflows, err := m.sourceClient.GetWorkflows(ctx)
	if err != nil {
		return types.TransferSummary{}, fmt.Errorf("transfer: fetch SOURCE workflows: %w", err)
	}

	runLogger.Info("transfer: fetching target workflows")
	targetWorkflows, err := m.targetClient.GetWorkflows(ctx)
	if err != nil {
		return types.TransferSummary{}, fmt.Errorf("transfer: fetch TARGET workflows: %w", err)
	}

	candidates := filterWorkflows(sourceWorkflows, opts.Filters)
	m.resetRun(len(candidates))
	runLogger.Info("transfer: starting run", "total", len(candidates), "dryRun", opts.DryRun, "parallelism", *opts.Parallelism)

	results := make([]types.WorkflowResult, len(candidates))
	cancelled := false
	processedCount := 0
	var fatalMu sync.Mutex
	var fatal error

	batches := batchIndexes(len(candidates), *opts.Parallelism)
	for _, batch := range batches {
		if m.isCancelled() || fatal != nil {
			cancelled = fatal == nil
			break
		}

		var wg sync.WaitGroup
		for _, idx := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				candidate := candidates[i]
				pr := m.runOne(ctx, candidate, targetWorkflows, dedup, validators, opts)
				if pr.fatal != nil {
					fatalMu.Lock()
					if fatal == nil {
						fatal = pr.fatal
					}
					fatalMu.Unlock()
					return
				}
				results[i] = pr.result
				m.recordOutcome(pr.result.Status)
			}(idx)
		}
		wg.Wait()
		processedCount += len(batch)
	}

	if fatal != nil {
		m.setStatus(types.StatusRunFailed)
		return types.TransferSummary{}, fmt.Errorf("transfer: %w", fatal)
	}

	if cancelled {
		m.setStatus(types.StatusCancelled)
	} else {
		m.setStatus(types.StatusCompleted)
	}
	results = results[:processedCount]

	summary := types.TransferSummary{
		RunID:      runID,
		Total:      len(candidates),
		Processed:  processedCount,
		DurationMs: time.Since(start).Milliseconds(),
		Workflows:  results,
		StartTime:  start,
		EndTime:    time.Now(),
		SourceURL:  m.config.Source.URL,
		TargetURL:  m.config.Target.URL,
		DryRun:     opts.DryRun,
		Cancelled:  cancelled,
	}
	for _, r := range results {
		switch r.Status {
		case types.StatusTransferred:
			summary.Transferred++
		case types.StatusSkipped:
			summary.Skipped++
		case types.StatusFailed:
			summary.Failed++
		}
	}

	summary.Reports = m.generateReports(ctx, reporters, summary, runLogger)

	runLogger.Info("transfer: run finished",
		"transferred", summary.Transferred,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
	)

	return summary, nil
}

// Validate runs every configured validator against every SOURCE workflow
// matching opts.Filters without contacting TARGET or transferring
// anything.
func (m *Manager) Validate(ctx context.Context, opts types.TransferOptions) (types.ValidationResult, error) {
	opts, err := ValidateOptions(opts)
	if err != nil {
		return types.ValidationResult{}, err
	}

	_, validators, _, err := m.resolvePlugins(opts)
	if err != nil {
		return types.ValidationResult{}, err
	}

	workflows, err := m.sourceClient.GetWorkflows(ctx)
	if err != nil {
		return types.ValidationResult{}, fmt.Errorf("transfer: fetch SOURCE workflows: %w", err)
	}
	candidates := filterWorkflows(workflows, opts.Filters)

	result := types.ValidationResult{Total: len(candidates)}
	for _, v := range validators {
		result.Validators = append(result.Validators, v.Name())
	}

	for _, w := range candidates {
		outcome, issues := runValidators(ctx, validators, types.PhaseStandalone, w)
		if len(issues) > 0 {
			result.Issues = append(result.Issues, types.WorkflowIssues{
				Workflow:   w.Name,
				WorkflowID: w.ID,
				Issues:     issues,
			})
		}
		for _, issue := range issues {
			switch issue.Severity {
			case types.SeverityError:
				result.Errors++
			case types.SeverityWarning:
				result.Warnings++
			}
		}
		if outcome.Valid {
			result.Valid++
		} else {
			result.Invalid++
		}
	}

	return result, nil
}

func (m *Manager) generateReports(ctx context.Context, reporters []plugin.Reporter, summary types.TransferSummary, runLogger *slog.Logger) []types.ReportFile {
	var files []types.ReportFile
	for _, r := range reporters {
		path, err := r.Generate(ctx, summary)
		if err != nil {
			runLogger.Warn("transfer: reporter failed", "reporter", r.Name(), "error", err.Error())
			continue
		}
		files = append(files, types.ReportFile{
			Reporter: r.Name(),
			Path:     path,
			Format:   inferFormat(r.Name()),
		})
	}
	return files
}

// inferFormat labels a report by substring of the reporter's name, not its
// output path: a third-party reporter's path extension is its own business.
func inferFormat(name string) types.ReportFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "markdown") || strings.Contains(lower, "md"):
		return types.FormatMarkdown
	case strings.Contains(lower, "json"):
		return types.FormatJSON
	case strings.Contains(lower, "csv"):
		return types.FormatCSV
	default:
		return types.FormatUnknown
	}
}

// batchIndexes splits [0,total) into consecutive slices of at most size
// elements each, matching the "complete the current batch, then check
// for cancellation" concurrency model.
func batchIndexes(total, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var batches [][]int
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		batch := make([]int, end-start)
		for i := range batch {
			batch[i] = start + i
		}
		batches = append(batches, batch)
	}
	return batches
}
