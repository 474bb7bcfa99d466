package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/types"
)

// resolvePlugins looks up the configured deduplicator and validators by
// name, failing fast if any is missing or disabled.
func (m *Manager) resolvePlugins(opts types.TransferOptions) (plugin.Deduplicator, []plugin.Validator, []plugin.Reporter, error) {
	dedupPlugin := m.registry.Get(opts.Deduplicator, types.KindDeduplicator)
	if dedupPlugin == nil {
		return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: deduplicator %q is not registered", opts.Deduplicator), nil)
	}
	dedup, ok := dedupPlugin.(plugin.Deduplicator)
	if !ok || !dedup.IsEnabled() {
		return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: deduplicator %q is not enabled", opts.Deduplicator), nil)
	}

	validators := make([]plugin.Validator, 0, len(opts.Validators))
	for _, name := range opts.Validators {
		p := m.registry.Get(name, types.KindValidator)
		if p == nil {
			return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: validator %q is not registered", name), nil)
		}
		v, ok := p.(plugin.Validator)
		if !ok || !v.IsEnabled() {
			return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: validator %q is not enabled", name), nil)
		}
		validators = append(validators, v)
	}

	reporters := make([]plugin.Reporter, 0, len(opts.Reporters))
	for _, name := range opts.Reporters {
		p := m.registry.Get(name, types.KindReporter)
		if p == nil {
			return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: reporter %q is not registered", name), nil)
		}
		r, ok := p.(plugin.Reporter)
		if !ok || !r.IsEnabled() {
			return nil, nil, nil, apierr.New(apierr.Validation, fmt.Sprintf("transfer: reporter %q is not enabled", name), nil)
		}
		reporters = append(reporters, r)
	}

	return dedup, validators, reporters, nil
}

// runValidators applies every validator to w in order, returning the
// accumulated outcome plus any issues recorded for the report.
func runValidators(ctx context.Context, validators []plugin.Validator, phase types.Phase, w types.Workflow) (plugin.ValidateOutcome, []types.Issue) {
	outcome := plugin.ValidateOutcome{Valid: true}
	var issues []types.Issue

	for _, v := range validators {
		res, err := v.Validate(ctx, w)
		if err != nil {
			outcome.Valid = false
			msg := fmt.Sprintf("validator %q failed to run: %v", v.Name(), err)
			outcome.Errors = append(outcome.Errors, msg)
			issues = append(issues, types.Issue{Validator: v.Name(), Phase: phase, Message: msg, Severity: types.SeverityError})
			continue
		}

		if !res.Valid {
			outcome.Valid = false
		}
		for _, e := range res.Errors {
			outcome.Errors = append(outcome.Errors, e)
			issues = append(issues, types.Issue{Validator: v.Name(), Phase: phase, Message: e, Severity: types.SeverityError})
		}
		for _, warn := range res.Warnings {
			outcome.Warnings = append(outcome.Warnings, warn)
			issues = append(issues, types.Issue{Validator: v.Name(), Phase: phase, Message: warn, Severity: types.SeverityWarning})
		}
	}

	return outcome, issues
}

// pipelineResult is the outcome of running one candidate workflow through
// dedup, pre-validation, the credential gate, and transfer/simulation. A
// non-nil fatal means the deduplicator itself panicked: dedup is
// load-bearing, so that aborts the whole run rather than just this one
// workflow.
type pipelineResult struct {
	result types.WorkflowResult
	issues []types.Issue
	fatal  error
}

// safeIsDuplicate recovers a deduplicator panic into an error instead of
// bringing down the run's goroutine.
func safeIsDuplicate(dedup plugin.Deduplicator, candidate types.Workflow, existing []types.Workflow) (dup bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deduplicator %q panicked: %v", dedup.Name(), r)
		}
	}()
	dup = dedup.IsDuplicate(candidate, existing)
	return dup, nil
}

// runOne runs dedup, validation, and transfer/simulation for a single
// candidate workflow against the already-fetched TARGET inventory.
// targetWorkflows is read-only; it is not mutated to reflect workflows
// transferred earlier in the same run (dedup is computed against
// TARGET's state fetched once at the start of the run).
func (m *Manager) runOne(
	ctx context.Context,
	candidate types.Workflow,
	targetWorkflows []types.Workflow,
	dedup plugin.Deduplicator,
	validators []plugin.Validator,
	opts types.TransferOptions,
) pipelineResult {
	isDup, err := safeIsDuplicate(dedup, candidate, targetWorkflows)
	if err != nil {
		return pipelineResult{fatal: err}
	}
	if isDup {
		reason := dedup.Reason()
		if reason == "" {
			reason = "duplicate of an existing TARGET workflow"
		}
		return pipelineResult{result: types.WorkflowResult{
			Name:     candidate.Name,
			SourceID: candidate.ID,
			Status:   types.StatusSkipped,
			Reason:   reason,
		}}
	}

	outcome, issues := runValidators(ctx, validators, types.PhasePre, candidate)
	if !outcome.Valid {
		return pipelineResult{
			result: types.WorkflowResult{
				Name:     candidate.Name,
				SourceID: candidate.ID,
				Status:   types.StatusSkipped,
				Reason:   "Validation failed: " + joinMessages(outcome.Errors),
			},
			issues: issues,
		}
	}

	if opts.SkipCredentials && candidate.HasCredentials() {
		return pipelineResult{
			result: types.WorkflowResult{
				Name:     candidate.Name,
				SourceID: candidate.ID,
				Status:   types.StatusSkipped,
				Reason:   "Workflow contains credentials (skipCredentials=true)",
			},
			issues: issues,
		}
	}

	payload := candidate

	if opts.DryRun {
		return pipelineResult{
			result: types.WorkflowResult{
				Name:      candidate.Name,
				SourceID:  candidate.ID,
				TargetID:  "simulated-" + uuid.NewString(),
				Status:    types.StatusTransferred,
				Simulated: true,
			},
			issues: issues,
		}
	}

	created, err := m.targetClient.CreateWorkflow(ctx, payload)
	if err != nil {
		return pipelineResult{
			result: types.WorkflowResult{
				Name:     candidate.Name,
				SourceID: candidate.ID,
				Status:   types.StatusFailed,
				Error:    err.Error(),
			},
			issues: issues,
		}
	}

	return pipelineResult{
		result: types.WorkflowResult{
			Name:     candidate.Name,
			SourceID: candidate.ID,
			TargetID: created.ID,
			Status:   types.StatusTransferred,
		},
		issues: issues,
	}
}

func joinMessages(msgs []string) string {
	if len(msgs) == 0 {
		return ""
	}
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}
