package transfer

import (
	"fmt"
	"strings"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/types"
)

// ValidateOptions applies defaults to a caller-supplied TransferOptions
// and rejects the whole set with a single Validation error enumerating
// every offending field.
func ValidateOptions(opts types.TransferOptions) (types.TransferOptions, error) {
	defaults := types.DefaultTransferOptions()

	var problems []string

	if opts.Parallelism == nil {
		opts.Parallelism = defaults.Parallelism
	} else if *opts.Parallelism < 1 || *opts.Parallelism > 10 {
		problems = append(problems, fmt.Sprintf("parallelism must be an integer in [1,10], got %d", *opts.Parallelism))
	}

	if opts.Deduplicator == "" {
		opts.Deduplicator = defaults.Deduplicator
	}

	if opts.Validators == nil {
		opts.Validators = defaults.Validators
	}

	if opts.Reporters == nil {
		opts.Reporters = defaults.Reporters
	}

	if opts.Filters != nil {
		f := opts.Filters
		if len(f.WorkflowIDs) == 0 && len(f.WorkflowNames) == 0 && len(f.Tags) == 0 && len(f.ExcludeTags) == 0 {
			opts.Filters = nil
		}
	}

	if len(problems) > 0 {
		return opts, apierr.New(apierr.Validation, "invalid transfer options: "+strings.Join(problems, "; "), nil)
	}

	return opts, nil
}

// matchFilters reports whether w passes every configured filter, using
// AND-across-filters / OR-within-filter semantics.
func matchFilters(w types.Workflow, f *types.Filters) bool {
	if f == nil {
		return true
	}

	if len(f.WorkflowIDs) > 0 && !contains(f.WorkflowIDs, w.ID) {
		return false
	}
	if len(f.WorkflowNames) > 0 && !contains(f.WorkflowNames, w.Name) {
		return false
	}
	if len(f.Tags) > 0 && !w.HasAnyTag(f.Tags) {
		return false
	}
	if len(f.ExcludeTags) > 0 && w.HasAnyTag(f.ExcludeTags) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func filterWorkflows(workflows []types.Workflow, f *types.Filters) []types.Workflow {
	if f == nil {
		return workflows
	}
	out := make([]types.Workflow, 0, len(workflows))
	for _, w := range workflows {
		if matchFilters(w, f) {
			out = append(out, w)
		}
	}
	return out
}
