package builtin

import (
	"context"
	"fmt"

	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/types"
)

// IntegrityValidator checks the structural invariants a workflow bound
// for TARGET must satisfy: a non-empty name, at least
// one node, and unique node ids. It warns on nodes missing a type.
type IntegrityValidator struct {
	plugin.BasePlugin
}

// NewIntegrityValidator constructs the default "integrity-validator" plugin.
func NewIntegrityValidator() *IntegrityValidator {
	v := &IntegrityValidator{
		BasePlugin: plugin.BasePlugin{
			PluginName:    "integrity-validator",
			PluginVersion: "1.0.0",
			PluginKind:    types.KindValidator,
		},
	}
	v.Enable()
	return v
}

func (v *IntegrityValidator) Validate(_ context.Context, w types.Workflow) (plugin.ValidateOutcome, error) {
	var out plugin.ValidateOutcome

	if w.Name == "" {
		out.Errors = append(out.Errors, "workflow name is empty")
	}
	if len(w.Nodes) == 0 {
		out.Errors = append(out.Errors, "workflow has no nodes")
	}

	seen := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.ID == "" {
			out.Errors = append(out.Errors, "node is missing an id")
			continue
		}
		if _, dup := seen[n.ID]; dup {
			out.Errors = append(out.Errors, fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		seen[n.ID] = struct{}{}
		if n.Type == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("node %q has no type", n.ID))
		}
	}

	out.Valid = len(out.Errors) == 0
	return out, nil
}
