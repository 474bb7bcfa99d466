// Package builtin provides the single in-tree reference implementation
// of each plugin kind: a name-based deduplicator, a presence-based
// integrity validator, and a templated Markdown reporter. Production
// plugins are external collaborators; these exist only so the engine is
// exercisable end to end without a plugins directory, and are
// registered explicitly through RegisterAll (by the CLI, or by
// transfer.New when it builds its own registry) rather than
// auto-discovered.
package builtin

import (
	"sync"

	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/types"
)

// StandardDeduplicator treats a candidate as a duplicate of anything on
// TARGET sharing its (case-sensitive) name.
type StandardDeduplicator struct {
	plugin.BasePlugin
	mu     sync.Mutex
	reason string
}

// NewStandardDeduplicator constructs the default "standard-deduplicator" plugin.
func NewStandardDeduplicator() *StandardDeduplicator {
	d := &StandardDeduplicator{
		BasePlugin: plugin.BasePlugin{
			PluginName:    "standard-deduplicator",
			PluginVersion: "1.0.0",
			PluginKind:    types.KindDeduplicator,
		},
	}
	d.Enable()
	return d
}

func (d *StandardDeduplicator) IsDuplicate(candidate types.Workflow, existing []types.Workflow) bool {
	for _, w := range existing {
		if w.Name == candidate.Name {
			d.mu.Lock()
			d.reason = "a workflow named \"" + candidate.Name + "\" already exists on the target server"
			d.mu.Unlock()
			return true
		}
	}
	return false
}

func (d *StandardDeduplicator) Reason() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}
