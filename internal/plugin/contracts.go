// Package plugin defines the three plugin contracts (deduplicator,
// validator, reporter) and the registry that indexes them by name and
// kind. The contracts are expressed as small Go interfaces rather than
// a class hierarchy.
package plugin

import (
	"context"

	"github.com/rakunlabs/transferctl/internal/types"
)

// Plugin is the capability set every plugin exposes regardless of kind:
// identity and an enable/disable lifecycle.
type Plugin interface {
	Name() string
	Version() string
	Kind() types.PluginKind
	Enable()
	IsEnabled() bool
}

// Configurable is optionally implemented by plugins that accept a
// per-plugin configuration blob discovered alongside them.
type Configurable interface {
	Configure(cfg map[string]any) error
}

// Deduplicator decides whether a candidate workflow already exists on
// TARGET. Exactly one is active per transfer.
type Deduplicator interface {
	Plugin
	IsDuplicate(candidate types.Workflow, existing []types.Workflow) bool
	// Reason describes the most recent true IsDuplicate verdict; it may
	// return "" to let the caller fall back to a generic message.
	Reason() string
}

// ValidateOutcome is the result of one Validator.Validate call.
type ValidateOutcome struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validator checks a workflow's structure or content. Zero or more run
// per transfer; errors skip the workflow, warnings are recorded.
type Validator interface {
	Plugin
	Validate(ctx context.Context, workflow types.Workflow) (ValidateOutcome, error)
}

// Reporter renders a TransferSummary to a file and returns its path.
// Zero or more run after the transfer loop; a reporter's failure never
// fails the run.
type Reporter interface {
	Plugin
	Generate(ctx context.Context, summary types.TransferSummary) (string, error)
}

// BasePlugin provides the common Plugin fields so concrete plugins (the
// in-tree reference set and third-party .so plugins alike) don't each
// re-implement Name/Version/Kind/Enable/IsEnabled.
type BasePlugin struct {
	PluginName    string
	PluginVersion string
	PluginKind    types.PluginKind
	enabled       bool
}

func (b *BasePlugin) Name() string          { return b.PluginName }
func (b *BasePlugin) Version() string       { return b.PluginVersion }
func (b *BasePlugin) Kind() types.PluginKind { return b.PluginKind }
func (b *BasePlugin) Enable()               { b.enabled = true }
func (b *BasePlugin) IsEnabled() bool       { return b.enabled }
