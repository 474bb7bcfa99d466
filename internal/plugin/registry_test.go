package plugin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/types"
)

type fakeDedup struct {
	plugin.BasePlugin
}

func newFakeDedup(name string) *fakeDedup {
	p := &fakeDedup{BasePlugin: plugin.BasePlugin{PluginName: name, PluginVersion: "1.0.0", PluginKind: types.KindDeduplicator}}
	p.Enable()
	return p
}

func (f *fakeDedup) IsDuplicate(types.Workflow, []types.Workflow) bool { return false }
func (f *fakeDedup) Reason() string                                   { return "" }

type fakeValidator struct {
	plugin.BasePlugin
}

func (f *fakeValidator) Validate(context.Context, types.Workflow) (plugin.ValidateOutcome, error) {
	return plugin.ValidateOutcome{Valid: true}, nil
}

func TestRegisterAndGet(t *testing.T) {
	reg := plugin.NewRegistry()
	d := newFakeDedup("my-dedup")

	require.NoError(t, reg.Register(d))
	assert.Equal(t, d, reg.Get("MY-DEDUP", types.KindDeduplicator))
	assert.Nil(t, reg.Get("missing"))
}

func TestRegisterRejectsKindMismatch(t *testing.T) {
	reg := plugin.NewRegistry()
	bad := &fakeValidator{BasePlugin: plugin.BasePlugin{PluginName: "bad", PluginKind: types.KindDeduplicator}}
	err := reg.Register(bad)
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(newFakeDedup("dup")))
	err := reg.Register(newFakeDedup("DUP"))
	assert.Error(t, err)
}

func TestUnregister(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(newFakeDedup("gone")))
	assert.True(t, reg.Unregister("gone"))
	assert.False(t, reg.Unregister("gone"))
	assert.Nil(t, reg.Get("gone"))
}

func TestGetStats(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(newFakeDedup("a")))
	require.NoError(t, reg.Register(newFakeDedup("b")))

	stats := reg.GetStats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Enabled)
	assert.Equal(t, 2, stats.ByKind[types.KindDeduplicator])
}

func TestDiscoverMissingDirIsNotAnError(t *testing.T) {
	reg := plugin.NewRegistry()
	result, err := reg.Discover("/nonexistent/path/for/plugins")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}
