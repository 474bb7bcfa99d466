package builtin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/types"
)

func TestIntegrityValidatorAcceptsWellFormedWorkflow(t *testing.T) {
	v := builtin.NewIntegrityValidator()
	out, err := v.Validate(context.Background(), types.Workflow{
		Name:  "ok",
		Nodes: []types.Node{{ID: "n1", Type: "start"}},
	})

	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)
}

func TestIntegrityValidatorRejectsEmptyNameAndNoNodes(t *testing.T) {
	v := builtin.NewIntegrityValidator()
	out, err := v.Validate(context.Background(), types.Workflow{})

	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Len(t, out.Errors, 2)
}

func TestIntegrityValidatorRejectsDuplicateNodeIDs(t *testing.T) {
	v := builtin.NewIntegrityValidator()
	out, err := v.Validate(context.Background(), types.Workflow{
		Name: "dup",
		Nodes: []types.Node{
			{ID: "n1", Type: "start"},
			{ID: "n1", Type: "end"},
		},
	})

	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Contains(t, out.Errors[0], "duplicate node id")
}

func TestIntegrityValidatorWarnsOnMissingNodeType(t *testing.T) {
	v := builtin.NewIntegrityValidator()
	out, err := v.Validate(context.Background(), types.Workflow{
		Name:  "warn-only",
		Nodes: []types.Node{{ID: "n1"}},
	})

	require.NoError(t, err)
	assert.True(t, out.Valid)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "n1")
}
