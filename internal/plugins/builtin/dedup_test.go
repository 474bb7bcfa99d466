package builtin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/types"
)

func TestStandardDeduplicatorMatchesByName(t *testing.T) {
	d := builtin.NewStandardDeduplicator()
	existing := []types.Workflow{{ID: "1", Name: "billing-sync"}}

	assert.True(t, d.IsDuplicate(types.Workflow{Name: "billing-sync"}, existing))
	assert.Contains(t, d.Reason(), "billing-sync")
}

func TestStandardDeduplicatorIsCaseSensitive(t *testing.T) {
	d := builtin.NewStandardDeduplicator()
	existing := []types.Workflow{{ID: "1", Name: "Billing-Sync"}}

	assert.False(t, d.IsDuplicate(types.Workflow{Name: "billing-sync"}, existing))
}

func TestStandardDeduplicatorNoMatch(t *testing.T) {
	d := builtin.NewStandardDeduplicator()
	existing := []types.Workflow{{ID: "1", Name: "other"}}

	assert.False(t, d.IsDuplicate(types.Workflow{Name: "billing-sync"}, existing))
	assert.Empty(t, d.Reason())
}
