package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakunlabs/transferctl/internal/report"
)

func TestExecuteSubstitutesFields(t *testing.T) {
	out, err := report.Execute("hello {{.Name}}, total={{.Total}}", struct {
		Name  string
		Total int
	}{Name: "world", Total: 3})

	require.NoError(t, err)
	assert.Equal(t, "hello world, total=3", string(out))
}

func TestExecuteRange(t *testing.T) {
	out, err := report.Execute("{{range .Items}}[{{.}}]{{end}}", struct{ Items []string }{
		Items: []string{"a", "b"},
	})

	require.NoError(t, err)
	assert.Equal(t, "[a][b]", string(out))
}

func TestExecuteRejectsMalformedTemplate(t *testing.T) {
	_, err := report.Execute("{{.Unclosed", nil)
	require.Error(t, err)
}
