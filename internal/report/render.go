// Package report provides template rendering for the in-tree reference
// reporter plugin, a thin wrapper over github.com/rytsh/mugo.
package report

import (
	"bytes"
	"log/slog"

	"github.com/rytsh/mugo/fstore"
	_ "github.com/rytsh/mugo/fstore/registry"
	"github.com/rytsh/mugo/render"
	"github.com/rytsh/mugo/templatex"
)

// ExecuteWithData renders a Go template string against data using mugo's
// standard function map.
var ExecuteWithData = render.ExecuteWithData

// Execute renders content against data with the standard mugo function
// map, for reporters that don't need extra template functions.
func Execute(content string, data any) ([]byte, error) {
	tpl := templatex.New(
		templatex.WithAddFuncMapWithOpts(func(o templatex.Option) map[string]any {
			return fstore.FuncMap(
				fstore.WithLog(slog.Default()),
				fstore.WithTrust(true),
				fstore.WithExecuteTemplate(o.T),
			)
		}),
	)

	var buf bytes.Buffer
	if err := tpl.Execute(
		templatex.WithIO(&buf),
		templatex.WithContent(content),
		templatex.WithData(data),
	); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
