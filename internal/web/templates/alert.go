// Package templates holds the HTML fragments returned to HTMX clients.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders the dismissible error box shown above forms.
// Every argument is escaped.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		parts := []string{
			`<div class="alert alert-error" role="alert" data-code="`, templ.EscapeString(code), `">`,
			`<p class="alert-message">`, templ.EscapeString(message), `</p>`,
		}
		if action != "" {
			parts = append(parts, `<p class="alert-action">`, templ.EscapeString(action), `</p>`)
		}
		parts = append(parts,
			`<p class="alert-code">Code: `, templ.EscapeString(code), `</p>`,
			`</div>`,
		)
		for _, p := range parts {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// RowErrors renders the per-row problems of a rejected import as a list
// under the alert.
func RowErrors(rows []RowError) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<ul class="import-errors">`); err != nil {
			return err
		}
		for _, r := range rows {
			line := `<li><span class="row">Row ` + templ.EscapeString(r.Row) + `</span> ` + templ.EscapeString(r.Message) + `</li>`
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// RowError is one line of RowErrors.
type RowError struct {
	Row     string
	Message string
}
