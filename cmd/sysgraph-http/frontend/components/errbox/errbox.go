package errbox

import (
	"html/template"
	"io"
	"strings"

	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend"
)

var errbox = frontend.Templater.Subtemplate("errbox")

func init() {
	frontend.Templater.OnRenderFail(func(w io.Writer, _ string, err error) {
		errbox.Execute(w, err)
	})
}

// Render renders the error into an HTML box.
func Render(err error) template.HTML {
	var b strings.Builder

	if err := errbox.Execute(&b, err); err != nil {
		return template.HTML(template.HTMLEscapeString(err.Error()))
	}

	return template.HTML(b.String())
}
