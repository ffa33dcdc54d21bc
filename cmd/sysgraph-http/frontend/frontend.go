package frontend

import (
	"embed"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"git.unix.lgbt/diamondburned/sysgraph/graph/svgout"
	"github.com/diamondburned/tmplutil"
	"github.com/dustin/go-humanize"
)

//go:embed *
var webFS embed.FS

var Templater = tmplutil.Templater{
	FileSystem: webFS,
	Includes: map[string]string{
		"errbox": "components/errbox/errbox.html",
		"rawcss": "static/style.css",
	},
	Functions: template.FuncMap{
		"reltime": func(d time.Duration) string {
			now := time.Now()
			return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
		},
		"safeCSS": func(s string) template.CSS { return template.CSS(s) },
	},
}

func init() {
	// tmplutil.Log = true
	tmplutil.Preregister(&Templater)
}

// MountStatic mounts a static HTTP handler.
func MountStatic() http.Handler {
	sub, err := fs.Sub(webFS, "static")
	if err != nil {
		log.Panicln("failed to get static:", err)
	}

	return http.FileServer(http.FS(sub))
}

// InlineSVG writes the scene as an SVG element to be embedded into a page.
func InlineSVG(scene *graph.Scene) (template.HTML, error) {
	var b strings.Builder
	b.Grow(64 * 1024)

	if err := svgout.Write(&b, scene); err != nil {
		return "", err
	}

	// Drop the XML prolog.
	svg := b.String()
	if i := strings.Index(svg, "<svg"); i > 0 {
		svg = svg[i:]
	}

	return template.HTML(svg), nil
}
