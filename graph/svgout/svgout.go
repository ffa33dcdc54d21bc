// Package svgout writes graph scenes as SVG documents.
package svgout

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/sysgraph/graph"
)

// errWriter keeps the first write error, since svgo discards them.
type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(b []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(b)
	w.err = err
	return n, err
}

// Write writes the scene to w. Elements flagged with Clip are clipped to the
// plot area.
func Write(w io.Writer, scene *graph.Scene) error {
	ew := errWriter{w: w}
	canvas := svg.New(&ew)

	canvas.Start(scene.Width, scene.Height,
		`font-family="sans-serif"`,
		fmt.Sprintf(`font-size="%g"`, scene.FontSize),
	)
	canvas.Rect(0, 0, scene.Width, scene.Height, "fill:"+scene.Background)

	if clip, ok := findClip(scene); ok {
		canvas.Def()
		canvas.ClipPath(`id="` + graph.ClipID + `"`)
		canvas.Rect(px(clip.X), px(clip.Y), px(clip.W), px(clip.H))
		canvas.ClipEnd()
		canvas.DefEnd()
	}

	open := false
	var layer graph.Layer

	for i := range scene.Elements {
		e := &scene.Elements[i]
		if e.Kind == graph.KindClip {
			continue
		}

		if !open || e.Layer != layer {
			if open {
				canvas.Gend()
			}
			canvas.Group(groupAttrs(e.Layer)...)
			open = true
			layer = e.Layer
		}

		writeElement(canvas, e)
	}

	if open {
		canvas.Gend()
	}

	canvas.End()

	return errors.Wrap(ew.err, "failed to write svg")
}

func findClip(scene *graph.Scene) (graph.Element, bool) {
	for _, e := range scene.Elements {
		if e.Kind == graph.KindClip {
			return e, true
		}
	}
	return graph.Element{}, false
}

func groupAttrs(layer graph.Layer) []string {
	attrs := []string{`class="` + layer.String() + `"`}

	switch layer {
	case graph.LayerLines, graph.LayerPoints, graph.LayerBars:
		attrs = append(attrs, `clip-path="url(#`+graph.ClipID+`)"`)
	}

	return attrs
}

func writeElement(canvas *svg.SVG, e *graph.Element) {
	switch e.Kind {
	case graph.KindRect:
		if hasTitle(e) {
			canvas.Group()
			canvas.Title(pointTitle(e.Points[0]))
			canvas.Rect(px(e.X), px(e.Y), px(e.W), px(e.H), attrs(e)...)
			canvas.Gend()
			return
		}
		canvas.Rect(px(e.X), px(e.Y), px(e.W), px(e.H), attrs(e)...)

	case graph.KindLine:
		canvas.Line(px(e.X), px(e.Y), px(e.X2), px(e.Y2), attrs(e)...)

	case graph.KindPath:
		canvas.Path(e.D, attrs(e)...)

	case graph.KindCircle:
		r := int(math.Max(1, math.Round(e.R)))
		if hasTitle(e) {
			canvas.Group()
			canvas.Title(pointTitle(e.Points[0]))
			canvas.Circle(px(e.X), px(e.Y), r, attrs(e)...)
			canvas.Gend()
			return
		}
		canvas.Circle(px(e.X), px(e.Y), r, attrs(e)...)

	case graph.KindText:
		canvas.Text(px(e.X), px(e.Y), e.Text, attrs(e)...)

	case graph.KindAnnotation:
		writeAnnotation(canvas, e)
	}
}

func hasTitle(e *graph.Element) bool {
	return len(e.Points) == 1 && e.Points[0].Label != ""
}

func pointTitle(p graph.MappedPoint) string {
	return p.Label
}

// attrs returns the presentation attributes of an element.
func attrs(e *graph.Element) []string {
	var style strings.Builder

	if e.Fill != "" {
		style.WriteString("fill:" + e.Fill + ";")
	} else {
		style.WriteString("fill:none;")
	}

	if e.FillOpacity > 0 && e.FillOpacity < 1 {
		fmt.Fprintf(&style, "fill-opacity:%g;", e.FillOpacity)
	}

	if e.Stroke != "" {
		style.WriteString("stroke:" + e.Stroke + ";")
		fmt.Fprintf(&style, "stroke-width:%g;", e.StrokeWidth)
		if e.Kind == graph.KindPath {
			style.WriteString("stroke-linejoin:round;")
		}
	}

	if e.Dashed {
		style.WriteString("stroke-dasharray:2,2;")
	}

	if e.Anchor != "" {
		style.WriteString("text-anchor:" + e.Anchor + ";")
	}

	a := []string{strings.TrimSuffix(style.String(), ";")}
	if e.Class != "" {
		a = append(a, `class="`+e.Class+`"`)
	}

	return a
}

func writeAnnotation(canvas *svg.SVG, e *graph.Element) {
	a := e.Annotation
	if a == nil {
		return
	}

	canvas.Group(`class="` + e.Class + `"`)
	canvas.Title(annotationTitle(a.Info))

	x1, x2 := px(a.X), px(a.X+a.Width)
	y1, y2 := px(a.Y), px(a.Y+a.Height)

	edge := func(x int, dashed bool) {
		style := "stroke:" + e.Stroke + ";stroke-width:1"
		if dashed {
			style += ";stroke-dasharray:4,2"
		}
		canvas.Line(x, y1, x, y2, style)
	}

	if a.DrawType.Has(graph.AnnotationSimple) {
		edge(x1, a.DrawType.Has(graph.DashStart))
	} else {
		canvas.Rect(x1, y1, x2-x1, y2-y1,
			fmt.Sprintf("fill:%s;fill-opacity:%g", e.Fill, e.FillOpacity))
		edge(x1, a.DrawType.Has(graph.DashStart))
		edge(x2, a.DrawType.Has(graph.DashEnd))
	}

	canvas.Gend()
}

func annotationTitle(info graph.ProblemInfo) string {
	var b strings.Builder
	b.WriteString(info.Status + ": " + info.Name + "\n")
	b.WriteString(info.Clock)
	if info.RClock != "" {
		b.WriteString(" - " + info.RClock)
	}
	b.WriteString(" (" + info.Duration + ")")
	return b.String()
}

func px(v float64) int {
	return int(math.Round(v))
}
