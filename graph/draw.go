package graph

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	offsetTop = 10
	// offsetBottom leaves room for the time labels.
	offsetBottom = 20
	// offsetSide is the margin of a side with no axis labels.
	offsetSide = 10
	// axisPadding is the space between the axis and its labels.
	axisPadding = 4

	// minRowHeight and maxRowHeight bound the height of a value grid row.
	minRowHeight = 30
	maxRowHeight = 100

	defaultPointSize = 4
	// charWidth is the width of a label character relative to the font size.
	charWidth = 0.6
	// maxLabelShare caps the label margin of one side relative to the width.
	maxLabelShare = 0.25
)

// Graph holds the working state of a single render.
type Graph struct {
	opts  Options
	theme *Theme
	loc   *time.Location
	now   int64

	// window holds the displayed part of each series, after missing data
	// resolution.
	window [][]Point

	zeroFilled [2]bool
	used       [2]bool
	visible    [2]bool
	units      [2]Units

	mapper    Mapper
	valueGrid [2][]GridLine
	timeGrid  []GridLine

	lines [][]Segment
	marks [][]MappedPoint
	bars  []BarGroup

	scene *Scene
}

// New creates a graph for one render. The options are not copied deeply;
// they must not be modified until Draw returns.
func New(opts Options) *Graph {
	g := Graph{
		opts:  opts,
		theme: opts.Theme,
		loc:   opts.Location,
		now:   opts.Now,
	}

	if g.theme == nil {
		g.theme = DefaultTheme()
	}
	if g.loc == nil {
		g.loc = time.Local
	}
	if g.now == 0 {
		g.now = time.Now().Unix()
	}

	return &g
}

// Draw renders the options into a new scene.
func Draw(opts Options) *Scene {
	return New(opts).Draw()
}

// Draw renders the graph. A canvas with no area yields a scene with no
// elements.
func (g *Graph) Draw() *Scene {
	g.scene = &Scene{
		Width:      g.opts.Width,
		Height:     g.opts.Height,
		Background: g.theme.Background,
		FontSize:   g.theme.FontSize,
	}

	g.applyMissingData()

	if !g.calculateDimensions() {
		return g.scene
	}

	g.calculatePaths()
	g.drawWorkingTime()
	g.drawGrid()

	if g.visible[Left] {
		g.drawLeftAxis()
	}
	if g.visible[Right] {
		g.drawRightAxis()
	}
	if g.opts.ShowXAxis {
		g.drawXAxis()
	}

	g.drawLines()
	g.drawPoints()
	g.drawBars()
	g.drawProblems()
	g.addClipRegion()

	return g.scene
}

func (g *Graph) applyMissingData() {
	metrics := g.opts.Metrics
	g.window = make([][]Point, len(metrics))

	for i, m := range metrics {
		points := normalizePoints(m.Points)

		if m.Options.Type.continuous() {
			inserted := GapPoints(points, m.Options.MissingData)
			if m.Options.MissingData == MissingZero && g.anyVisible(inserted, m.Options.TimeShift) {
				g.zeroFilled[m.Options.Axis] = true
			}
			points = mergePoints(points, inserted)
		}

		g.window[i] = windowPoints(points, g.opts.From, g.opts.Till, m.Options.TimeShift)
		g.used[m.Options.Axis] = true
	}
}

// anyVisible returns true if any of the points falls within [from, till].
func (g *Graph) anyVisible(points []Point, shift int64) bool {
	for _, p := range points {
		if t := p.Clock - shift; t >= g.opts.From && t <= g.opts.Till {
			return true
		}
	}
	return false
}

// windowPoints returns the points displayed within [from, till].
func windowPoints(points []Point, from, till, shift int64) []Point {
	start := -1
	end := len(points)

	for i, p := range points {
		t := p.Clock - shift
		if start == -1 && t >= from {
			start = i
		}
		if t > till {
			end = i
			break
		}
	}

	if start == -1 || start >= end {
		return nil
	}

	return points[start:end]
}

func (g *Graph) axis(side AxisSide) AxisConfig {
	if side == Right {
		return g.opts.Right
	}
	return g.opts.Left
}

func (g *Graph) calculateDimensions() bool {
	bottom := float64(offsetTop)
	if g.opts.ShowXAxis {
		bottom = offsetBottom
	}

	ch := float64(g.opts.Height) - offsetTop - bottom
	if ch <= 0 {
		return false
	}

	for _, side := range []AxisSide{Left, Right} {
		g.visible[side] = g.axis(side).Show && g.used[side]
		g.units[side] = g.sideUnits(side)
	}

	g.calculateScales(ch)

	// Value labels only depend on the height, so a provisional canvas is
	// enough to measure them.
	g.mapper.Canvas = Canvas{Y: offsetTop, Width: 1, Height: ch}

	// Labels may be clipped but never take the whole canvas.
	maxLabel := math.Max(offsetSide, float64(g.opts.Width)*maxLabelShare)

	left, right := float64(offsetSide), float64(offsetSide)
	if g.visible[Left] {
		left = math.Min(g.labelWidth(ValueGrid(g.mapper, Left))+2*axisPadding, maxLabel)
	}
	if g.visible[Right] {
		right = math.Min(g.labelWidth(ValueGrid(g.mapper, Right))+2*axisPadding, maxLabel)
	}

	canvas := Canvas{
		X:      left,
		Y:      offsetTop,
		Width:  float64(g.opts.Width) - left - right,
		Height: ch,
	}

	if !canvas.Valid() {
		return false
	}

	g.mapper.Canvas = canvas
	g.mapper.From = g.opts.From
	g.mapper.Till = g.opts.Till

	g.scene.Canvas = canvas
	g.scene.Scales = g.mapper.Axes

	return true
}

func (g *Graph) sideUnits(side AxisSide) Units {
	if u := g.axis(side).Units; u != nil {
		return ParseUnits(*u)
	}

	for _, m := range g.opts.Metrics {
		if m.Options.Axis == side {
			return ParseUnits(m.Units)
		}
	}

	return Units{}
}

func (g *Graph) calculateScales(ch float64) {
	rowsMin := maxInt(1, int(ch)/maxRowHeight)
	rowsMax := maxInt(rowsMin, int(ch)/minRowHeight)

	for _, side := range []AxisSide{Left, Right} {
		cfg := g.axis(side)
		min, max := g.dataRange(side)

		calcMin := cfg.Min == nil
		calcMax := cfg.Max == nil
		if !calcMin {
			min = *cfg.Min
		}
		if !calcMax {
			max = *cfg.Max
		}

		// Zero filled gaps must reach the baseline.
		if calcMin && g.zeroFilled[side] && min > 0 {
			min = 0
		}

		lo, hi := rowsMin, rowsMax
		if side == Right && g.used[Left] {
			// Share the gridlines of the left axis.
			lo = g.mapper.Axes[Left].Rows
			hi = lo
		}

		u := g.units[side]
		scale := ComputeScale(min, max, u.Binary, u.AllowPower, calcMin, calcMax, lo, hi)

		f := Formatter{Units: u, Power: scale.Power}
		f.Decimals = decimalsFor(scale.Interval / f.divisor())

		g.mapper.Axes[side] = scale
		g.mapper.Format[side] = f
	}
}

// dataRange returns the extent of the values displayed on one side, or NaN
// if there are none.
func (g *Graph) dataRange(side AxisSide) (min, max float64) {
	min, max = math.NaN(), math.NaN()

	for i, m := range g.opts.Metrics {
		if m.Options.Axis != side {
			continue
		}
		for _, p := range g.window[i] {
			if p.IsNull() {
				continue
			}
			if math.IsNaN(min) || p.Value < min {
				min = p.Value
			}
			if math.IsNaN(max) || p.Value > max {
				max = p.Value
			}
		}
	}

	return
}

func (g *Graph) labelWidth(lines []GridLine) float64 {
	var longest int
	for _, l := range lines {
		if n := len([]rune(l.Label)); n > longest {
			longest = n
		}
	}
	return math.Ceil(float64(longest) * g.theme.FontSize * charWidth)
}

func (g *Graph) calculatePaths() {
	metrics := g.opts.Metrics
	g.lines = make([][]Segment, len(metrics))
	g.marks = make([][]MappedPoint, len(metrics))

	for i, m := range metrics {
		if m.Options.Type == TypeBar {
			continue
		}

		mapped := make([]MappedPoint, 0, len(g.window[i]))
		for _, p := range g.window[i] {
			if mp, ok := g.mapper.MapPoint(p, m.Options); ok {
				mapped = append(mapped, mp)
			}
		}

		if m.Options.Type == TypePoints {
			for _, seg := range BuildSegments(mapped) {
				g.marks[i] = append(g.marks[i], seg...)
			}
			continue
		}

		g.lines[i] = BuildSegments(mapped)
	}

	g.bars = BuildBarGroups(metrics, g.window, g.mapper)

	g.valueGrid[Left] = ValueGrid(g.mapper, Left)
	g.valueGrid[Right] = ValueGrid(g.mapper, Right)
	g.timeGrid = TimeGrid(g.opts.From, g.opts.Till, g.mapper.Canvas, g.loc)

	g.scene.Legend = g.legend()
}

func (g *Graph) legend() []LegendEntry {
	entries := make([]LegendEntry, len(g.opts.Metrics))

	for i, m := range g.opts.Metrics {
		side := m.Options.Axis

		entry := LegendEntry{
			Name:  m.Name,
			Color: g.theme.MetricColor(i, m),
			Side:  side.String(),
		}

		var sum float64
		var n int
		min, max, last := math.Inf(1), math.Inf(-1), math.NaN()

		for _, p := range g.window[i] {
			if p.IsNull() {
				continue
			}
			sum += p.Value
			n++
			min = math.Min(min, p.Value)
			max = math.Max(max, p.Value)
			last = p.Value
		}

		if n > 0 {
			entry.Last = g.mapper.Hint(last, side)
			entry.Min = g.mapper.Hint(min, side)
			entry.Avg = g.mapper.Hint(sum/float64(n), side)
			entry.Max = g.mapper.Hint(max, side)
		}

		entries[i] = entry
	}

	return entries
}

func (g *Graph) add(e Element) {
	g.scene.Elements = append(g.scene.Elements, e)
}

func (g *Graph) drawWorkingTime() {
	if !g.opts.ShowWorkingTime || g.opts.Till-g.opts.From > MaxWorkingTimeWindow {
		return
	}

	c := g.mapper.Canvas

	for _, span := range WorkingTime(g.opts.WorkPeriods, g.opts.From, g.opts.Till, g.loc) {
		x1 := g.mapper.X(span[0], 0)
		x2 := g.mapper.X(span[1], 0)

		g.add(Element{
			Kind:   KindRect,
			Layer:  LayerWorkingTime,
			Class:  "worktime",
			X:      x1,
			Y:      c.Y,
			W:      x2 - x1,
			H:      c.Height,
			Fill:   g.theme.WorkTime,
			Metric: -1,
		})
	}
}

func (g *Graph) drawGrid() {
	c := g.mapper.Canvas

	side := Left
	if !g.visible[Left] && g.visible[Right] {
		side = Right
	}

	for _, l := range g.valueGrid[side] {
		g.add(Element{
			Kind:        KindLine,
			Layer:       LayerGrid,
			Class:       "grid",
			X:           c.X,
			Y:           l.Pos,
			X2:          c.Right(),
			Y2:          l.Pos,
			Stroke:      g.theme.Grid,
			StrokeWidth: 1,
			Dashed:      true,
			Metric:      -1,
		})
	}

	for _, l := range g.timeGrid {
		g.add(Element{
			Kind:        KindLine,
			Layer:       LayerGrid,
			Class:       "grid",
			X:           l.Pos,
			Y:           c.Y,
			X2:          l.Pos,
			Y2:          c.Bottom(),
			Stroke:      g.theme.Grid,
			StrokeWidth: 1,
			Dashed:      true,
			Metric:      -1,
		})
	}
}

func (g *Graph) axisLine(layer Layer, x1, y1, x2, y2 float64) {
	g.add(Element{
		Kind:        KindLine,
		Layer:       layer,
		Class:       "axis",
		X:           x1,
		Y:           y1,
		X2:          x2,
		Y2:          y2,
		Stroke:      g.theme.Axis,
		StrokeWidth: 1,
		Metric:      -1,
	})
}

func (g *Graph) axisLabel(layer Layer, x, y float64, text, anchor string) {
	g.add(Element{
		Kind:   KindText,
		Layer:  layer,
		Class:  "axis-label",
		X:      x,
		Y:      y,
		Text:   text,
		Anchor: anchor,
		Fill:   g.theme.Text,
		Metric: -1,
	})
}

// baseline returns the offset from a label's y to its text baseline.
func (g *Graph) baseline() float64 {
	return g.theme.FontSize / 3
}

func (g *Graph) drawLeftAxis() {
	c := g.mapper.Canvas
	g.axisLine(LayerLeftAxis, c.X, c.Y, c.X, c.Bottom())

	for _, l := range g.valueGrid[Left] {
		g.axisLabel(LayerLeftAxis, c.X-axisPadding, l.Pos+g.baseline(), l.Label, "end")
	}
}

func (g *Graph) drawRightAxis() {
	c := g.mapper.Canvas
	g.axisLine(LayerRightAxis, c.Right(), c.Y, c.Right(), c.Bottom())

	lines := g.valueGrid[Right]
	if g.visible[Left] {
		lines = skipSharedZero(lines, g.mapper)
	}

	for _, l := range lines {
		g.axisLabel(LayerRightAxis, c.Right()+axisPadding, l.Pos+g.baseline(), l.Label, "start")
	}
}

func (g *Graph) drawXAxis() {
	c := g.mapper.Canvas
	g.axisLine(LayerXAxis, c.X, c.Bottom(), c.Right(), c.Bottom())

	for _, l := range g.timeGrid {
		g.axisLabel(LayerXAxis, l.Pos, c.Bottom()+g.theme.FontSize+axisPadding, l.Label, "middle")
	}
}

func (g *Graph) drawLines() {
	for i, m := range g.opts.Metrics {
		if !m.Options.Type.continuous() {
			continue
		}

		color := g.theme.MetricColor(i, m)
		width := float64(maxInt(m.Options.Width, 1))
		zero := g.mapper.ZeroY(m.Options.Axis)

		for _, seg := range g.lines[i] {
			if len(seg) == 1 {
				g.add(Element{
					Kind:   KindCircle,
					Layer:  LayerLines,
					Class:  "metric-point",
					X:      seg[0].X,
					Y:      seg[0].Y,
					R:      width,
					Fill:   color,
					Clip:   true,
					Metric: i,
					Points: seg,
				})
				continue
			}

			shape := seg
			if m.Options.Type == TypeStaircase {
				shape = Staircase(seg)
			}

			d := pathD(shape)

			if m.Options.Fill > 0 {
				first, last := shape[0], shape[len(shape)-1]

				var area strings.Builder
				area.WriteString(d)
				area.WriteString(" L" + formatCoord(last.X) + " " + formatCoord(zero))
				area.WriteString(" L" + formatCoord(first.X) + " " + formatCoord(zero))
				area.WriteString(" Z")

				g.add(Element{
					Kind:        KindPath,
					Layer:       LayerLines,
					Class:       "metric-area",
					D:           area.String(),
					Fill:        color,
					FillOpacity: float64(clamp(m.Options.Fill, 0, 10)) / 10,
					Clip:        true,
					Metric:      i,
				})
			}

			g.add(Element{
				Kind:        KindPath,
				Layer:       LayerLines,
				Class:       "metric-line",
				D:           d,
				Stroke:      color,
				StrokeWidth: width,
				Clip:        true,
				Metric:      i,
				Points:      seg,
			})
		}
	}
}

func (g *Graph) drawPoints() {
	for i, m := range g.opts.Metrics {
		if m.Options.Type != TypePoints {
			continue
		}

		size := m.Options.PointSize
		if size <= 0 {
			size = defaultPointSize
		}

		color := g.theme.MetricColor(i, m)

		for _, p := range g.marks[i] {
			g.add(Element{
				Kind:   KindCircle,
				Layer:  LayerPoints,
				Class:  "metric-point",
				X:      p.X,
				Y:      p.Y,
				R:      float64(size) / 2,
				Fill:   color,
				Clip:   true,
				Metric: i,
				Points: []MappedPoint{p},
			})
		}
	}
}

func (g *Graph) drawBars() {
	for _, group := range g.bars {
		for _, bar := range group.Bars {
			g.add(Element{
				Kind:   KindRect,
				Layer:  LayerBars,
				Class:  "metric-bar",
				X:      bar.X,
				Y:      bar.Y,
				W:      bar.Width,
				H:      bar.Height,
				Fill:   g.theme.MetricColor(bar.Metric, g.opts.Metrics[bar.Metric]),
				Clip:   true,
				Metric: bar.Metric,
				Points: []MappedPoint{{
					X:     bar.X + bar.Width/2,
					Y:     bar.Y,
					Clock: bar.Clock,
					Label: bar.Label,
				}},
			})
		}
	}
}

func (g *Graph) drawProblems() {
	annotations := BuildAnnotations(g.opts.Problems, g.mapper, g.now, g.theme, g.loc)

	for i := range annotations {
		a := annotations[i]

		opacity := 0.2
		if a.DrawType.Has(AnnotationSimple) {
			opacity = 1
		}

		g.add(Element{
			Kind:        KindAnnotation,
			Layer:       LayerProblems,
			Class:       "problem " + a.Info.SeverityClass,
			X:           a.X,
			Y:           a.Y,
			W:           a.Width,
			H:           a.Height,
			Stroke:      a.Info.Color,
			Fill:        a.Info.Color,
			StrokeWidth: 1,
			FillOpacity: opacity,
			Dashed:      a.DrawType&(DashStart|DashEnd) != 0,
			Metric:      -1,
			Annotation:  &a,
		})
	}
}

func (g *Graph) addClipRegion() {
	c := g.mapper.Canvas
	g.add(Element{
		Kind:   KindClip,
		Layer:  LayerClip,
		Class:  ClipID,
		X:      c.X,
		Y:      c.Y,
		W:      c.Width,
		H:      c.Height,
		Metric: -1,
	})
}

func pathD(seg Segment) string {
	var b strings.Builder
	b.Grow(len(seg) * 16)

	for i, p := range seg {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteByte('L')
		} else {
			b.WriteByte('M')
		}

		b.WriteString(formatCoord(p.X))
		b.WriteByte(' ')
		b.WriteString(formatCoord(p.Y))
	}

	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
