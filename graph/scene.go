package graph

// Layer is the stage of the draw that emitted an element. Elements are
// ordered by layer.
type Layer uint8

const (
	LayerWorkingTime Layer = iota
	LayerGrid
	LayerLeftAxis
	LayerRightAxis
	LayerXAxis
	LayerLines
	LayerPoints
	LayerBars
	LayerProblems
	LayerClip
)

var layerNames = []string{
	"worktime", "grid", "left-axis", "right-axis", "x-axis",
	"lines", "points", "bars", "problems", "clip",
}

func (l Layer) String() string {
	if int(l) < len(layerNames) {
		return layerNames[l]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (l Layer) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Kind is the primitive type of an element.
type Kind uint8

const (
	KindRect Kind = iota
	KindLine
	KindPath
	KindCircle
	KindText
	KindAnnotation
	KindClip
)

var kindNames = []string{"rect", "line", "path", "circle", "text", "annotation", "clip"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ClipID is the identifier of the plot area clip region.
const ClipID = "svg-graph-clip"

// Element is a single vector primitive. Which fields are meaningful depends on
// Kind:
//
//	rect, clip, annotation: X, Y, W, H
//	line:                   X, Y, X2, Y2
//	path:                   D
//	circle:                 X, Y, R
//	text:                   X, Y, Text, Anchor
type Element struct {
	Kind  Kind   `json:"kind"`
	Layer Layer  `json:"layer"`
	Class string `json:"class,omitempty"`

	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	W  float64 `json:"w,omitempty"`
	H  float64 `json:"h,omitempty"`
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`
	R  float64 `json:"r,omitempty"`

	D      string `json:"d,omitempty"`
	Text   string `json:"text,omitempty"`
	Anchor string `json:"anchor,omitempty"`

	Stroke      string  `json:"stroke,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	FillOpacity float64 `json:"fill_opacity,omitempty"`
	Dashed      bool    `json:"dashed,omitempty"`
	// Clip is true for elements that must be clipped to the plot area.
	Clip bool `json:"clip,omitempty"`

	// Metric is the index of the metric drawn by the element, or -1.
	Metric int `json:"metric"`
	// Points are the value hints of a line or point element.
	Points     []MappedPoint `json:"points,omitempty"`
	Annotation *Annotation   `json:"annotation,omitempty"`
}

// LegendEntry summarizes one metric over the window.
type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Side  string `json:"side"`
	Last  string `json:"last"`
	Min   string `json:"min"`
	Avg   string `json:"avg"`
	Max   string `json:"max"`
}

// Scene is the output of a render. An empty Elements list is a valid scene.
type Scene struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Background string        `json:"background"`
	FontSize   float64       `json:"font_size"`
	Canvas     Canvas        `json:"canvas"`
	Scales     [2]Scale      `json:"scales"`
	Legend     []LegendEntry `json:"legend,omitempty"`
	Elements   []Element     `json:"elements"`
}

// Shapes returns the number of elements in the scene.
func (s *Scene) Shapes() int { return len(s.Elements) }

// Layer returns the elements of one layer, in draw order.
func (s *Scene) Layer(l Layer) []Element {
	var elems []Element
	for _, e := range s.Elements {
		if e.Layer == l {
			elems = append(elems, e)
		}
	}
	return elems
}
