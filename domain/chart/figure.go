package chart

// Figure is the declarative trace/layout structure handed to the plotting
// library. Field names follow the Plotly JSON schema.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Config Config  `json:"config"`
}

// Trace is one plotted series
type Trace struct {
	Type    string    `json:"type"`
	Name    string    `json:"name,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	X       []float64 `json:"x,omitempty"`
	Y       []float64 `json:"y,omitempty"`
	Fill    string    `json:"fill,omitempty"`
	Opacity float64   `json:"opacity,omitempty"`
	Marker  *Marker   `json:"marker,omitempty"`
	Line    *Line     `json:"line,omitempty"`
}

// Marker styles the points or bars of a trace
type Marker struct {
	Color string `json:"color,omitempty"`
	Line  *Line  `json:"line,omitempty"`
}

// Line styles a stroke
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
	Dash  string  `json:"dash,omitempty"`
}

// Layout holds the plot-wide presentation
type Layout struct {
	PaperBGColor string `json:"paper_bgcolor"`
	PlotBGColor  string `json:"plot_bgcolor"`
	Font         Font   `json:"font"`
	Margin       Margin `json:"margin"`
	ShowLegend   bool   `json:"showlegend"`
	XAxis        Axis    `json:"xaxis"`
	YAxis        Axis    `json:"yaxis"`
	Shapes       []Shape `json:"shapes,omitempty"`
}

// Shape is a line drawn over the plot area. XRef "paper" spans the whole
// width with X0=0 and X1=1; XRef "x" on a category axis places X0..X1 by
// category index.
type Shape struct {
	Type string  `json:"type"`
	Name string  `json:"name,omitempty"`
	XRef string  `json:"xref"`
	YRef string  `json:"yref"`
	X0   float64 `json:"x0"`
	X1   float64 `json:"x1"`
	Y0   float64 `json:"y0"`
	Y1   float64 `json:"y1"`
	Line *Line   `json:"line,omitempty"`
}

// Font is the layout font
type Font struct {
	Color  string `json:"color"`
	Size   int    `json:"size"`
	Family string `json:"family"`
}

// Margin is the plot margin in pixels
type Margin struct {
	T int `json:"t"`
	B int `json:"b"`
	L int `json:"l"`
	R int `json:"r"`
}

// Axis styles one axis
type Axis struct {
	GridColor string `json:"gridcolor"`
	ZeroLine  bool   `json:"zeroline"`
}

// Config holds the plotting call options
type Config struct {
	Responsive     bool `json:"responsive"`
	DisplayModeBar bool `json:"displayModeBar"`
}

// IsEmpty reports whether the figure draws nothing
func (f Figure) IsEmpty() bool {
	return len(f.Data) == 0 && len(f.Layout.Shapes) == 0
}
