// Package charts builds plot-ready figure payloads from a grade table.
//
// Figures follow the plotly {data, layout} shape so a browser can hand them
// straight to Plotly.newPlot. Every builder returns an empty figure, which
// marshals as {"data":[],"layout":{}}, when there is nothing to draw.
package charts

import (
	"math"

	"github.com/JonMunkholm/gradebook/internal/analytics"
	"github.com/JonMunkholm/gradebook/internal/grading"
)

// Figure is a plotly figure.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Empty returns a figure with no traces and no layout.
func Empty() Figure {
	return Figure{Data: []Trace{}}
}

// IsEmpty reports whether the figure has no traces.
func (f Figure) IsEmpty() bool {
	return len(f.Data) == 0
}

// Trace is one plotly trace. Only the attributes used here are modelled.
type Trace struct {
	Type         string    `json:"type"`
	Name         string    `json:"name,omitempty"`
	X            any       `json:"x,omitempty"`
	Y            any       `json:"y,omitempty"`
	Z            any       `json:"z,omitempty"`
	Text         any       `json:"text,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	TextPosition string    `json:"textposition,omitempty"`
	TextTemplate string    `json:"texttemplate,omitempty"`
	NBinsX       int       `json:"nbinsx,omitempty"`
	Opacity      float64   `json:"opacity,omitempty"`
	ColorScale   string    `json:"colorscale,omitempty"`
	BoxMean      string    `json:"boxmean,omitempty"`
	Marker       *Marker   `json:"marker,omitempty"`
	Line         *Line     `json:"line,omitempty"`
	ColorBar     *ColorBar `json:"colorbar,omitempty"`
	TextFont     *TextFont `json:"textfont,omitempty"`
}

// Marker styles trace points or bars.
type Marker struct {
	Color string `json:"color,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// Line styles a scatter line.
type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width,omitempty"`
}

// ColorBar labels a heatmap scale.
type ColorBar struct {
	Title string `json:"title,omitempty"`
}

// TextFont sizes in-cell text.
type TextFont struct {
	Size int `json:"size,omitempty"`
}

// Layout is the plotly layout subset used by the dashboard.
type Layout struct {
	Title     string `json:"title,omitempty"`
	XAxis     *Axis  `json:"xaxis,omitempty"`
	YAxis     *Axis  `json:"yaxis,omitempty"`
	Template  string `json:"template,omitempty"`
	HoverMode string `json:"hovermode,omitempty"`
}

// Axis configures one axis.
type Axis struct {
	Title     string    `json:"title,omitempty"`
	TickAngle int       `json:"tickangle,omitempty"`
	Range     []float64 `json:"range,omitempty"`
}

// Options carry presentation settings shared by all builders.
type Options struct {
	// Grading, when set, fixes the grade axis to the system's scale.
	Grading *grading.System

	// TopN bounds the student comparison (default 10).
	TopN int

	// Period buckets the trend figure (default month).
	Period analytics.Period
}

func (o Options) period() analytics.Period {
	if o.Period == "" {
		return analytics.PeriodMonth
	}
	return o.Period
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return 10
	}
	return o.TopN
}

// gradeAxis returns a y axis titled title, ranged by the grading system.
func (o Options) gradeAxis(title string) *Axis {
	ax := &Axis{Title: title}
	if o.Grading != nil {
		min, max := o.Grading.Scale()
		ax.Range = []float64{min, max}
	}
	return ax
}

const plotTemplate = "plotly_white"

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
