package models

// ChartLineType is the rendering kind declared for a chart column.
type ChartLineType string

// ChartLineType constants mirror the values used by the stats graph payload.
const (
	ChartLineLine  ChartLineType = "line"
	ChartLineStep  ChartLineType = "step"
	ChartLineBar   ChartLineType = "bar"
	ChartLineArea  ChartLineType = "area"
	ChartLinePie   ChartLineType = "pie"
	ChartLineOther ChartLineType = ""
)

// ChartLine is one value column of a chart.
type ChartLine struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Type            ChartLineType `json:"type"`
	Color           string        `json:"color,omitempty"`
	ColorKey        string        `json:"color_key,omitempty"`
	Values          []int64       `json:"values"`
	MinValue        int64         `json:"min_value"`
	MaxValue        int64         `json:"max_value"`
	IsHiddenOnStart bool          `json:"hidden_on_start,omitempty"`
}

// StatisticalChart is a decoded stats graph.
type StatisticalChart struct {
	X            []int64     `json:"x"`
	Lines        []ChartLine `json:"lines"`
	TimeStep     int64       `json:"time_step"`
	MinValue     int64       `json:"min_value"`
	MaxValue     int64       `json:"max_value"`
	Percentage   bool        `json:"percentage,omitempty"`
	Stacked      bool        `json:"stacked,omitempty"`
	YScaled      bool        `json:"y_scaled,omitempty"`
	HasZoom      bool        `json:"has_zoom,omitempty"`
	DefaultZoomX [2]int64    `json:"default_zoom_x,omitempty"`
}

// IsEmpty reports whether the chart has no points.
func (c StatisticalChart) IsEmpty() bool {
	return len(c.X) == 0 || len(c.Lines) == 0
}
