// Package layout turns column and task collections into canvas geometry.
// Every function is pure: identical input always yields identical output.
package layout

import "errors"

// Metrics holds the pixel constants the layout is computed with.
type Metrics struct {
	ColumnWidth     float64
	ColumnGap       float64
	HeaderHeight    float64
	Padding         float64
	TaskHeight      float64
	TaskGap         float64
	AddButtonHeight float64
	MinColumnHeight float64

	NodeWidth  float64
	NodeHeight float64
	SiblingGap float64
	LevelGap   float64
	RootGap    float64
}

// DefaultMetrics returns the board's stock geometry.
func DefaultMetrics() Metrics {
	return Metrics{
		ColumnWidth:     300,
		ColumnGap:       20,
		HeaderHeight:    60,
		Padding:         16,
		TaskHeight:      110,
		TaskGap:         12,
		AddButtonHeight: 50,
		MinColumnHeight: 200,

		NodeWidth:  192,
		NodeHeight: 96,
		SiblingGap: 16,
		LevelGap:   48,
		RootGap:    64,
	}
}

// Validate rejects metrics that cannot produce a usable layout.
func (m Metrics) Validate() error {
	if m.ColumnWidth <= 2*m.Padding {
		return errors.New("layout.column_width must exceed twice layout.padding")
	}
	if m.TaskHeight <= 0 || m.NodeWidth <= 0 || m.NodeHeight <= 0 {
		return errors.New("layout task and node sizes must be > 0")
	}
	if m.ColumnGap < 0 || m.HeaderHeight < 0 || m.Padding < 0 || m.TaskGap < 0 ||
		m.AddButtonHeight < 0 || m.MinColumnHeight < 0 ||
		m.SiblingGap < 0 || m.LevelGap < 0 || m.RootGap < 0 {
		return errors.New("layout gaps and paddings must be >= 0")
	}
	return nil
}

// TaskWidth is the width of every task card inside a column of the given width.
func (m Metrics) TaskWidth(columnWidth float64) float64 {
	return columnWidth - 2*m.Padding
}

// ColumnHeight sums header, paddings, stacked task heights and the add button,
// floored at the minimum column height.
func (m Metrics) ColumnHeight(taskHeights []float64) float64 {
	h := m.HeaderHeight + m.Padding
	for _, th := range taskHeights {
		h += th + m.TaskGap
	}
	h += m.Padding + m.AddButtonHeight
	return max(h, m.MinColumnHeight)
}

// NextColumnX is where a column appended after last is placed.
func (m Metrics) NextColumnX(last Rect) float64 {
	return last.X + last.Width + m.ColumnGap
}
