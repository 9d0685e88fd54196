package analysis

import (
	"fmt"
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds data for a 2D phase space plot
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []Point
}

// NewPhasePortrait pairs two equally long signals, typically a coordinate
// and its velocity.
func NewPhasePortrait(xLabel string, x []float64, yLabel string, y []float64) (*PhasePortrait, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("phase portrait: %s has %d samples, %s has %d", xLabel, len(x), yLabel, len(y))
	}
	p := &PhasePortrait{XLabel: xLabel, YLabel: yLabel, Points: make([]Point, len(x))}
	for i := range x {
		p.Points[i] = Point{X: x[i], Y: y[i]}
	}
	return p, nil
}

// NewPoincareSection records (x, y) where cross passes upwards through
// level, linearly interpolated between the bracketing samples.
func NewPoincareSection(cross []float64, level float64, xLabel string, x []float64, yLabel string, y []float64) (*PhasePortrait, error) {
	if len(cross) != len(x) || len(x) != len(y) {
		return nil, fmt.Errorf("poincare section: signal lengths differ")
	}
	p := &PhasePortrait{XLabel: xLabel, YLabel: yLabel}
	for i := 1; i < len(cross); i++ {
		prev, curr := cross[i-1], cross[i]
		if prev >= level || curr < level {
			continue
		}
		frac := (level - prev) / (curr - prev)
		p.Points = append(p.Points, Point{
			X: x[i-1] + frac*(x[i]-x[i-1]),
			Y: y[i-1] + frac*(y[i]-y[i-1]),
		})
	}
	return p, nil
}

// ASCII draws the points on a width x height character grid with axes
// where they cross the visible area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if len(p.Points) == 0 {
		return "no points\n"
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (vertical) vs %s (horizontal)\n", p.YLabel, p.XLabel)
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
