package storage

import (
	"fmt"
	"io"
	"math"
	"strings"
)

var linkColors = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff1493", "#ffff00", "#9370db"}

// WriteSVG draws the side view (x against z) of every link's path in the
// trajectory, one coloured polyline per link, on a shared scale.
func WriteSVG(w io.Writer, tr *Trajectory, width, height int) error {
	type path struct{ x, z []float64 }
	var paths []path
	for i := 0; ; i++ {
		x, okX := tr.Column(fmt.Sprintf("link%d_px", i))
		z, okZ := tr.Column(fmt.Sprintf("link%d_pz", i))
		if !okX || !okZ {
			break
		}
		paths = append(paths, path{x, z})
	}
	if len(paths) == 0 || len(tr.Rows) < 2 {
		return fmt.Errorf("trajectory has no link positions to draw")
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, p := range paths {
		for i := range p.x {
			minX, maxX = min(minX, p.x[i]), max(maxX, p.x[i])
			minZ, maxZ = min(minZ, p.z[i]), max(maxZ, p.z[i])
		}
	}
	// equal axis scale keeps circles round
	span := max(maxX-minX, maxZ-minZ)
	if span == 0 {
		span = 1
	}
	pad := span * 0.1
	minX -= pad
	minZ -= pad
	span += 2 * pad
	scale := math.Min(float64(width), float64(height)) / span

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for li, p := range paths {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, linkColors[li%len(linkColors)])
		for i := range p.x {
			x := (p.x[i] - minX) * scale
			y := float64(height) - (p.z[i]-minZ)*scale
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
