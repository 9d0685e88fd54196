package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"

	// characters per metre; terminal cells are about twice as tall as wide
	scaleX = 10.0
	scaleZ = 5.0
)

type point struct{ x, y int }

// LiveRenderer draws a side view (X right, Z up) of the links while a
// rollout runs. It implements rollout.Observer.
type LiveRenderer struct {
	name      string
	sys       *system.System
	out       io.Writer
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	trail     []point
	floor     bool
}

// NewLiveRenderer writes frames to out at most frameRate times per
// second. A frameRate of zero draws every step.
func NewLiveRenderer(name string, sys *system.System, out io.Writer, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	floor := false
	for i := 0; i < sys.NumGeometries(); i++ {
		if sys.Geometry(i).Shape == system.Plane {
			floor = true
		}
	}
	return &LiveRenderer{
		name:      name,
		sys:       sys,
		out:       out,
		frameRate: frameRate,
		canvas:    canvas,
		trail:     make([]point, 0, 50),
		floor:     floor,
	}
}

func (r *LiveRenderer) OnStep(step int, st *pipeline.State, u []float64, t float64) {
	if r.frameRate > 0 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
			return
		}
		r.lastFrame = time.Now()
	}
	fmt.Fprint(r.out, clearScreen+r.Frame(st, t))
}

// project maps world coordinates to a canvas cell. The origin sits in
// the middle column, a third of the way down, or on the floor row when
// the system has a ground plane.
func (r *LiveRenderer) project(p mgl64.Vec3) point {
	oy := height / 3
	if r.floor {
		oy = height - 3
	}
	return point{
		x: width/2 + int(math.Round(p[0]*scaleX)),
		y: oy - int(math.Round(p[2]*scaleZ)),
	}
}

// Frame renders st without writing it anywhere.
func (r *LiveRenderer) Frame(st *pipeline.State, t float64) string {
	r.clear()

	if r.floor {
		row := r.project(mgl64.Vec3{}).y + 1
		for i := 2; i < width-2; i++ {
			r.set(i, row, '=')
		}
	}

	n := r.sys.NumLinks()
	for i := 0; i < n; i++ {
		l := r.sys.Link(i)
		com := r.project(st.X[i].Pos)
		if l.Joint.Type != system.Free {
			parent := spatial.Identity()
			if l.Parent != system.World {
				parent = st.X[l.Parent]
			}
			base := r.project(parent.Apply(l.Joint.ParentAnchor))
			r.line(base.x, base.y, com.x, com.y, '|')
			if l.Parent == system.World {
				r.set(base.x, base.y, '+')
			}
		}
		r.set(com.x, com.y, 'O')
	}

	if n > 0 {
		tip := r.project(st.X[n-1].Pos)
		r.trail = append(r.trail, tip)
		if len(r.trail) > 40 {
			r.trail = r.trail[1:]
		}
		for _, pt := range r.trail[:len(r.trail)-1] {
			if r.get(pt.x, pt.y) == ' ' {
				r.set(pt.x, pt.y, '.')
			}
		}
	}

	return r.render(st, t)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) get(x, y int) rune {
	if x >= 0 && x < width && y >= 0 && y < height {
		return r.canvas[y][x]
	}
	return 0
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *LiveRenderer) render(st *pipeline.State, t float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s  t=%.3fs\n", r.name, t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	stateStr := "  "
	for i, v := range st.Q {
		if i >= 6 {
			break
		}
		stateStr += fmt.Sprintf("q%d=%.2f ", i, v)
	}
	b.WriteString(stateStr + "\n")
	return b.String()
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
