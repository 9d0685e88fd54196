package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/san-kum/rigidsim/internal/positional"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/system"
)

func TestWriteSVG(t *testing.T) {
	sys, err := system.Fixture("double_pendulum")
	if err != nil {
		t.Fatal(err)
	}
	result, err := rollout.New(positional.New(), sys, nil).
		Run(context.Background(), []float64{0.5, -0.2}, []float64{0, 0}, 20)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		t.Fatal(err)
	}
	tr, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := WriteSVG(&out, tr, 400, 300); err != nil {
		t.Fatalf("svg failed: %v", err)
	}
	svg := out.String()
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("malformed svg document:\n%s", svg)
	}
	if got := strings.Count(svg, "<path "); got != 2 {
		t.Errorf("expected one path per link, got %d", got)
	}
	if got := strings.Count(svg, " L"); got != 2*20 {
		t.Errorf("expected 20 segments per path, got %d", got)
	}
}

func TestWriteSVGRejectsEmpty(t *testing.T) {
	tr := &Trajectory{Header: []string{"time", "q0"}, Rows: [][]float64{{0, 1}, {1, 2}}}
	if err := WriteSVG(&bytes.Buffer{}, tr, 100, 100); err == nil {
		t.Error("expected error for trajectory without link columns")
	}
}
