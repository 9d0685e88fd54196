package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/rigidsim/internal/rollout"
)

// Header names the CSV columns for a trajectory of the given shape:
// time, q, qd, then per link position, quaternion (w first), linear and
// angular velocity, then actions.
func Header(qSize, qdSize, links, actions int) []string {
	h := []string{"time"}
	for i := 0; i < qSize; i++ {
		h = append(h, fmt.Sprintf("q%d", i))
	}
	for i := 0; i < qdSize; i++ {
		h = append(h, fmt.Sprintf("qd%d", i))
	}
	for i := 0; i < links; i++ {
		for _, c := range []string{"px", "py", "pz", "qw", "qx", "qy", "qz", "vx", "vy", "vz", "wx", "wy", "wz"} {
			h = append(h, fmt.Sprintf("link%d_%s", i, c))
		}
	}
	for i := 0; i < actions; i++ {
		h = append(h, fmt.Sprintf("u%d", i))
	}
	return h
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per recorded state. The action column holds the
// action that produced the state; the initial row has zeros.
func WriteCSV(w io.Writer, result *rollout.Result) error {
	cw := csv.NewWriter(w)
	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	first := result.States[0]
	numActions := 0
	if len(result.Actions) > 0 {
		numActions = len(result.Actions[0])
	}
	if err := cw.Write(Header(len(first.Q), len(first.Qd), len(first.X), numActions)); err != nil {
		return err
	}

	for i, st := range result.States {
		row := []string{format(result.Times[i])}
		for _, v := range st.Q {
			row = append(row, format(v))
		}
		for _, v := range st.Qd {
			row = append(row, format(v))
		}
		for k := range st.X {
			x, xd := st.X[k], st.Xd[k]
			vals := []float64{
				x.Pos[0], x.Pos[1], x.Pos[2],
				x.Rot.W, x.Rot.V[0], x.Rot.V[1], x.Rot.V[2],
				xd.Vel[0], xd.Vel[1], xd.Vel[2],
				xd.Ang[0], xd.Ang[1], xd.Ang[2],
			}
			for _, v := range vals {
				row = append(row, format(v))
			}
		}
		for j := 0; j < numActions; j++ {
			v := 0.0
			if i > 0 && i-1 < len(result.Actions) {
				v = result.Actions[i-1][j]
			}
			row = append(row, format(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Trajectory is a trajectory read back from CSV.
type Trajectory struct {
	Header []string
	Times  []float64
	Rows   [][]float64
}

func ReadCSV(r io.Reader) (*Trajectory, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Trajectory{}, nil
	}

	tr := &Trajectory{
		Header: records[0],
		Times:  make([]float64, 0, len(records)-1),
		Rows:   make([][]float64, 0, len(records)-1),
	}
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, tr.Header[j], err)
			}
			row[j] = v
		}
		tr.Times = append(tr.Times, row[0])
		tr.Rows = append(tr.Rows, row)
	}
	return tr, nil
}

// Column returns the named column, or false if it does not exist.
func (t *Trajectory) Column(name string) ([]float64, bool) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[idx]
	}
	return col, true
}

type linkState struct {
	Pos [3]float64 `json:"pos"`
	Rot [4]float64 `json:"rot"`
	Vel [3]float64 `json:"vel"`
	Ang [3]float64 `json:"ang"`
}

type stateData struct {
	Q     []float64   `json:"q"`
	Qd    []float64   `json:"qd"`
	Links []linkState `json:"links"`
}

type ExportData struct {
	Run     *RunMetadata       `json:"run,omitempty"`
	Times   []float64          `json:"times"`
	States  []stateData        `json:"states"`
	Actions [][]float64        `json:"actions"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExportJSON writes the full result, with optional run metadata, as
// indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, result *rollout.Result) error {
	data := ExportData{
		Run:     meta,
		Times:   result.Times,
		States:  make([]stateData, len(result.States)),
		Actions: result.Actions,
		Metrics: result.Metrics,
	}
	for i, st := range result.States {
		sd := stateData{Q: st.Q, Qd: st.Qd, Links: make([]linkState, len(st.X))}
		for k := range st.X {
			x, xd := st.X[k], st.Xd[k]
			sd.Links[k] = linkState{
				Pos: x.Pos,
				Rot: [4]float64{x.Rot.W, x.Rot.V[0], x.Rot.V[1], x.Rot.V[2]},
				Vel: xd.Vel,
				Ang: xd.Ang,
			}
		}
		data.States[i] = sd
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
