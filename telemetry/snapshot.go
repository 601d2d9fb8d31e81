package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sugawarayuuta/sonnet"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/flock"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// Snapshot holds the flock state at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    int64  `json:"seed"`
	Tick    int32  `json:"tick"`
	Mode    string `json:"mode"`

	Params     flock.Params `json:"params"`
	CellRadius float64      `json:"cell_radius"`
	Targets    []r3.Vec     `json:"targets"`
	Obstacles  []r3.Vec     `json:"obstacles"`
	Agents     []AgentState `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentState is one agent's position and unit heading.
type AgentState struct {
	Position r3.Vec `json:"position"`
	Heading  r3.Vec `json:"heading"`
}

// CaptureAgents converts a population into snapshot form.
func CaptureAgents(agents []flock.Agent) []AgentState {
	out := make([]AgentState, len(agents))
	for i, a := range agents {
		out[i] = AgentState{Position: a.Position, Heading: a.Heading}
	}
	return out
}

// Population rebuilds the agents stored in the snapshot.
func (s *Snapshot) Population() []flock.Agent {
	out := make([]flock.Agent, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = flock.Agent{Position: a.Position, Heading: a.Heading}
	}
	return out
}

// CompareInterests reports whether targets and obstacles sit where the
// snapshot recorded them, within tol. A replay whose scene moved differently
// cannot be compared agent by agent.
func (s *Snapshot) CompareInterests(targets, obstacles []r3.Vec, tol float64) error {
	if err := comparePoints("target", s.Targets, targets, tol); err != nil {
		return err
	}
	return comparePoints("obstacle", s.Obstacles, obstacles, tol)
}

func comparePoints(kind string, want, got []r3.Vec, tol float64) error {
	if len(want) != len(got) {
		return fmt.Errorf("%s count %d, snapshot has %d", kind, len(got), len(want))
	}
	for i := range want {
		if d := r3.Norm(r3.Sub(want[i], got[i])); !(d <= tol) {
			return fmt.Errorf("%s %d is %.3g from the snapshot position", kind, i, d)
		}
	}
	return nil
}

// SaveSnapshot writes a zstd-compressed JSON snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json.zst"

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("zstd writer: %w", err)
	}
	data, err := sonnet.Marshal(snapshot)
	if err != nil {
		enc.Close()
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk. Files ending in .zst are
// decompressed; anything else is read as plain JSON.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := sonnet.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
