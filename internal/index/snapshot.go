package index

import (
	"encoding/json"
	"fmt"
	"os"

	"clausecheck/internal/util"
)

const snapshotVersion = 1

type snapshot struct {
	Version int           `json:"version"`
	Dim     int           `json:"dim"`
	NextSeq int64         `json:"next_seq"`
	Entries []storedEntry `json:"entries"`
}

// SaveFile writes the full index state to path atomically.
func (m *Memory) SaveFile(path string) error {
	m.mu.RLock()
	snap := snapshot{
		Version: snapshotVersion,
		Dim:     m.dim,
		NextSeq: m.nextSeq,
		Entries: make([]storedEntry, len(m.entries)),
	}
	copy(snap.Entries, m.entries)
	m.mu.RUnlock()
	return util.WriteJSONAtomic(path, snap)
}

// LoadFile replaces the index contents with a snapshot previously
// written by SaveFile. The snapshot dimension must match.
func (m *Memory) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read index snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Dim != m.dim {
		return fmt.Errorf("%w: snapshot dimension %d, index expects %d",
			ErrDimensionMismatch, snap.Dim, m.dim)
	}
	m.mu.Lock()
	m.entries = snap.Entries
	m.nextSeq = snap.NextSeq
	m.mu.Unlock()
	return nil
}
