package index

import (
	"encoding/json"
	"fmt"
)

// formatVersion guards the on-disk envelope. Bump it when the layout
// changes; old artifacts then fail to load and the cache rebuilds.
const formatVersion = 1

type envelope struct {
	FormatVersion int     `json:"format_version"`
	ModelID       string  `json:"model_id"`
	Dimension     int     `json:"dimension"`
	Entries       []Entry `json:"entries"`
}

// Serialize encodes the index into a versioned byte envelope.
func (idx *Index) Serialize() ([]byte, error) {
	env := envelope{
		FormatVersion: formatVersion,
		ModelID:       idx.modelID,
		Dimension:     idx.dim,
		Entries:       idx.entries,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("index: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes an index produced by Serialize. The round-trip
// contract holds: the restored index answers any search identically to the
// original within floating-point tolerance.
func Deserialize(data []byte) (*Index, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("index: deserialize: %w", err)
	}
	if env.FormatVersion != formatVersion {
		return nil, fmt.Errorf("index: unsupported format version %d", env.FormatVersion)
	}
	if len(env.Entries) == 0 {
		return nil, fmt.Errorf("index: artifact holds no entries")
	}
	for _, e := range env.Entries {
		if len(e.Vector) != env.Dimension {
			return nil, fmt.Errorf("index: entry %d dimension %d, want %d", e.NodeID, len(e.Vector), env.Dimension)
		}
	}
	// Entries were normalized and sorted before serialization, so they can
	// be adopted as-is.
	return &Index{dim: env.Dimension, modelID: env.ModelID, entries: env.Entries}, nil
}
