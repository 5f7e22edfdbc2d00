package stage

import (
	"encoding/json"
	"fmt"
	"os"
)

// Project is the on-disk starting state of a stage.
type Project struct {
	Version int      `json:"version"`
	Sprites []Sprite `json:"sprites"`
}

// LoadProject loads a project from a JSON file.
// Sprites without a direction face right, like freshly added ones.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var raw struct {
		Version int               `json:"version"`
		Sprites []json.RawMessage `json:"sprites"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project JSON: %w", err)
	}

	if raw.Version != 1 {
		return nil, fmt.Errorf("unsupported project version: %d", raw.Version)
	}

	p := &Project{Version: raw.Version}
	for i, msg := range raw.Sprites {
		var sp Sprite
		if err := json.Unmarshal(msg, &sp); err != nil {
			return nil, fmt.Errorf("failed to parse sprites[%d]: %w", i, err)
		}
		var probe struct {
			Direction *float64 `json:"direction"`
		}
		if err := json.Unmarshal(msg, &probe); err == nil && probe.Direction == nil {
			sp.Direction = DefaultDirection
		}
		p.Sprites = append(p.Sprites, sp)
	}

	return p, nil
}
