package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed snapshot.json
var snapshotJSON []byte

// snapshotFile is the on-disk shape of the bundled snapshot: the versioned
// vehicle list plus an id→main-image map maintained separately by the
// snapshot collector.
type snapshotFile struct {
	Version   string            `json:"version"`
	Vehiculos []RawRecord       `json:"vehiculos"`
	Imagenes  map[string]string `json:"imagenes"`
}

// StaticSource serves the bundled, read-only snapshot. Records are
// normalized once at construction; FetchAll hands out fresh copies so
// callers can never mutate the snapshot.
type StaticSource struct {
	vehicles []Vehicle
}

// NewStaticSource parses the embedded snapshot.
func NewStaticSource() (*StaticSource, error) {
	return NewStaticSourceFromJSON(snapshotJSON)
}

// NewStaticSourceFromJSON builds a StaticSource from snapshot-shaped JSON.
// The declared record order is preserved; it is the tie-break order for
// static listings.
func NewStaticSourceFromJSON(data []byte) (*StaticSource, error) {
	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse snapshot: %w", err)
	}

	vehicles := NormalizeAll(f.Vehiculos)
	for i := range vehicles {
		if len(vehicles[i].Images) == 0 {
			if url, ok := f.Imagenes[vehicles[i].ID]; ok && url != "" {
				vehicles[i].Images = []string{url}
			}
		}
	}
	return &StaticSource{vehicles: vehicles}, nil
}

// Name implements Source.
func (s *StaticSource) Name() string { return "static" }

// FetchAll implements Source.
func (s *StaticSource) FetchAll(_ context.Context) ([]Vehicle, error) {
	out := make([]Vehicle, len(s.vehicles))
	copy(out, s.vehicles)
	return out, nil
}
