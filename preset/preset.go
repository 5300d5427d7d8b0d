// Package preset stores combbank.Snapshot parameter sets as JSON files and
// as a compact binary state blob for plugin hosts.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
)

// Version is the preset format version written by this package.
const Version = 1

// Preset is a named parameter set as stored on disk.
type Preset struct {
	Version int    `json:"version"`
	Name    string `json:"name,omitempty"`
	combbank.Snapshot
}

// New wraps s into a preset with the current version.
func New(name string, s combbank.Snapshot) Preset {
	return Preset{Version: Version, Name: name, Snapshot: s.Clone()}
}

// Default returns the factory preset of a default-sized bank.
func Default() Preset {
	return New("default", combbank.DefaultSnapshot(comb.DefaultSlots))
}

// Decode reads one JSON preset from r. Top-level fields that are omitted
// keep their factory values; an omitted slot list yields the default slots.
// Unknown fields are rejected.
func Decode(r io.Reader) (Preset, error) {
	p := Preset{Snapshot: combbank.DefaultSnapshot(0)}
	p.Slots = nil

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("preset: decode: %w", err)
	}

	if p.Version == 0 {
		p.Version = Version
	}
	if p.Version > Version {
		return Preset{}, fmt.Errorf("preset: version %d is newer than supported version %d", p.Version, Version)
	}
	if len(p.Slots) == 0 {
		p.Slots = combbank.DefaultSnapshot(comb.DefaultSlots).Slots
	}
	if err := p.Validate(); err != nil {
		return Preset{}, fmt.Errorf("preset: %w", err)
	}
	return p, nil
}

// Encode writes p to w as indented JSON.
func Encode(w io.Writer, p Preset) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	if p.Version == 0 {
		p.Version = Version
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}
	return nil
}

// Load reads a JSON preset file.
func Load(path string) (Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("preset: %w", err)
	}
	return Decode(bytes.NewReader(b))
}

// Save writes p to path as JSON, replacing any existing file.
func Save(path string, p Preset) error {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	return nil
}
