// Package metadata loads the static comparippson entry metadata (spec
// §3 "Static metadata", §6) once at process startup.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is one record from the metadata file, looked up by the
// substring of a subject accession preceding its first '|'. RecordStart
// and RecordEnd are carried as raw JSON (spec.md §8 gives them as plain
// numbers, e.g. start:1, end:99) rather than decoded into a concrete Go
// type, so they round-trip into ComparippsonResult in whatever shape
// they were read in.
type Entry struct {
	Locus       string          `json:"locus"`
	Type        string          `json:"type"`
	Accession   string          `json:"accession"`
	RecordStart json.RawMessage `json:"start"`
	RecordEnd   json.RawMessage `json:"end"`
}

type file struct {
	Entries map[string]Entry `json:"entries"`
}

// Metadata is the immutable key->entry mapping used by comparippson
// enrichment (spec §4.5).
type Metadata struct {
	entries map[string]Entry
}

// Path returns the well-known metadata file location under a database
// directory (spec §6).
func Path(dbDir string) string {
	return filepath.Join(dbDir, "comparippson", "asdb", "3.9", "metadata.json")
}

// Load reads and parses the metadata file once. It is not reloaded
// during the process lifetime.
func Load(dbDir string) (*Metadata, error) {
	path := Path(dbDir)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file %s: %w", path, err)
	}

	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse metadata file %s: %w", path, err)
	}

	return &Metadata{entries: f.Entries}, nil
}

// New builds a Metadata from an already-decoded entry map, bypassing
// Load. Used by tests and by any future caller that assembles entries
// from something other than the on-disk file.
func New(entries map[string]Entry) *Metadata {
	return &Metadata{entries: entries}
}

// Lookup returns the entry for entryID and whether it was found.
func (m *Metadata) Lookup(entryID string) (Entry, bool) {
	e, ok := m.entries[entryID]
	return e, ok
}
