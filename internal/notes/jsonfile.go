// Package notes persists free-text annotations keyed by source name.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"

	"spt3g-viewer/internal/domain"
)

// JSONFile keeps notes in memory and writes them as one JSON object.
// A Flush overwrites the whole file; concurrent processes are not coordinated.
type JSONFile struct {
	path string

	// flushMu orders flushes so the file always ends with the newest snapshot.
	flushMu sync.Mutex

	mu    sync.Mutex
	notes map[string]string
}

var _ domain.NotesRepository = (*JSONFile)(nil)

// OpenJSONFile loads path. A missing file yields an empty store. Comments and
// trailing commas in hand-edited files are tolerated.
func OpenJSONFile(path string) (*JSONFile, error) {
	f := &JSONFile{path: path, notes: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notes file: %w", err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(raw), &f.notes); err != nil {
		return nil, fmt.Errorf("parse notes file %s: %w", path, err)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *JSONFile) Path() string { return f.path }

func (f *JSONFile) Get(source string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.notes[source]
	return text, ok
}

func (f *JSONFile) Set(source, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[source] = text
}

// All returns a copy of every note.
func (f *JSONFile) All() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.notes)
}

// Flush writes the current map to a temporary file beside path and renames
// it into place.
func (f *JSONFile) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.Lock()
	data, err := marshalNotes(f.notes)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return writeFileAtomic(f.path, data)
}

// marshalNotes renders notes with two-space indentation. encoding/json sorts
// map keys, so output is stable across flushes.
func marshalNotes(notes map[string]string) ([]byte, error) {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	return append(data, '\n'), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
