package transport

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

const fileVersion = 1

type saveFile struct {
	Version  int                        `json:"version"`
	Slot     string                     `json:"slot"`
	SavedAt  time.Time                  `json:"savedAt"`
	Checksum string                     `json:"checksum"`
	Entries  map[string]json.RawMessage `json:"entries"`
}

// FileStorage keeps one JSON file per slot in a directory. Files carry a
// blake2b checksum of their entries and are replaced atomically.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(slot string) string {
	return filepath.Join(s.dir, slot+".save.json")
}

func (s *FileStorage) Write(_ context.Context, slot string, entries map[string][]byte) error {
	f := saveFile{
		Version: fileVersion,
		Slot:    slot,
		SavedAt: time.Now().UTC(),
		Entries: make(map[string]json.RawMessage, len(entries)),
	}
	for id, data := range entries {
		if !json.Valid(data) {
			return fmt.Errorf("entry %q is not valid JSON", id)
		}
		f.Entries[id] = data
	}
	sum, err := checksum(f.Entries)
	if err != nil {
		return err
	}
	f.Checksum = sum

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save file: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp save: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("replace save file: %w", err)
	}
	return nil
}

func (s *FileStorage) Read(_ context.Context, slot string) (map[string][]byte, error) {
	raw, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read save file: %w", err)
	}
	var f saveFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse save file: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("save file version %d not supported", f.Version)
	}
	sum, err := checksum(f.Entries)
	if err != nil {
		return nil, err
	}
	if sum != f.Checksum {
		return nil, fmt.Errorf("save file %s: checksum mismatch", slot)
	}
	out := make(map[string][]byte, len(f.Entries))
	for id, data := range f.Entries {
		out[id] = data
	}
	return out, nil
}

// checksum hashes the compact encoding of entries; map keys are sorted by
// the encoder so the sum is stable.
func checksum(entries map[string]json.RawMessage) (string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode entries: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Slots lists the slot files in the directory, newest first.
func (s *FileStorage) Slots(_ context.Context) ([]SlotInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.save.json"))
	if err != nil {
		return nil, fmt.Errorf("list save files: %w", err)
	}
	out := make([]SlotInfo, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read save file: %w", err)
		}
		var head struct {
			Slot    string    `json:"slot"`
			SavedAt time.Time `json:"savedAt"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(p), err)
		}
		out = append(out, SlotInfo{Slot: head.Slot, SavedAt: head.SavedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}
