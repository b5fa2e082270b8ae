// Package file keeps every snapshot in one JSON document inside a directory.
// All keys share the document, so a batch of snapshots lands with a single
// rename and a crash leaves either the old or the new set, never a mix.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"cassa/internal/storage"
)

// DocumentName is the file holding all snapshots.
const DocumentName = "books.json"

var errCorrupt = errors.New("corrupt snapshot document")

var _ storage.BatchSaver = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	dir string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	data, ok := doc[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return []byte(data), nil
}

// Save replaces one snapshot, rewriting the document atomically.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	return s.SaveAll(ctx, map[string][]byte{key: data})
}

// SaveAll replaces every given snapshot with one rename. Either all of them
// are stored or none is.
func (s *Store) SaveAll(_ context.Context, snapshots map[string][]byte) error {
	for key, data := range snapshots {
		if err := validKey(key); err != nil {
			return err
		}
		if !json.Valid(data) {
			return fmt.Errorf("snapshot %q is not valid JSON", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, errCorrupt) {
		// Loading already fell back to empty collections; keep the damaged
		// document for inspection and start a fresh one.
		if err := os.Rename(s.document(), s.document()+".corrupt"); err != nil {
			return fmt.Errorf("set aside corrupt snapshots: %w", err)
		}
		doc, err = map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return err
	}
	for key, data := range snapshots {
		doc[key] = json.RawMessage(data)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}
	return s.replace(encoded)
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.document())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return doc, nil
}

// replace writes a temp file, syncs it and renames it over the document.
func (s *Store) replace(data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".books-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshots: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshots: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshots: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.document()); err != nil {
		return fmt.Errorf("replace snapshots: %w", err)
	}
	return nil
}

func (s *Store) document() string {
	return filepath.Join(s.dir, DocumentName)
}

func validKey(key string) error {
	if key == "" {
		return errors.New("empty snapshot key")
	}
	return nil
}
