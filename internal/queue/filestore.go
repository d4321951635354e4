package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the mutation list as an ordered JSON array using
// an atomic temp-file-and-rename write. It serves hosts that cannot
// carry the sqlite driver; the wire format is identical.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type fileEnvelope struct {
	Namespace string     `json:"namespace"`
	Mutations []Mutation `json:"mutations"`
}

// Save implements Store.
func (s *FileStore) Save(mutations []Mutation) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	data, err := json.MarshalIndent(fileEnvelope{Namespace: Namespace, Mutations: mutations}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "queue-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}

// Load implements Store.
func (s *FileStore) Load() ([]Mutation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal queue: %w", err)
	}
	return env.Mutations, nil
}
