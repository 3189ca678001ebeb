package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileSuffix = ".id"

// FileStore keeps one <label>.id file per identity in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the wallet directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create wallet directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(label string) string {
	return filepath.Join(s.dir, label+fileSuffix)
}

func (s *FileStore) Get(_ context.Context, label string) (*Identity, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(label))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity %s: %w", label, err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to decode identity %s: %w", label, err)
	}
	return &id, nil
}

// Put writes to a temporary file and links it into place, so a
// concurrent Put of the same label fails instead of overwriting.
func (s *FileStore) Put(_ context.Context, label string, id *Identity) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if err := validateIdentity(id); err != nil {
		return err
	}

	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode identity %s: %w", label, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+label+"-*")
	if err != nil {
		return fmt.Errorf("failed to stage identity %s: %w", label, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write identity %s: %w", label, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write identity %s: %w", label, err)
	}

	if err := os.Link(tmp.Name(), s.path(label)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, label)
		}
		return fmt.Errorf("failed to store identity %s: %w", label, err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, label string) (bool, error) {
	if err := ValidateLabel(label); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(label))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet: %w", err)
	}

	labels := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		labels = append(labels, strings.TrimSuffix(name, fileSuffix))
	}
	sort.Strings(labels)
	return labels, nil
}

func (s *FileStore) Remove(_ context.Context, label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}

	err := os.Remove(s.path(label))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return err
}
