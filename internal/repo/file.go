package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"numium/internal/model"
)

// FileStore keeps one JSON record per account under dir, named <id>.json.
type FileStore struct {
	dir   string
	locks sync.Map // account id -> *sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create account dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid account id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) lock(id string) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *FileStore) Exists(_ context.Context, id string) (bool, error) {
	p, err := s.path(id)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat account %s: %w", id, err)
	}
	return true, nil
}

func (s *FileStore) Get(_ context.Context, id string) (model.Account, error) {
	p, err := s.path(id)
	if err != nil {
		return model.Account{}, ErrNotFound
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("read account %s: %w", id, err)
	}

	var a model.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	a.ID = id
	return a, nil
}

// Put replaces the record through a temp file and rename, so readers see the old or the new
// record and never a partial one.
func (s *FileStore) Put(_ context.Context, account model.Account) error {
	p, err := s.path(account.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode account %s: %v", ErrWriteFailed, account.ID, err)
	}

	unlock := s.lock(account.ID)
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, "."+account.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write account %s: %v", ErrWriteFailed, account.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync account %s: %v", ErrWriteFailed, account.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close account %s: %v", ErrWriteFailed, account.ID, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: rename account %s: %v", ErrWriteFailed, account.ID, err)
	}
	return nil
}
