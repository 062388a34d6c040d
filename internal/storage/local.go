package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"cloakroom-backend/internal/models"
)

// LocalStore keeps uploads in a directory served under /uploads/.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes r to a temp file and renames it into place so a partially
// written upload is never visible.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	name := newObjectName(originalName)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store upload: %w", err)
	}

	return PublicPrefix + name, nil
}

func (s *LocalStore) Delete(_ context.Context, p string) models.UnlinkOutcome {
	name := objectName(p)
	if name == "" {
		return models.UnlinkOutcome{Path: p, Success: false, Reason: ReasonNoPath}
	}

	err := os.Remove(filepath.Join(s.dir, name))
	switch {
	case err == nil:
		return models.UnlinkOutcome{Path: p, Success: true}
	case errors.Is(err, fs.ErrNotExist):
		return models.UnlinkOutcome{Path: p, Success: false, Reason: ReasonMissing}
	default:
		return models.UnlinkOutcome{Path: p, Success: false, Reason: err.Error()}
	}
}

func (s *LocalStore) Exists(_ context.Context, p string) (bool, error) {
	name := objectName(p)
	if name == "" {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
