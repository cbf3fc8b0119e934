package repository

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

type tokenFileStorage interface {
	SaveWithMode(filename string, data []byte, perm fs.FileMode) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

// FileTokenRepository keeps the session token in a private file.
type FileTokenRepository struct {
	storage tokenFileStorage
	key     string
}

// NewFileTokenRepository stores the token under key inside storage.
func NewFileTokenRepository(storage tokenFileStorage, key string) *FileTokenRepository {
	return &FileTokenRepository{storage: storage, key: key}
}

// Load returns the stored token or "" when none exists.
func (r *FileTokenRepository) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := r.storage.Read(r.key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored token.
func (r *FileTokenRepository) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.storage.SaveWithMode(r.key, []byte(token), 0o600)
	return err
}

// Delete removes the stored token.
func (r *FileTokenRepository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.storage.Delete(r.key)
}
