// Package storage keeps uploaded attachments on local disk.  Blobs are
// addressed by keys of the form "uploads/{uuid}-{name}".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

const keyPrefix = "uploads/"

var (
	ErrNotFound   = errors.New("storage: blob not found")
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrTooLarge   = errors.New("storage: file too large")
)

// LocalStore writes blobs below dir.
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(cfg config.UploadConfig) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, keyPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:       cfg.Dir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  cfg.MaxBytes,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips path components and anything outside [A-Za-z0-9._-].
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.ReplaceAll(name, "\x00", ""))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 200 {
		ext := path.Ext(name)
		if len(ext) > 20 {
			ext = ""
		}
		name = name[:200-len(ext)] + ext
	}
	return name
}

// Save copies r into a new blob.  mimeType falls back to the file
// extension and then to application/octet-stream.
func (s *LocalStore) Save(ctx context.Context, name, mimeType string, r io.Reader) (model.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return model.Attachment{}, err
	}
	key := keyPrefix + uuid.NewString() + "-" + SanitizeName(name)
	p := filepath.Join(s.dir, filepath.FromSlash(key))

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("create blob: %w", err)
	}
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(p)
		if errors.Is(err, ErrTooLarge) {
			return model.Attachment{}, err
		}
		return model.Attachment{}, fmt.Errorf("write blob: %w", err)
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(name))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return model.Attachment{
		URL:          s.publicURL + "/" + key,
		Key:          key,
		OriginalName: name,
		MimeType:     mimeType,
		Size:         n,
	}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean(key)
	if clean != key || !strings.HasPrefix(clean, keyPrefix) || strings.Contains(clean, "..") || len(clean) == len(keyPrefix) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// Open returns the blob for reading.  The caller closes it.
func (s *LocalStore) Open(key string) (*os.File, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the blob.  Missing blobs are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// DeleteAll removes every blob in atts, returning the first failure.
func (s *LocalStore) DeleteAll(ctx context.Context, atts []model.Attachment) error {
	var first error
	for _, a := range atts {
		if err := s.Delete(ctx, a.Key); err != nil && first == nil {
			first = err
		}
	}
	return first
}
