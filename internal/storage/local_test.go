package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

func newStore(t *testing.T, max int64) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(config.UploadConfig{Dir: t.TempDir(), PublicURL: "/api/attachments/", MaxBytes: max})
	require.NoError(t, err)
	return s
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":              "photo.jpg",
		"../../etc/passwd":       "passwd",
		`C:\tmp\leak report.pdf`: "leak_report.pdf",
		"a;b&c$.png":             "a_b_c_.png",
		"...":                    "file",
		"":                       "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), in)
	}
	long := strings.Repeat("x", 300) + ".txt"
	got := SanitizeName(long)
	assert.Len(t, got, 200)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestSaveOpenDelete(t *testing.T) {
	s := newStore(t, 0)
	ctx := context.Background()

	att, err := s.Save(ctx, "hose leak.png", "", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.Key, "uploads/"))
	assert.True(t, strings.HasSuffix(att.Key, "-hose_leak.png"))
	assert.Equal(t, "/api/attachments/"+att.Key, att.URL)
	assert.Equal(t, "hose leak.png", att.OriginalName)
	assert.Equal(t, "image/png", att.MimeType)
	assert.Equal(t, int64(6), att.Size)

	f, err := s.Open(att.Key)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "pixels", string(body))

	require.NoError(t, s.Delete(ctx, att.Key))
	_, err = s.Open(att.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, att.Key))
}

func TestSaveRejectsOversize(t *testing.T) {
	s := newStore(t, 4)

	_, err := s.Save(context.Background(), "big.bin", "application/octet-stream", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.dir, "uploads"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKeysAreConfined(t *testing.T) {
	s := newStore(t, 0)
	for _, key := range []string{"../secret", "uploads/../../x", "uploads/", "other/file", "uploads/a/../b"} {
		_, err := s.Open(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		assert.ErrorIs(t, s.Delete(context.Background(), key), ErrInvalidKey, key)
	}
}

func TestDeleteAll(t *testing.T) {
	s := newStore(t, 0)
	ctx := context.Background()
	a, err := s.Save(ctx, "a.txt", "text/plain", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := s.Save(ctx, "b.txt", "text/plain", strings.NewReader("b"))
	require.NoError(t, err)

	b.Key = "../escape"
	assert.ErrorIs(t, s.DeleteAll(ctx, append([]model.Attachment{a}, b)), ErrInvalidKey)
	_, err = s.Open(a.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}
