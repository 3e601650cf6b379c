package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestSaveAndRead(t *testing.T) {
	store := NewLocal(t.TempDir())
	store.now = fixedClock(time.UnixMilli(1700000000000))
	dealID := uuid.New()

	rel, n, err := store.Save(dealID, "quote.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, dealID.String()+"/1700000000000-quote.pdf", rel)

	data, err := store.ReadAll(rel)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	f, err := store.Open(rel)
	require.NoError(t, err)
	defer f.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", buf.String())
}

func TestSaveSameNameSameMillisecond(t *testing.T) {
	store := NewLocal(t.TempDir())
	store.now = fixedClock(time.UnixMilli(1000))
	dealID := uuid.New()

	first, _, err := store.Save(dealID, "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	second, _, err := store.Save(dealID, "a.txt", strings.NewReader("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	data, err := store.ReadAll(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestSaveStripsDirectories(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root)
	store.now = fixedClock(time.UnixMilli(42))
	dealID := uuid.New()

	rel, _, err := store.Save(dealID, "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, dealID.String()+"/42-passwd", rel)

	rel, _, err = store.Save(dealID, "..", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, dealID.String()+"/42-upload", rel)
}

func TestOpenStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(filepath.Join(root, "blobs"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret"), []byte("s"), 0644))

	_, err := store.ReadAll("../secret")
	assert.True(t, errors.Is(err, os.ErrNotExist), "escape attempt must resolve inside root, got %v", err)

	_, err = store.Open("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSaveRemovesPartialFile(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root)
	dealID := uuid.New()

	_, _, err := store.Save(dealID, "broken.bin", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(root, dealID.String()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveDeal(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root)
	dealID := uuid.New()

	rel, _, err := store.Save(dealID, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	require.NoError(t, store.RemoveDeal(dealID))

	_, err = store.ReadAll(rel)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.RemoveDeal(dealID), "removing twice is fine")
	assert.NoError(t, store.Remove(rel), "removing a missing blob is fine")
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"Quote.PDF":   "application/pdf",
		"sheet.xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"photo.jpeg":  "image/jpeg",
		"notes.txt":   "text/plain",
		"archive.zip": "application/octet-stream",
		"README":      "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}
