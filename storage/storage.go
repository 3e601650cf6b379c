// ABOUTME: Blob storage for uploaded deal files on the local filesystem
// ABOUTME: One directory per deal id, file names prefixed with an upload timestamp
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid blob path")

// Local stores blobs under Root. Paths handed out are relative to Root and
// use forward slashes so they can be stored in the database as-is.
type Local struct {
	Root string
	now  func() time.Time
}

func NewLocal(root string) *Local {
	return &Local{Root: root, now: time.Now}
}

// cleanName reduces an uploaded name to a single safe path element.
func cleanName(filename string) string {
	name := filepath.Base(filepath.ToSlash(strings.ReplaceAll(filename, "\\", "/")))
	name = strings.TrimSpace(name)
	if name == "." || name == "/" || name == "" || name == ".." {
		return "upload"
	}
	return name
}

// Save writes r to <dealID>/<unixMillis>-<filename> and returns the relative
// path and the number of bytes written. A partially written file is removed.
func (l *Local) Save(dealID uuid.UUID, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(l.Root, dealID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create deal directory: %w", err)
	}

	name := cleanName(filename)
	stamp := l.now().UnixMilli()

	// Same name in the same millisecond: move to the next free stamp.
	var f *os.File
	var base string
	for attempt := 0; ; attempt++ {
		base = fmt.Sprintf("%d-%s", stamp+int64(attempt), name)
		var err error
		f, err = os.OpenFile(filepath.Join(dir, base), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) || attempt >= 100 {
			return "", 0, fmt.Errorf("failed to create blob: %w", err)
		}
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}

	return path.Join(dealID.String(), base), n, nil
}

// resolve maps a relative blob path to an absolute one inside Root.
func (l *Local) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.Root, filepath.FromSlash(clean)), nil
}

func (l *Local) Open(rel string) (*os.File, error) {
	p, err := l.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// ReadAll returns the blob's bytes.
func (l *Local) ReadAll(rel string) ([]byte, error) {
	p, err := l.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (l *Local) Remove(rel string) error {
	p, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveDeal deletes the deal's whole blob directory.
func (l *Local) RemoveDeal(dealID uuid.UUID) error {
	return os.RemoveAll(filepath.Join(l.Root, dealID.String()))
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".txt":  "text/plain",
}

// ContentTypeFor picks a MIME type from the file extension, falling back to
// application/octet-stream.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
