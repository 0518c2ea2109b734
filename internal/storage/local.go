// Package storage stores uploaded event images on the local filesystem and
// hands out the public URLs under which they are served. Stored names are
// collision-resistant: a UTC timestamp plus a random UUID suffix plus the
// original file extension.
package storage

import (
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/google/uuid"
)

// ErrUnsupportedType is returned when an upload's extension is not an
// image format the accent color pipeline can decode.
var ErrUnsupportedType = errors.New("unsupported image type")

var allowedExts = map[string]bool{
    ".jpg":  true,
    ".jpeg": true,
    ".png":  true,
    ".gif":  true,
}

// Store writes files below a single directory and maps them to URLs below
// a single base path. It holds no open resources; the zero-value guards in
// NewStore are the only setup.
type Store struct {
    dir     string
    baseURL string
}

// NewStore creates the storage directory if needed and returns a Store.
func NewStore(dir, baseURL string) (*Store, error) {
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return nil, fmt.Errorf("create storage dir: %w", err)
    }
    return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to, for static serving.
func (s *Store) Dir() string { return s.dir }

// Save writes the upload to disk under a generated name and returns the
// public URL. originalName is only used for its extension.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
    ext := strings.ToLower(filepath.Ext(originalName))
    if !allowedExts[ext] {
        return "", ErrUnsupportedType
    }
    name := fmt.Sprintf("%s-%s%s",
        time.Now().UTC().Format("20060102T150405"), uuid.NewString(), ext)
    f, err := os.Create(filepath.Join(s.dir, name))
    if err != nil {
        return "", fmt.Errorf("create file: %w", err)
    }
    defer f.Close()
    if _, err := io.Copy(f, r); err != nil {
        return "", fmt.Errorf("write file: %w", err)
    }
    return s.PublicURL(name), nil
}

// PublicURL maps a stored name to the URL it is served under.
func (s *Store) PublicURL(name string) string {
    return s.baseURL + "/" + name
}

// Remove deletes a stored file given its public URL, used to clean up an
// upload whose event update was rejected. URLs outside this store's base
// path are ignored.
func (s *Store) Remove(publicURL string) error {
    name := strings.TrimPrefix(publicURL, s.baseURL+"/")
    if name == publicURL || name == "" || strings.Contains(name, "/") {
        return nil
    }
    err := os.Remove(filepath.Join(s.dir, name))
    if errors.Is(err, os.ErrNotExist) {
        return nil
    }
    return err
}
