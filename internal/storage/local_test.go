package storage

import (
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSave_WritesFileAndReturnsURL(t *testing.T) {
    dir := t.TempDir()
    s, err := NewStore(dir, "/uploads/")
    require.NoError(t, err)

    url, err := s.Save("poster.PNG", strings.NewReader("fake image bytes"))
    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(url, "/uploads/"))
    assert.True(t, strings.HasSuffix(url, ".png"))

    name := strings.TrimPrefix(url, "/uploads/")
    data, err := os.ReadFile(filepath.Join(dir, name))
    require.NoError(t, err)
    assert.Equal(t, "fake image bytes", string(data))
}

func TestSave_RejectsUnsupportedExtension(t *testing.T) {
    s, err := NewStore(t.TempDir(), "/uploads")
    require.NoError(t, err)

    _, err = s.Save("report.pdf", strings.NewReader("x"))
    assert.ErrorIs(t, err, ErrUnsupportedType)

    _, err = s.Save("noext", strings.NewReader("x"))
    assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSave_NamesAreUnique(t *testing.T) {
    s, err := NewStore(t.TempDir(), "/uploads")
    require.NoError(t, err)

    a, err := s.Save("a.jpg", strings.NewReader("one"))
    require.NoError(t, err)
    b, err := s.Save("a.jpg", strings.NewReader("two"))
    require.NoError(t, err)
    assert.NotEqual(t, a, b)
}

func TestRemove_DeletesStoredFile(t *testing.T) {
    dir := t.TempDir()
    s, err := NewStore(dir, "/uploads")
    require.NoError(t, err)

    url, err := s.Save("a.jpg", strings.NewReader("x"))
    require.NoError(t, err)
    require.NoError(t, s.Remove(url))

    entries, err := os.ReadDir(dir)
    require.NoError(t, err)
    assert.Empty(t, entries)

    // Removing again is a no-op.
    assert.NoError(t, s.Remove(url))
}

func TestRemove_IgnoresForeignURLs(t *testing.T) {
    s, err := NewStore(t.TempDir(), "/uploads")
    require.NoError(t, err)

    assert.NoError(t, s.Remove("/elsewhere/file.png"))
    assert.NoError(t, s.Remove("/uploads/../../etc/passwd"))
    assert.NoError(t, s.Remove(""))
}

func TestNewStore_CreatesDirectory(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "nested", "uploads")
    s, err := NewStore(dir, "/uploads")
    require.NoError(t, err)
    assert.Equal(t, dir, s.Dir())

    info, err := os.Stat(dir)
    require.NoError(t, err)
    assert.True(t, info.IsDir())
}
