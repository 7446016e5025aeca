package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	assert.False(t, Exists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, Exists(path))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, WriteFileAtomic(path, []byte("hello"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteAtomic_FailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	boom := errors.New("boom")
	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGlob_SortedRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002.pdf", "0001.pdf", "0010.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003.pdf"), 0o755))

	files, err := Glob(dir, "*.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "0001.pdf"),
		filepath.Join(dir, "0002.pdf"),
		filepath.Join(dir, "0010.pdf"),
	}, files)
}

func TestGlob_DirectoryIsLiteral(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Carte [2024]", "données")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.pdf.md.csv"), nil, 0o644))

	files, err := Glob(dir, "*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "0001.pdf.md.csv")}, files)
}

func TestGlob_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Glob(dir, "[")
	assert.ErrorIs(t, err, filepath.ErrBadPattern)

	_, err = Glob(filepath.Join(dir, "absent"), "*.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
