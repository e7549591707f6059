package filex

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestReadUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bike.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o600))

	up, err := ReadUpload(path)
	require.NoError(t, err)
	defer up.Close()

	require.Equal(t, "bike.jpg", up.Name)
	require.EqualValues(t, 10, up.Size)

	b, err := io.ReadAll(up)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(b))
}

func TestReadUpload_Rejects(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadUpload(dir)
	require.ErrorIs(t, err, ErrNotRegularFile)

	_, err = ReadUpload(filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)

	big := filepath.Join(dir, "big.bin")
	f, err := os.Create(big)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxUploadSize+1))
	require.NoError(t, f.Close())

	_, err = ReadUpload(big)
	require.ErrorIs(t, err, ErrTooLarge)
}
