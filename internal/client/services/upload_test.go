package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/filex"
)

func TestUploadFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signIn(t, "alice")

	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))

	f, err := e.uploader.UploadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", f.Name)
	assert.Equal(t, int64(2048), f.Size)
	assert.Equal(t, "image/png", f.Mime)
}

func TestUploadFile_RejectsDirectory(t *testing.T) {
	e := newEnv(t)
	e.signIn(t, "alice")

	_, err := e.uploader.UploadFile(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, filex.ErrNotRegularFile)
}

func TestUpload_Unauthenticated(t *testing.T) {
	e := newEnv(t)

	_, err := e.uploader.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Empty(t, e.api.Requests())
}
