package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoadPicture(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)

	data := []byte{0x89, 0x50, 0x4E, 0x47} // PNG 魔数
	relPath, err := store.SavePicture("logo.png", data)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(relPath), "returned path should be relative")
	assert.Equal(t, ".png", filepath.Ext(relPath))

	loaded, err := store.LoadPicture(relPath)
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestStore_SavePictureSanitizesFilename(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.SavePicture("../../../etc/passwd", []byte("x"))
	require.NoError(t, err)

	// 路径分隔符被清理，文件仍落在根目录之内
	assert.NotContains(t, relPath, "..")
	_, err = store.LoadPicture(relPath)
	assert.NoError(t, err)
}

func TestStore_LoadPictureRejectsEscape(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadPicture("../outside.png")
	assert.Error(t, err)
}

func TestStore_DeletePicture(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.SavePicture("photo.jpg", []byte("jpeg"))
	require.NoError(t, err)

	require.NoError(t, store.DeletePicture(relPath))
	_, err = store.LoadPicture(relPath)
	assert.Error(t, err)

	// 重复删除视为成功
	assert.NoError(t, store.DeletePicture(relPath))
}

func TestNewStore_CreatesBaseDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "pictures")

	_, err := NewStore(base)
	require.NoError(t, err)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
