package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreUpload(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "chat/direct:a:b/01ABC.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/chat/direct:a:b/01ABC.png", url)

	data, err := os.ReadFile(filepath.Join(store.Root(), "chat", "direct:a:b", "01ABC.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../escape.txt", []byte("nope"))
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "https://chat.example.edu")
	require.NoError(t, err)

	assert.Equal(t,
		"https://chat.example.edu/files/chat/x/y.pdf",
		store.PublicURL("/chat/x/y.pdf"))
}
