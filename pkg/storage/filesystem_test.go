package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "https://api.example", NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)

	key := NewKey("materials", "Chapter 1 Notes?.pdf")
	assert.True(t, strings.HasPrefix(key, "materials/"))
	assert.True(t, strings.HasSuffix(key, "_Chapter_1_Notes.pdf"))

	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("pdf-bytes"), "application/pdf"))

	link, err := store.URL(key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://api.example/files/"))
	token, err := url.PathUnescape(strings.TrimPrefix(link, "https://api.example/files/"))
	require.NoError(t, err)

	file, openedKey, err := store.Open(token)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(body))
	assert.Equal(t, key, openedKey)

	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))
}

func TestCleanKeyStaysInsideRoot(t *testing.T) {
	cleaned, err := cleanKey("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", cleaned)

	_, err = cleanKey("/")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
