package receipt

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderEncodesBody(t *testing.T) {
	raw := []byte("receipt-blob-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL, nil)
	got, err := provider.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got)
}

func TestHTTPProviderFailures(t *testing.T) {
	t.Run("Non2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		provider := NewHTTPProvider(server.URL, nil)
		_, err := provider.Fetch(context.Background())
		require.Error(t, err)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		provider := NewHTTPProvider(server.URL, nil)
		_, err := provider.Fetch(context.Background())
		require.Error(t, err)
	})
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt")
	require.NoError(t, os.WriteFile(path, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 0o600))

	provider := NewFileProvider(path)
	got, err := provider.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3q2+7w==", got)

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewFileProvider(filepath.Join(t.TempDir(), "absent")).Fetch(context.Background())
		require.Error(t, err)
	})

	t.Run("UnconfiguredPath", func(t *testing.T) {
		_, err := NewFileProvider("").Fetch(context.Background())
		require.Error(t, err)
	})
}
