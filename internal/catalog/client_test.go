package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSplitsUnresolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req resolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"gold_100", "bad_id"}, req.ProductIDs)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"products": []map[string]interface{}{
					{"id": "gold_100", "title": "100 Gold", "price": "0.99"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, nil)
	result, err := client.Resolve(context.Background(), []string{"gold_100", "bad_id"})
	require.NoError(t, err)

	require.Len(t, result.Resolved, 1)
	assert.Equal(t, "gold_100", result.Resolved[0].ID)
	assert.Equal(t, "100 Gold", result.Resolved[0].Title)
	assert.Equal(t, []string{"bad_id"}, result.Unresolved)
}

func TestResolveTransportFailures(t *testing.T) {
	t.Run("Non2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, nil)
		_, err := client.Resolve(context.Background(), []string{"gold_100"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-2xx")
	})

	t.Run("BadResponseCode", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    14,
				"message": "catalog unavailable",
			})
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, nil)
		_, err := client.Resolve(context.Background(), []string{"gold_100"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog unavailable")
	})

	t.Run("EmptyIDSet", func(t *testing.T) {
		client := NewHTTPClient("http://localhost:0", nil)
		_, err := client.Resolve(context.Background(), nil)
		require.Error(t, err)
	})
}
