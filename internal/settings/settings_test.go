package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PURCHASEKIT_CONFIG", "NATS_HOST", "NATS_PORT", "NATS_SUBJECT_PAYMENTS",
		"REDIS_ENABLED", "REDIS_DB", "CATALOG_URL", "RECEIPT_URL",
		"PURCHASEKIT_LISTEN", "ACCEPT_STORE_PAYMENTS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.NATS.Host)
	assert.Equal(t, "4222", cfg.NATS.Port)
	assert.Equal(t, "payments.events", cfg.NATS.Subject)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, ":8084", cfg.ListenAddress)
	assert.False(t, cfg.AcceptStorePayments)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NATS_HOST", "queue.internal")
	t.Setenv("NATS_SUBJECT_PAYMENTS", "payments.sandbox")
	t.Setenv("ACCEPT_STORE_PAYMENTS", "true")
	t.Setenv("REDIS_ENABLED", "1")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "queue.internal", cfg.NATS.Host)
	assert.Equal(t, "payments.sandbox", cfg.NATS.Subject)
	assert.True(t, cfg.AcceptStorePayments)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadYAMLOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("NATS_HOST", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nats:
  host: from-file
catalog_url: http://catalog.internal/v1/resolve
`), 0o600))
	t.Setenv("PURCHASEKIT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.NATS.Host, "file overrides env")
	assert.Equal(t, "4222", cfg.NATS.Port, "untouched fields keep env defaults")
	assert.Equal(t, "http://catalog.internal/v1/resolve", cfg.CatalogURL)
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)

	t.Run("MissingConfigFile", func(t *testing.T) {
		t.Setenv("PURCHASEKIT_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("InvalidRedisDB", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDIS_DB", "99")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("EmptyCatalogURL", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`catalog_url: ""`), 0o600))
		t.Setenv("PURCHASEKIT_CONFIG", path)
		_, err := Load()
		require.Error(t, err)
	})
}
