package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "127.0.0.1"},
		"backend": {"endpoint": "http://ai.local/"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, "http://ai.local", cfg.Backend.Endpoint)
	require.Equal(t, 3, cfg.Backend.IngestAttempts)
	require.Equal(t, int64(5), cfg.Backend.IngestDelaySeconds)
	require.Equal(t, int64(20), cfg.MaxUploadMB)
	require.Equal(t, int64(1000), cfg.AuthRateLimitMS)
	require.Equal(t, "/unauthorized", cfg.Gate.UnauthorizedPath)
	require.Equal(t, []string{"/api/demo"}, cfg.Gate.BypassPaths)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"secret":   `{"port": 1, "database": {"host": "h"}, "backend": {"endpoint": "x"}}`,
		"port":     `{"jwt_secret": "s", "database": {"host": "h"}, "backend": {"endpoint": "x"}}`,
		"database": `{"port": 1, "jwt_secret": "s", "backend": {"endpoint": "x"}}`,
		"backend":  `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}}`,
		"store":    `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "backend": {"endpoint": "x"}, "file_store": {"type": "ftp"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}
