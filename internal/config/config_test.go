package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GRAPH_URI", "bolt://localhost:7687")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.HTTP.Port)
	assert.Equal(t, BackendNeo4j, cfg.Store.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Store.Neo4j.URI)
	assert.Equal(t, defaultGraphMaxSessions, cfg.Store.Neo4j.MaxConnections)
	assert.Equal(t, defaultSessionIdleTTL, cfg.Sessions.IdleTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Zero(t, cfg.Routing.MaxIterations)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "FILE")
	t.Setenv("DATASET_PATH", "/data/map.yaml")
	t.Setenv("DATASET_WATCH", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SERVER_RATE_LIMIT", "2.5")
	t.Setenv("SESSION_IDLE_TTL", "5m")
	t.Setenv("ROUTING_MAX_ITERATIONS", "400")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.True(t, cfg.Store.Watch)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
	assert.Equal(t, 5*time.Minute, cfg.Sessions.IdleTTL)
	assert.Equal(t, 400, cfg.Routing.MaxIterations)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapnav.yaml")
	doc := `
http:
  port: 7000
  readTimeout: 4s
store:
  backend: postgres
  postgres:
    dsn: postgres://file
    maxConns: 8
sessions:
  maxSessions: 12
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("POSTGRES_DSN", "postgres://env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, 4*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, cfg.HTTP.WriteTimeout)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://env", cfg.Store.Postgres.DSN)
	assert.Equal(t, 8, cfg.Store.Postgres.MaxConns)
	assert.Equal(t, 12, cfg.Sessions.MaxSessions)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "neo4j without uri", env: map[string]string{"GRAPH_URI": ""}},
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "mongo"}},
		{name: "postgres without dsn", env: map[string]string{"STORE_BACKEND": "postgres"}},
		{name: "file without path", env: map[string]string{"STORE_BACKEND": "file"}},
		{name: "watch on neo4j", env: map[string]string{"GRAPH_URI": "bolt://x", "DATASET_WATCH": "1"}},
		{name: "bad port", env: map[string]string{"GRAPH_URI": "bolt://x", "SERVER_PORT": "70000"}},
		{name: "bad duration", env: map[string]string{"GRAPH_URI": "bolt://x", "SESSION_IDLE_TTL": "soon"}},
		{name: "bad metrics path", env: map[string]string{"GRAPH_URI": "bolt://x", "METRICS_PATH": "metrics"}},
		{name: "missing file", env: map[string]string{ConfigFileEnv: "/nonexistent/mapnav.yaml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
