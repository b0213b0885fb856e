package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServers(t *testing.T) {
	servers := parseServers("prod|MSSQL|db1.internal:1433; warehouse | postgres | 10.0.0.5:5432")
	require.Len(t, servers, 2)

	assert.Equal(t, ServerConfig{Name: "prod", Technology: "mssql", Address: "db1.internal:1433"}, servers[0])
	assert.Equal(t, ServerConfig{Name: "warehouse", Technology: "postgres", Address: "10.0.0.5:5432"}, servers[1])
}

func TestParseServers_SkipsMalformedEntries(t *testing.T) {
	servers := parseServers("good|mysql|host:3306;missing-fields;also|bad")
	require.Len(t, servers, 1)
	assert.Equal(t, "good", servers[0].Name)
}

func TestParseServers_Empty(t *testing.T) {
	assert.Empty(t, parseServers(""))
	assert.Empty(t, parseServers(" ; ; "))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("WEBQUERY_TEST_INT", "250")
	assert.Equal(t, 250, envInt("WEBQUERY_TEST_INT", 5))
	assert.Equal(t, 5, envInt("WEBQUERY_TEST_INT_MISSING", 5))

	t.Setenv("WEBQUERY_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, envInt("WEBQUERY_TEST_INT_BAD", 7))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEBQUERY_KEY", strings.Repeat("k", 32))
	t.Setenv("SERVERS", "prod|mssql|db1:1433")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "webquery.db", cfg.DBPath)
	assert.Equal(t, 60, cfg.SessionTimeoutMinutes)
	assert.Equal(t, 100, cfg.PoolMaxEntries)
	assert.Equal(t, 2, cfg.PoolMaxConnsPerEntry)
	assert.Equal(t, 60, cfg.PoolIdleTTLMinutes)
	assert.Equal(t, 300, cfg.PoolSweepIntervalSeconds)
	assert.Equal(t, 1000, cfg.MaxRowCountLimit)
	assert.Equal(t, 10000, cfg.MaxRowCountWarning)
	assert.Equal(t, 30, cfg.QueryTimeoutSeconds)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "prod", cfg.Servers[0].Name)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WEBQUERY_KEY", strings.Repeat("k", 32))
	t.Setenv("SERVERS", "")
	t.Setenv("PORT", "9999")
	t.Setenv("POOL_MAX_ENTRIES", "10")
	t.Setenv("SESSION_TIMEOUT_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 10, cfg.PoolMaxEntries)
	assert.Equal(t, 15, cfg.SessionTimeoutMinutes)
	assert.Empty(t, cfg.Servers)
}
