package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ServerConfig is one target database server from the SERVERS list.
type ServerConfig struct {
	Name       string
	Technology string
	Address    string
}

type Config struct {
	Port      int
	DBPath    string
	MasterKey string // session cookie encryption, must be >= 32 bytes

	Servers         []ServerConfig
	CatalogUser     string // optional credential for catalog probing
	CatalogPassword string

	SessionTimeoutMinutes int

	PoolMaxEntries           int
	PoolMaxConnsPerEntry     int
	PoolIdleTTLMinutes       int
	PoolSweepIntervalSeconds int

	MaxRowCountLimit    int
	MaxRowCountWarning  int
	QueryTimeoutSeconds int

	SlackWebhookURL string
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	key := os.Getenv("WEBQUERY_KEY")
	if len(key) < 32 {
		fmt.Println("WEBQUERY_KEY not found or too short. Generating a new secure key...")
		newKey, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(newKey); err != nil {
			fmt.Printf("Warning: Failed to save generated key to .env: %v\n", err)
		} else {
			fmt.Println("New WEBQUERY_KEY saved to .env file.")
		}
		key = newKey
	}

	cfg := &Config{
		Port:      envInt("PORT", 8080),
		DBPath:    envString("DB_PATH", "webquery.db"),
		MasterKey: key,

		Servers:         parseServers(os.Getenv("SERVERS")),
		CatalogUser:     os.Getenv("CATALOG_USER"),
		CatalogPassword: os.Getenv("CATALOG_PASSWORD"),

		SessionTimeoutMinutes: envInt("SESSION_TIMEOUT_MINUTES", 60),

		PoolMaxEntries:           envInt("POOL_MAX_ENTRIES", 100),
		PoolMaxConnsPerEntry:     envInt("POOL_MAX_CONNS_PER_ENTRY", 2),
		PoolIdleTTLMinutes:       envInt("POOL_IDLE_TTL_MINUTES", 60),
		PoolSweepIntervalSeconds: envInt("POOL_SWEEP_INTERVAL_SECONDS", 300),

		MaxRowCountLimit:    envInt("MAX_ROW_COUNT_LIMIT", 1000),
		MaxRowCountWarning:  envInt("MAX_ROW_COUNT_WARNING", 10000),
		QueryTimeoutSeconds: envInt("QUERY_TIMEOUT_SECONDS", 30),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}

	return cfg, nil
}

// parseServers reads "name|technology|address" entries separated by
// semicolons, e.g. "prod|mssql|db1:1433;warehouse|postgres|10.0.0.5:5432".
func parseServers(raw string) []ServerConfig {
	var servers []ServerConfig
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, "|")
		if len(fields) != 3 {
			fmt.Printf("Warning: skipping malformed SERVERS entry %q\n", part)
			continue
		}
		servers = append(servers, ServerConfig{
			Name:       strings.TrimSpace(fields[0]),
			Technology: strings.ToLower(strings.TrimSpace(fields[1])),
			Address:    strings.TrimSpace(fields[2]),
		})
	}
	return servers
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// Return base64 encoded string to ensure it's printable and handles bytes correctly
	return base64.StdEncoding.EncodeToString(b), nil
}

func saveKeyToEnv(key string) error {
	filename := ".env"
	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return os.WriteFile(filename, []byte(fmt.Sprintf("WEBQUERY_KEY=%s\nPORT=8080\n", key)), 0644)
	} else if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	found := false
	newLines := []string{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "WEBQUERY_KEY=") {
			newLines = append(newLines, fmt.Sprintf("WEBQUERY_KEY=%s", key))
			found = true
		} else if trimmed != "" {
			newLines = append(newLines, trimmed)
		}
	}

	if !found {
		newLines = append(newLines, fmt.Sprintf("WEBQUERY_KEY=%s", key))
	}

	return os.WriteFile(filename, []byte(strings.Join(newLines, "\n")), 0644)
}
