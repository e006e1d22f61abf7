package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:21114", cfg.GetServerAddress())
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.Security.LoginTokenTTL)
	assert.Equal(t, 365*24*time.Hour, cfg.Security.GenerateTokenTTL)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, []string{"127.0.0.1/32", "::1/128"}, cfg.API.GenerateAllowedCIDRs)

	client := cfg.Client
	assert.Equal(t, 3, client.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, client.BaseBackoff)
	assert.Equal(t, 30*time.Second, client.HealthInterval)
	assert.Equal(t, 3, client.MaxFailures)
	assert.Equal(t, 5*time.Second, client.ProbeTimeout)
	assert.Equal(t, 10*time.Second, client.RequestTimeout)
	assert.Equal(t, 5*time.Second, client.ConnectTimeout)
	assert.Equal(t, 10, client.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, client.IdleConnTimeout)
	assert.Equal(t, 60*time.Second, client.KeepAlive)
	require.Len(t, client.Servers, 3)
	assert.Equal(t, EndpointConfig{URL: "http://localhost:21114", Priority: 0, Enabled: true}, client.Servers[0])
	assert.False(t, client.Servers[1].Enabled)
	assert.NotEmpty(t, client.DeviceID)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, `
server:
  port: "9000"
security:
  jwt_secret: file-secret
  login_token_ttl: 1h
database:
  type: sqlite
  path: /tmp/accounts.db
client:
  servers:
    - url: http://a:21114
      priority: 1
      enabled: true
    - url: http://b:21114
      priority: 0
      enabled: true
  max_attempts: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "file-secret", cfg.Security.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Security.LoginTokenTTL)
	assert.Equal(t, "/tmp/accounts.db", cfg.GetDatabaseDSN())
	assert.Equal(t, 5, cfg.Client.MaxAttempts)
	assert.Equal(t, []EndpointConfig{
		{URL: "http://a:21114", Priority: 1, Enabled: true},
		{URL: "http://b:21114", Priority: 0, Enabled: true},
	}, cfg.Client.Servers)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ADMIN_PASSWORD", "bootstrap-pw")
	t.Setenv("AUTH_SERVERS", "http://one:21114/, http://two:21114,")
	t.Setenv("AUTH_LOGGING_LEVEL", "debug")

	path := writeConfig(t, "security:\n  jwt_secret: file-secret\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Security.JWTSecret)
	assert.Equal(t, "bootstrap-pw", cfg.Admin.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []EndpointConfig{
		{URL: "http://one:21114", Priority: 0, Enabled: true},
		{URL: "http://two:21114", Priority: 1, Enabled: true},
	}, cfg.Client.Servers)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "server:\n  port: \"21114\"\n"},
		{"unknown database", "security:\n  jwt_secret: s\ndatabase:\n  type: mysql\n"},
		{"postgres without host", "security:\n  jwt_secret: s\ndatabase:\n  type: postgres\n"},
		{"postgres bad driver", "security:\n  jwt_secret: s\ndatabase:\n  type: postgres\n  url: postgres://x\n  driver: odbc\n"},
		{"bad cidr", "security:\n  jwt_secret: s\napi:\n  generate_allowed_cidrs: [\"nonsense\"]\n"},
		{"zero ttl", "security:\n  jwt_secret: s\n  generate_token_ttl: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigAcceptsBareAddresses(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, "security:\n  jwt_secret: s\napi:\n  generate_allowed_cidrs: [\"10.0.0.5\", \"192.168.1.0/24\", \"::1\"]\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "192.168.1.0/24", "::1"}, cfg.API.GenerateAllowedCIDRs)
}

func TestParseNetworks(t *testing.T) {
	nets, err := ParseNetworks([]string{"10.0.0.5", " 192.168.1.0/24 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 3)

	assert.True(t, nets[0].Contains(net.ParseIP("10.0.0.5")))
	assert.False(t, nets[0].Contains(net.ParseIP("10.0.0.6")))
	assert.True(t, nets[1].Contains(net.ParseIP("192.168.1.77")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))

	_, err = ParseNetworks([]string{"nonsense"})
	assert.Error(t, err)
	_, err = ParseNetworks([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_SERVERS", "")

	cfg, err := LoadClientConfig("")
	require.NoError(t, err, "client config does not need a signing secret")
	assert.NotEmpty(t, cfg.Client.Servers)

	t.Run("NoEnabledServers", func(t *testing.T) {
		path := writeConfig(t, "client:\n  servers:\n    - url: http://a\n      enabled: false\n")
		_, err := LoadClientConfig(path)
		assert.Error(t, err)
	})

	t.Run("NonPositiveTimeout", func(t *testing.T) {
		path := writeConfig(t, "client:\n  probe_timeout: 0s\n")
		_, err := LoadClientConfig(path)
		assert.Error(t, err)
	})
}

func TestSanitizeForLogging(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{JWTSecret: "secret"},
		Admin:    AdminConfig{Username: "admin", Password: "admin123"},
		Database: DatabaseConfig{Password: "dbpw", URL: "postgres://u:p@h/db"},
	}

	sanitized := cfg.SanitizeForLogging()
	assert.Equal(t, "[REDACTED]", sanitized.Security.JWTSecret)
	assert.Equal(t, "[REDACTED]", sanitized.Admin.Password)
	assert.Equal(t, "[REDACTED]", sanitized.Database.Password)
	assert.Equal(t, "[REDACTED]", sanitized.Database.URL)
	assert.Equal(t, "admin", sanitized.Admin.Username)
	assert.Equal(t, "secret", cfg.Security.JWTSecret, "source config untouched")
}

func TestParseServerList(t *testing.T) {
	assert.Empty(t, ParseServerList(" , "))
	assert.Equal(t, []EndpointConfig{{URL: "http://a", Priority: 0, Enabled: true}}, ParseServerList("http://a/"))
}
