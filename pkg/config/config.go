package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Admin    AdminConfig    `mapstructure:"admin"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// DatabaseConfig selects the account backend
type DatabaseConfig struct {
	Type         string        `mapstructure:"type"`   // memory, sqlite, postgres
	Driver       string        `mapstructure:"driver"` // postgres only: pq, pgx
	URL          string        `mapstructure:"url"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Path         string        `mapstructure:"path"`    // For SQLite
	SSLMode      string        `mapstructure:"sslmode"` // For PostgreSQL
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// SecurityConfig holds token signing configuration
type SecurityConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	LoginTokenTTL     time.Duration `mapstructure:"login_token_ttl"`
	GenerateTokenTTL  time.Duration `mapstructure:"generate_token_ttl"`
	PasswordMinLength int           `mapstructure:"password_min_length"`
}

// AdminConfig holds the bootstrap admin account
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// APIConfig holds HTTP surface configuration
type APIConfig struct {
	RateLimit            int        `mapstructure:"rate_limit"` // requests per minute, 0 disables
	GenerateAllowedCIDRs []string   `mapstructure:"generate_allowed_cidrs"`
	CORS                 CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// EndpointConfig is one auth service address as configured
type EndpointConfig struct {
	URL      string `mapstructure:"url"`
	Priority int    `mapstructure:"priority"`
	Enabled  bool   `mapstructure:"enabled"`
}

// ClientConfig tunes the failover client and its endpoint registry
type ClientConfig struct {
	DeviceID            string           `mapstructure:"device_id"`
	Servers             []EndpointConfig `mapstructure:"servers"`
	MaxAttempts         int              `mapstructure:"max_attempts"`
	BaseBackoff         time.Duration    `mapstructure:"base_backoff"`
	HealthInterval      time.Duration    `mapstructure:"health_interval"`
	MaxFailures         int              `mapstructure:"max_failures"`
	ProbeTimeout        time.Duration    `mapstructure:"probe_timeout"`
	RequestTimeout      time.Duration    `mapstructure:"request_timeout"`
	ConnectTimeout      time.Duration    `mapstructure:"connect_timeout"`
	MaxIdleConnsPerHost int              `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration    `mapstructure:"idle_conn_timeout"`
	KeepAlive           time.Duration    `mapstructure:"keep_alive"`
}

// LoadConfig loads and validates the auth service configuration
func LoadConfig(configPath string) (*Config, error) {
	config, err := load(configPath)
	if err != nil {
		return nil, err
	}

	if err := validateServerConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// LoadClientConfig loads and validates only what the failover client needs
func LoadClientConfig(configPath string) (*Config, error) {
	config, err := load(configPath)
	if err != nil {
		return nil, err
	}

	if err := validateClientConfig(&config.Client); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Allow environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			// Config file not found; use defaults and env vars
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if servers := os.Getenv("AUTH_SERVERS"); servers != "" {
		config.Client.Servers = ParseServerList(servers)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "21114")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.trusted_proxies", []string{})

	// Database defaults
	v.SetDefault("database.type", "memory")
	v.SetDefault("database.driver", "pq")
	v.SetDefault("database.path", "./data/accounts.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.dbname", "auth")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	// Security defaults
	v.SetDefault("security.login_token_ttl", "168h")
	v.SetDefault("security.generate_token_ttl", "8760h")
	v.SetDefault("security.password_min_length", 6)

	// Admin defaults
	v.SetDefault("admin.username", "admin")

	// API defaults
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("api.generate_allowed_cidrs", []string{"127.0.0.1/32", "::1/128"})
	v.SetDefault("api.cors.allowed_origins", []string{})
	v.SetDefault("api.cors.max_age", 86400)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Client defaults
	v.SetDefault("client.device_id", defaultDeviceID())
	v.SetDefault("client.servers", []map[string]interface{}{
		{"url": "http://localhost:21114", "priority": 0, "enabled": true},
		{"url": "http://standby1.example.com:21114", "priority": 1, "enabled": false},
		{"url": "http://standby2.example.com:21114", "priority": 2, "enabled": false},
	})
	v.SetDefault("client.max_attempts", 3)
	v.SetDefault("client.base_backoff", "100ms")
	v.SetDefault("client.health_interval", "30s")
	v.SetDefault("client.max_failures", 3)
	v.SetDefault("client.probe_timeout", "5s")
	v.SetDefault("client.request_timeout", "10s")
	v.SetDefault("client.connect_timeout", "5s")
	v.SetDefault("client.max_idle_conns_per_host", 10)
	v.SetDefault("client.idle_conn_timeout", "90s")
	v.SetDefault("client.keep_alive", "60s")
}

// overrideWithEnvVars overrides config with specific environment variables
func overrideWithEnvVars(v *viper.Viper) {
	envMappings := map[string]string{
		"JWT_SECRET":     "security.jwt_secret",
		"ADMIN_USERNAME": "admin.username",
		"ADMIN_PASSWORD": "admin.password",
		"DATABASE_URL":   "database.url",
		"DB_USER":        "database.user",
		"DB_PASSWORD":    "database.password",
		"DEVICE_ID":      "client.device_id",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// ParseServerList turns "url1,url2" into enabled endpoints ranked in order
func ParseServerList(list string) []EndpointConfig {
	var out []EndpointConfig
	for _, raw := range strings.Split(list, ",") {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		out = append(out, EndpointConfig{URL: strings.TrimRight(url, "/"), Priority: len(out), Enabled: true})
	}
	return out
}

func validateServerConfig(config *Config) error {
	if config.Security.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if config.Security.LoginTokenTTL < time.Second || config.Security.GenerateTokenTTL < time.Second {
		return fmt.Errorf("token ttls must be at least one second")
	}

	if config.API.RateLimit < 0 {
		return fmt.Errorf("api rate limit cannot be negative")
	}

	if _, err := ParseNetworks(config.API.GenerateAllowedCIDRs); err != nil {
		return fmt.Errorf("invalid generate_allowed_cidrs: %w", err)
	}

	switch config.Database.Type {
	case "memory":
	case "sqlite":
		if config.Database.Path == "" {
			return fmt.Errorf("sqlite requires path")
		}
	case "postgres":
		if config.Database.URL == "" && (config.Database.Host == "" || config.Database.User == "") {
			return fmt.Errorf("postgres requires url or host and user")
		}
		if config.Database.Driver != "pq" && config.Database.Driver != "pgx" {
			return fmt.Errorf("unsupported postgres driver: %s", config.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	return nil
}

func validateClientConfig(client *ClientConfig) error {
	enabled := 0
	for _, s := range client.Servers {
		if s.URL == "" {
			return fmt.Errorf("server url is required")
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one enabled server is required")
	}

	if client.MaxAttempts < 1 || client.MaxFailures < 1 {
		return fmt.Errorf("max_attempts and max_failures must be positive")
	}

	for name, d := range map[string]time.Duration{
		"base_backoff":      client.BaseBackoff,
		"health_interval":   client.HealthInterval,
		"probe_timeout":     client.ProbeTimeout,
		"request_timeout":   client.RequestTimeout,
		"connect_timeout":   client.ConnectTimeout,
		"idle_conn_timeout": client.IdleConnTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("client %s must be positive", name)
		}
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	switch c.Database.Type {
	case "postgres":
		if c.Database.URL != "" {
			return c.Database.URL
		}
		sslMode := c.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host, c.Database.Port, c.Database.User,
			c.Database.Password, c.Database.DBName, sslMode)
	case "sqlite":
		return c.Database.Path
	default:
		return ""
	}
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// SanitizeForLogging returns a copy of the config with sensitive data redacted
func (c *Config) SanitizeForLogging() *Config {
	sanitized := *c

	if sanitized.Security.JWTSecret != "" {
		sanitized.Security.JWTSecret = "[REDACTED]"
	}

	if sanitized.Admin.Password != "" {
		sanitized.Admin.Password = "[REDACTED]"
	}

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = "[REDACTED]"
	}

	if sanitized.Database.URL != "" {
		sanitized.Database.URL = "[REDACTED]"
	}

	return &sanitized
}

func defaultDeviceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown-device"
}

// ParseNetworks parses CIDRs, accepting bare addresses as single-host networks
func ParseNetworks(cidrs []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", raw, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
