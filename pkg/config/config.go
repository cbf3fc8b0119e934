package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Token store backends.
const (
	TokenStoreFile     = "file"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
)

type Config struct {
	Env string

	API        APIConfig
	TokenStore TokenStoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Reconcile  ReconcileConfig
	Export     ExportConfig
	Sandbox    SandboxConfig
}

// APIConfig points the client at the remote workflow API.
type APIConfig struct {
	BaseURL string
	Prefix  string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

// TokenStoreConfig selects where the session token survives restarts.
type TokenStoreConfig struct {
	Backend string
	Key     string
	Dir     string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig exposes client-side Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string
}

// ReconcileConfig drives the periodic re-fetch used by watch mode.
type ReconcileConfig struct {
	Schedule string
}

// ExportConfig controls where rendered exports land and how long they are
// kept. A zero TTL keeps them forever.
type ExportConfig struct {
	Dir string
	TTL time.Duration
}

// SandboxConfig configures the local in-memory API used for development.
type SandboxConfig struct {
	Port           int
	JWTSecret      string
	JWTExpiration  time.Duration
	AllowedOrigins []string
	SeedPassword   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.API = APIConfig{
		BaseURL: strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Prefix:  normalizePrefix(v.GetString("API_PREFIX")),
		Timeout: parseDuration(v.GetString("HTTP_TIMEOUT"), 0),
	}

	cfg.TokenStore = TokenStoreConfig{
		Backend: strings.ToLower(v.GetString("TOKEN_STORE")),
		Key:     v.GetString("TOKEN_STORE_KEY"),
		Dir:     v.GetString("TOKEN_STORE_DIR"),
	}

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Addr: v.GetString("METRICS_ADDR")}
	cfg.Reconcile = ReconcileConfig{Schedule: v.GetString("RECONCILE_SCHEDULE")}
	cfg.Export = ExportConfig{
		Dir: v.GetString("EXPORT_DIR"),
		TTL: parseDuration(v.GetString("EXPORT_TTL"), 0),
	}

	cfg.Sandbox = SandboxConfig{
		Port:           v.GetInt("SANDBOX_PORT"),
		JWTSecret:      v.GetString("SANDBOX_JWT_SECRET"),
		JWTExpiration:  parseDuration(v.GetString("SANDBOX_JWT_EXPIRATION"), 30*time.Minute),
		AllowedOrigins: splitAndTrim(v.GetString("SANDBOX_ALLOWED_ORIGINS")),
		SeedPassword:   v.GetString("SANDBOX_SEED_PASSWORD"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("HTTP_TIMEOUT", "")

	v.SetDefault("TOKEN_STORE", TokenStoreFile)
	v.SetDefault("TOKEN_STORE_KEY", "token")
	v.SetDefault("TOKEN_STORE_DIR", "./.cleanops")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cleanops_client")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 2)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("RECONCILE_SCHEDULE", "@every 1m")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_TTL", "168h")

	v.SetDefault("SANDBOX_PORT", 8000)
	v.SetDefault("SANDBOX_JWT_SECRET", "dev_sandbox_secret")
	v.SetDefault("SANDBOX_JWT_EXPIRATION", "30m")
	v.SetDefault("SANDBOX_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("SANDBOX_SEED_PASSWORD", "Passw0rd!")
}

// APIURL joins the base URL, prefix and a resource path.
func (c APIConfig) APIURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + c.Prefix + path
}

func normalizePrefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "/" {
		return ""
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return strings.TrimRight(raw, "/")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
