package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Log       LogConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	CatalogDB CatalogDBConfig
	Storage   StorageConfig
	Events    EventsConfig
	Editor    EditorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	// MaxUploadBytes bounds one multipart image batch.
	MaxUploadBytes int64    `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"104857600"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"listing-admin-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Debug       bool     `envconfig:"APP_DEBUG" default:"false"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string   `envconfig:"LOGIN_KEY" default:""` // Admin dashboard login key
	APIKeys     []string `envconfig:"API_KEYS" default:""`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"` // json or console
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds MySQL connection settings (for admin_accounts).
// An empty host disables password login.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:""`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"listing_admin"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// CatalogDBConfig holds listing catalog database settings.
type CatalogDBConfig struct {
	Type string `envconfig:"CATALOG_DB_TYPE" default:"sqlite"` // sqlite, postgres, or mongodb
	Path string `envconfig:"CATALOG_DB_PATH" default:"./data/catalog.db"`
	// PostgreSQL settings
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"listing_admin"`
	User     string `envconfig:"CATALOG_DB_USER" default:"postgres"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
	SSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"listing_admin"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"listings"`
}

// StorageConfig holds image storage settings.
type StorageConfig struct {
	Type      string `envconfig:"STORAGE_TYPE" default:"inline"` // inline or minio
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"listing-images"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	// PublicURL is the base of object URLs handed to the dashboard.
	PublicURL string `envconfig:"MINIO_PUBLIC_URL" default:""`
}

// EventsConfig holds NATS settings. An empty URL disables publishing.
type EventsConfig struct {
	NatsURL       string `envconfig:"NATS_URL" default:""`
	SubjectPrefix string `envconfig:"NATS_SUBJECT_PREFIX" default:"listing"`
}

// EditorConfig holds editor session settings.
type EditorConfig struct {
	SessionTTL   time.Duration `envconfig:"EDITOR_SESSION_TTL" default:"30m"`
	ReapInterval time.Duration `envconfig:"EDITOR_REAP_INTERVAL" default:"1m"`
	LoadTimeout  time.Duration `envconfig:"EDITOR_LOAD_TIMEOUT" default:"10s"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *CatalogDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// SQLiteDSN returns the SQLite connection string with WAL and a busy timeout.
func (c *CatalogDBConfig) SQLiteDSN() string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", c.Path)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Enabled reports whether admin accounts are configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks settings that envconfig cannot.
func (c *Config) Validate() error {
	switch c.CatalogDB.Type {
	case "sqlite", "postgres", "mongodb":
	default:
		return fmt.Errorf("unsupported CATALOG_DB_TYPE %q", c.CatalogDB.Type)
	}
	switch c.Storage.Type {
	case "inline", "minio":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.CatalogDB.Type == "mongodb" && c.CatalogDB.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required for CATALOG_DB_TYPE=mongodb")
	}
	if c.Editor.SessionTTL <= 0 {
		return fmt.Errorf("EDITOR_SESSION_TTL must be positive")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
