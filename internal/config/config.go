package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"   // Single file next to the library (default)
	DatabaseDriverPostgres DatabaseDriver = "postgres" // Shared server, mostly for development
)

type StorageDriver string

const (
	StorageDriverLocal StorageDriver = "local"
	StorageDriverS3    StorageDriver = "s3"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Logging
		Bridge
		Init
		Tasks
		Cache
		Storage
		Dictionary
		Metrics
		Crypto
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // sqlite only
		Host     string // postgres only
		Port     int
		Name     string
		User     string
		Password string
		SSLMode  string
		LogLevel string // silent, error, warn, info
	}
	Logging struct {
		Level  string // debug, info, warn, error
		Format string // json, console
	}
	Bridge struct {
		Token          string   // Empty disables bridge authentication
		AllowedOrigins []string // Renderer origins allowed by CORS
		InvokeTimeout  time.Duration
	}
	Init struct {
		PhaseTimeout time.Duration // Used when a phase declares no timeout
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Cache struct {
		DefaultTTL    time.Duration
		PurgeEnabled  bool
		PurgeSchedule string // Cron format: "*/30 * * * *" = every 30 minutes
	}
	Storage struct {
		Driver         StorageDriver
		LibraryDir     string // Local media library root
		LocalRoot      string // Upload target for the local driver
		Bucket         string
		Region         string
		Endpoint       string
		KeyPrefix      string
		ForcePathStyle bool
		AccessKeyID    string // Empty uses the default AWS credential chain
		SecretKey      string
	}
	Dictionary struct {
		BaseURL  string
		CacheTTL time.Duration
	}
	Metrics struct {
		Enabled bool
	}
	Crypto struct {
		SettingsKey string // Base64 AES-256 key for secret user settings
	}
)

// Load reads configuration from the environment and, when configFile is not empty,
// from the given file. Environment values win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfig builds the configuration from environment variables and defaults only.
func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8199)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", 5432)
	v.SetDefault("database_name", "lingua")
	v.SetDefault("database_user", "lingua")
	v.SetDefault("database_password", "")
	v.SetDefault("database_sslmode", "disable")
	v.SetDefault("database_log_level", "warn")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("bridge_token", "")
	v.SetDefault("bridge_allowed_origins", "http://localhost:3000,app://.")
	v.SetDefault("bridge_invoke_timeout", "30s")

	v.SetDefault("init_phase_timeout", "30s")

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("cache_default_ttl", "24h")
	v.SetDefault("cache_purge_enabled", true)
	v.SetDefault("cache_purge_schedule", "*/30 * * * *")

	v.SetDefault("storage_driver", string(StorageDriverLocal))
	v.SetDefault("library_dir", DefaultLibraryDir)
	v.SetDefault("storage_local_root", DefaultStorageLocalRoot)
	v.SetDefault("storage_bucket", "")
	v.SetDefault("storage_region", "")
	v.SetDefault("storage_endpoint", "")
	v.SetDefault("storage_key_prefix", "")
	v.SetDefault("storage_force_path_style", false)
	v.SetDefault("storage_access_key_id", "")
	v.SetDefault("storage_secret_key", "")

	v.SetDefault("dictionary_base_url", DefaultDictionaryBaseURL)
	v.SetDefault("dictionary_cache_ttl", "168h") // One week

	v.SetDefault("metrics_enabled", true)

	v.SetDefault("settings_encryption_key", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			Name:     v.GetString("DATABASE_NAME"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Bridge: Bridge{
			Token:          v.GetString("BRIDGE_TOKEN"),
			AllowedOrigins: splitList(v.GetString("BRIDGE_ALLOWED_ORIGINS")),
			InvokeTimeout:  v.GetDuration("BRIDGE_INVOKE_TIMEOUT"),
		},
		Init: Init{
			PhaseTimeout: v.GetDuration("INIT_PHASE_TIMEOUT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Cache: Cache{
			DefaultTTL:    v.GetDuration("CACHE_DEFAULT_TTL"),
			PurgeEnabled:  v.GetBool("CACHE_PURGE_ENABLED"),
			PurgeSchedule: v.GetString("CACHE_PURGE_SCHEDULE"),
		},
		Storage: Storage{
			Driver:         StorageDriver(v.GetString("STORAGE_DRIVER")),
			LibraryDir:     v.GetString("LIBRARY_DIR"),
			LocalRoot:      v.GetString("STORAGE_LOCAL_ROOT"),
			Bucket:         v.GetString("STORAGE_BUCKET"),
			Region:         v.GetString("STORAGE_REGION"),
			Endpoint:       v.GetString("STORAGE_ENDPOINT"),
			KeyPrefix:      v.GetString("STORAGE_KEY_PREFIX"),
			ForcePathStyle: v.GetBool("STORAGE_FORCE_PATH_STYLE"),
			AccessKeyID:    v.GetString("STORAGE_ACCESS_KEY_ID"),
			SecretKey:      v.GetString("STORAGE_SECRET_KEY"),
		},
		Dictionary: Dictionary{
			BaseURL:  v.GetString("DICTIONARY_BASE_URL"),
			CacheTTL: v.GetDuration("DICTIONARY_CACHE_TTL"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Crypto: Crypto{
			SettingsKey: v.GetString("SETTINGS_ENCRYPTION_KEY"),
		},
	}
}

// Validate reports configuration combinations that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DatabaseDriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return fmt.Errorf("postgres host, name and user are required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Storage.LibraryDir == "" {
		return fmt.Errorf("library directory is required")
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("storage local root is required for the local driver")
		}
	case StorageDriverS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for s3")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}

	if c.Cache.PurgeEnabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Cache.PurgeSchedule); err != nil {
			return fmt.Errorf("invalid cache purge schedule %q: %w", c.Cache.PurgeSchedule, err)
		}
	}

	if c.Tasks.Enabled && c.Tasks.Workers < 1 {
		return fmt.Errorf("task workers must be at least 1")
	}

	return nil
}

// PostgresDSN returns the connection string for the postgres driver.
func (d Database) PostgresDSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s", d.Host, d.Port, d.User, d.Name)
	if d.Password != "" {
		dsn += fmt.Sprintf(" password=%s", d.Password)
	}
	if d.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", d.SSLMode)
	}
	return dsn
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
