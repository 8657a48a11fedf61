package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Storage       StorageConfig       `mapstructure:"storage"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Graph         GraphConfig         `mapstructure:"graph"`
	Log           LogConfig           `mapstructure:"log"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Cron          CronConfig          `mapstructure:"cron"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Auth          AuthConfig          `mapstructure:"auth"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DebugErrors     bool          `mapstructure:"debug_errors"`
	FrontendURL     string        `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres/sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type StorageConfig struct {
	LocalDir        string `mapstructure:"local_dir"`
	AttachmentMaxMB int64  `mapstructure:"attachment_max_mb"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
	Issuer             string        `mapstructure:"issuer"`
}

type GraphConfig struct {
	TenantID        string        `mapstructure:"tenant_id"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	Sender          string        `mapstructure:"sender"`
	SaveToSentItems bool          `mapstructure:"save_to_sent_items"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Backoff         time.Duration `mapstructure:"backoff"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WorkflowConfig struct {
	MaxDraftsPerUser int    `mapstructure:"max_drafts_per_user"`
	PONumberPrefix   string `mapstructure:"po_number_prefix"`
	PONumberPadding  int    `mapstructure:"po_number_padding"`
}

type NotificationsConfig struct {
	SendEmail     bool `mapstructure:"send_email"`
	RetentionDays int  `mapstructure:"retention_days"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ETAOverdue     string `mapstructure:"eta_overdue"`
	RetentionPurge string `mapstructure:"retention_purge"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
	AuthBurst     int `mapstructure:"auth_burst"`
}

type AuthConfig struct {
	AutoActivate bool `mapstructure:"auto_activate"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.debug_errors", false)
	v.SetDefault("server.frontend_url", "http://localhost:5173")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "procura")
	v.SetDefault("database.dbname", "procura")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "procura.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("minio.bucket", "procura-attachments")

	v.SetDefault("storage.local_dir", "media")
	v.SetDefault("storage.attachment_max_mb", 20)

	v.SetDefault("jwt.access_token_expire", 30*time.Minute)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "procura")

	v.SetDefault("graph.save_to_sent_items", false)
	v.SetDefault("graph.timeout", 30*time.Second)
	v.SetDefault("graph.max_retries", 3)
	v.SetDefault("graph.backoff", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.max_drafts_per_user", 15)
	v.SetDefault("workflow.po_number_prefix", "PO-")
	v.SetDefault("workflow.po_number_padding", 5)

	v.SetDefault("notifications.send_email", false)
	v.SetDefault("notifications.retention_days", 90)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.eta_overdue", "0 8 * * *")
	v.SetDefault("cron.retention_purge", "30 3 * * *")

	v.SetDefault("ratelimit.auth_per_minute", 20)
	v.SetDefault("ratelimit.auth_burst", 5)

	v.SetDefault("auth.auto_activate", false)
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.debug_errors", "API_DEBUG_ERRORS")
	v.BindEnv("server.frontend_url", "FRONTEND_URL")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sqlite_path", "DB_SQLITE_PATH")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")

	// Storage
	v.BindEnv("storage.attachment_max_mb", "ATTACHMENT_MAX_MB")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Microsoft Graph
	v.BindEnv("graph.tenant_id", "GRAPH_TENANT_ID")
	v.BindEnv("graph.client_id", "GRAPH_CLIENT_ID")
	v.BindEnv("graph.client_secret", "GRAPH_CLIENT_SECRET")
	v.BindEnv("graph.sender", "GRAPH_SENDER")
	v.BindEnv("graph.save_to_sent_items", "GRAPH_SAVE_TO_SENT_ITEMS")
	v.BindEnv("graph.timeout", "GRAPH_TIMEOUT")
	v.BindEnv("graph.max_retries", "GRAPH_MAX_RETRIES")
	v.BindEnv("graph.backoff", "GRAPH_BACKOFF")

	// Workflow
	v.BindEnv("workflow.max_drafts_per_user", "BOM_MAX_DRAFTS_PER_USER")
	v.BindEnv("workflow.po_number_prefix", "PO_NUMBER_PREFIX")
	v.BindEnv("workflow.po_number_padding", "PO_NUMBER_PADDING")

	// Notifications
	v.BindEnv("notifications.send_email", "NOTIFICATIONS_SEND_EMAIL")
	v.BindEnv("notifications.retention_days", "NOTIFICATIONS_RETENTION_DAYS")

	v.BindEnv("auth.auto_activate", "AUTH_AUTO_ACTIVATE")
}

// GetEnvOrDefault returns the environment value for key, or defaultValue when unset.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
