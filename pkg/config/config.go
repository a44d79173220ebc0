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

// Storage drivers.
const (
	StorageDriverLocal = "local"
	StorageDriverB2    = "b2"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Session    SessionConfig
	Enrollment EnrollmentConfig
	DocStore   DocStoreConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Metrics    MetricsConfig
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
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	ApplicationName string
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig governs the student session cookie and the route guard.
type SessionConfig struct {
	StudentCookieName string
	StudentSecret     string
	StudentTTL        time.Duration
	SecureCookies     bool
	ResolveTimeout    time.Duration
	LoginPath         string
	LoginRetries      int
	LoginRetryDelay   time.Duration
}

// EnrollmentConfig tunes credential derivation.
type EnrollmentConfig struct {
	InstitutionTag     string
	AllowClassFallback bool
	CollisionRetries   int
}

// DocStoreConfig points at the bbolt file holding materials and quizzes.
type DocStoreConfig struct {
	Path    string
	Timeout time.Duration
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
	Driver          string
	Dir             string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	B2AccountID     string
	B2AppKey        string
	B2Bucket        string
}

// CacheConfig toggles Redis caching of public listings.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
		ConnMaxIdleTime: parseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"), 30*time.Minute),
		ConnectTimeout:  parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		ApplicationName: v.GetString("DB_APPLICATION_NAME"),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{
		StudentCookieName: v.GetString("STUDENT_COOKIE_NAME"),
		StudentSecret:     v.GetString("STUDENT_SESSION_SECRET"),
		StudentTTL:        parseDuration(v.GetString("STUDENT_SESSION_TTL"), 30*24*time.Hour),
		SecureCookies:     v.GetBool("SECURE_COOKIES"),
		ResolveTimeout:    parseDuration(v.GetString("SESSION_RESOLVE_TIMEOUT"), 3*time.Second),
		LoginPath:         v.GetString("LOGIN_PATH"),
		LoginRetries:      v.GetInt("STUDENT_LOGIN_RETRIES"),
		LoginRetryDelay:   parseDuration(v.GetString("STUDENT_LOGIN_RETRY_DELAY"), 200*time.Millisecond),
	}

	cfg.Enrollment = EnrollmentConfig{
		InstitutionTag:     strings.ToUpper(v.GetString("INSTITUTION_TAG")),
		AllowClassFallback: v.GetBool("ENROLL_ALLOW_CLASS_FALLBACK"),
		CollisionRetries:   v.GetInt("ENROLL_COLLISION_RETRIES"),
	}

	cfg.DocStore = DocStoreConfig{
		Path:    v.GetString("DOCSTORE_PATH"),
		Timeout: parseDuration(v.GetString("DOCSTORE_OPEN_TIMEOUT"), 2*time.Second),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Dir:             v.GetString("STORAGE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 24*time.Hour),
		MaxUploadBytes:  maxUpload,
		B2AccountID:     v.GetString("B2_KEY_ID"),
		B2AppKey:        v.GetString("B2_APP_KEY"),
		B2Bucket:        v.GetString("B2_BUCKET"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coaching")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_APPLICATION_NAME", "coaching-api")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "coaching-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STUDENT_COOKIE_NAME", "studentUser")
	v.SetDefault("STUDENT_SESSION_SECRET", "dev_student_secret")
	v.SetDefault("STUDENT_SESSION_TTL", "720h")
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("SESSION_RESOLVE_TIMEOUT", "3s")
	v.SetDefault("LOGIN_PATH", "/login")
	v.SetDefault("STUDENT_LOGIN_RETRIES", 2)
	v.SetDefault("STUDENT_LOGIN_RETRY_DELAY", "200ms")

	v.SetDefault("INSTITUTION_TAG", "PP")
	v.SetDefault("ENROLL_ALLOW_CLASS_FALLBACK", false)
	v.SetDefault("ENROLL_COLLISION_RETRIES", 3)

	v.SetDefault("DOCSTORE_PATH", "./data/documents.db")
	v.SetDefault("DOCSTORE_OPEN_TIMEOUT", "2s")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "24h")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 20*1024*1024)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("ENABLE_METRICS", true)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
