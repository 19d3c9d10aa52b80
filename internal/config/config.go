package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from the environment; a .env file in the working directory is loaded first when present.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Webhook WebhookConfig
	Ingest  IngestConfig
	Storage StorageConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is empty the webhook token replay guard is disabled.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type WebhookConfig struct {
	// SigningKey is the shared secret used to verify inbound email deliveries.
	SigningKey string
	// ReplayWindow bounds how far a delivery timestamp may drift from now.
	ReplayWindow time.Duration
	// RoutePrefix is the local-part prefix of routing addresses: <prefix>-<key>@domain.
	RoutePrefix        string
	MaxAttachmentBytes int64
	MaxBodyBytes       int64
}

type IngestConfig struct {
	// Provider is stored on every CallEvent and is half of the dedup key.
	Provider       string
	ReportTimezone string
}

type StorageConfig struct {
	// Backend is "local" or "s3".
	Backend   string
	LocalRoot string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

const (
	defaultReplayWindow       = 300 * time.Second
	defaultMaxAttachmentBytes = 10 << 20
	defaultMaxBodyBytes       = 50 << 20
)

func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	parseErrs := c.loadCore()
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")

	c.Webhook.SigningKey = os.Getenv("WEBHOOK_SIGNING_KEY")
	c.Webhook.ReplayWindow = optionalDuration("WEBHOOK_REPLAY_WINDOW")
	c.Webhook.RoutePrefix = strings.TrimSpace(os.Getenv("WEBHOOK_ROUTE_PREFIX"))
	{
		n, err := optionalInt64("WEBHOOK_MAX_ATTACHMENT_BYTES")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Webhook.MaxAttachmentBytes = n
	}
	{
		n, err := optionalInt64("WEBHOOK_MAX_BODY_BYTES")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Webhook.MaxBodyBytes = n
	}

	c.Ingest.Provider = strings.TrimSpace(os.Getenv("INGEST_PROVIDER"))
	c.Ingest.ReportTimezone = strings.TrimSpace(os.Getenv("INGEST_REPORT_TIMEZONE"))

	c.Storage.Backend = strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))
	c.Storage.LocalRoot = strings.TrimSpace(os.Getenv("STORAGE_LOCAL_ROOT"))
	c.Storage.S3Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	c.Storage.S3Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	c.Storage.S3Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	c.Storage.S3AccessKeyID = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID"))
	c.Storage.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	errs := c.validateCore()

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Webhook.SigningKey == "" {
		errs = append(errs, errors.New("WEBHOOK_SIGNING_KEY is required"))
	}
	if c.Webhook.ReplayWindow <= 0 {
		c.Webhook.ReplayWindow = defaultReplayWindow
	}
	if c.Webhook.RoutePrefix == "" {
		c.Webhook.RoutePrefix = "calls"
	}
	if c.Webhook.MaxAttachmentBytes <= 0 {
		c.Webhook.MaxAttachmentBytes = defaultMaxAttachmentBytes
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		c.Webhook.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Webhook.MaxBodyBytes < c.Webhook.MaxAttachmentBytes {
		errs = append(errs, errors.New("WEBHOOK_MAX_BODY_BYTES must be >= WEBHOOK_MAX_ATTACHMENT_BYTES"))
	}

	if c.Ingest.Provider == "" {
		c.Ingest.Provider = "ringcentral"
	}
	if c.Ingest.ReportTimezone == "" {
		c.Ingest.ReportTimezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Ingest.ReportTimezone); err != nil {
		errs = append(errs, fmt.Errorf("INGEST_REPORT_TIMEZONE is not a valid IANA zone: %q", c.Ingest.ReportTimezone))
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "local"
		fallthrough
	case "local":
		if c.Storage.LocalRoot == "" {
			c.Storage.LocalRoot = "./data/reports"
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
		if c.Storage.S3Region == "" {
			c.Storage.S3Region = "us-east-1"
		}
		if (c.Storage.S3AccessKeyID == "") != (c.Storage.S3SecretAccessKey == "") {
			errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.Storage.Backend))
	}

	return joinErrors(errs)
}

// LoadDatabase reads only the App and DB groups. Tools such as the migrator use
// it so they do not need webhook or auth secrets.
func LoadDatabase() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	if err := joinErrors(c.loadCore()); err != nil {
		return Config{}, err
	}
	if err := joinErrors(c.validateCore()); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) loadCore() []error {
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	return parseErrs
}

func (c *Config) validateCore() []error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// RedisAddr returns "" when Redis is not configured.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt64(key string) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
