package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"

	minCodeBytes = 5
)

type (
	APP struct {
		Name          string
		Host          string
		Port          string
		Env           string
		JWTSecret     string
		PublicBaseURL string
		AdminTokenTTL time.Duration
	}
	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
	Ledger struct {
		Driver     string
		SQLitePath string
	}
	DB struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
		SSLMode  string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Storage struct {
		Dir string
	}
	Transfer struct {
		DefaultTTL     time.Duration
		MaxTTL         time.Duration
		CodeBytes      int
		MaxUploadBytes int64
		SweepInterval  time.Duration
		OrphanGrace    time.Duration
		ReaperAttempts int
	}
	HTTP struct {
		DownloadRatePerMinute int
		CORSOrigins           []string
	}
	Auth struct {
		// UploadTokens and AdminUsers are "name:secret" pairs; a secret may be a bcrypt hash.
		UploadTokens  []string
		AdminUsers    []string
		TokenCacheTTL time.Duration
	}
	CLI struct {
		Version    string
		BinaryPath string
	}

	Config struct {
		App      APP
		Log      Log
		Ledger   Ledger
		DB       DB
		Redis    Redis
		MQ       MQ
		Storage  Storage
		Transfer Transfer
		HTTP     HTTP
		Auth     Auth
		CLI      CLI
	}
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envParser collects every malformed value instead of stopping at the first.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *envParser) int64(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *envParser) bool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// ParseDuration accepts a Go duration ("90m") or a plain number of seconds.
func ParseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func Load() (Config, error) {
	p := &envParser{}

	app := APP{
		Name:          getEnv("SERVICE_NAME", "devtransfer"),
		Host:          getEnv("SERVICE_HOST", ""),
		Port:          getEnv("SERVICE_PORT", "8000"),
		Env:           getEnv("SERVICE_ENV", ""),
		JWTSecret:     getEnv("SERVICE_JWT_SECRET", ""),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
		AdminTokenTTL: p.duration("ADMIN_TOKEN_TTL", time.Hour),
	}
	lg := Log{
		Level:      getEnv("LOG_LEVEL", "info"),
		Path:       getEnv("LOG_PATH", ""),
		MaxSizeMB:  p.int("LOG_MAX_SIZE_MB", 100),
		MaxBackups: p.int("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: p.int("LOG_MAX_AGE_DAYS", 7),
		Compress:   p.bool("LOG_COMPRESS", false),
	}
	ledger := Ledger{
		Driver:     strings.ToLower(getEnv("LEDGER_DRIVER", DriverSQLite)),
		SQLitePath: getEnv("SQLITE_PATH", "data/ledger.db"),
	}
	db := DB{
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Name:     getEnv("POSTGRES_DB", ""),
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", ""),
	}
	rd := Redis{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       p.int("REDIS_DB", 0),
	}
	mq := MQ{
		User:         getEnv("RABBITMQ_USER", ""),
		Password:     getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:        getEnv("RABBITMQ_VHOST", ""),
		Host:         getEnv("RABBITMQ_HOST", ""),
		AmqpPort:     getEnv("RABBITMQ_AMQP_PORT", "5672"),
		Exchange:     getEnv("RABBITMQ_EXCHANGE", "devtransfer.events"),
		ExchangeType: getEnv("RABBITMQ_EXCHANGE_TYPE", "topic"),
		QueueName:    getEnv("RABBITMQ_QUEUE_NAME", "devtransfer.audit"),
	}
	storage := Storage{
		Dir: getEnv("STORAGE_DIR", "data/blobs"),
	}
	tr := Transfer{
		DefaultTTL:     p.duration("TRANSFER_DEFAULT_TTL", 24*time.Hour),
		MaxTTL:         p.duration("TRANSFER_MAX_TTL", 7*24*time.Hour),
		CodeBytes:      p.int("TRANSFER_CODE_BYTES", 8),
		MaxUploadBytes: p.int64("TRANSFER_MAX_UPLOAD_BYTES", 2<<30),
		SweepInterval:  p.duration("SWEEP_INTERVAL", time.Minute),
		OrphanGrace:    p.duration("ORPHAN_GRACE", time.Hour),
		ReaperAttempts: p.int("REAPER_ATTEMPTS", 3),
	}
	httpCfg := HTTP{
		DownloadRatePerMinute: p.int("DOWNLOAD_RATE_PER_MINUTE", 60),
		CORSOrigins:           list(getEnv("CORS_ORIGINS", "")),
	}
	auth := Auth{
		UploadTokens:  list(getEnv("UPLOAD_TOKENS", "")),
		AdminUsers:    list(getEnv("ADMIN_USERS", "")),
		TokenCacheTTL: p.duration("TOKEN_CACHE_TTL", 5*time.Minute),
	}
	cli := CLI{
		Version:    getEnv("CLI_VERSION", "0.1.0"),
		BinaryPath: getEnv("CLI_BINARY_PATH", ""),
	}

	cfg := Config{
		App:      app,
		Log:      lg,
		Ledger:   ledger,
		DB:       db,
		Redis:    rd,
		MQ:       mq,
		Storage:  storage,
		Transfer: tr,
		HTTP:     httpCfg,
		Auth:     auth,
		CLI:      cli,
	}

	return cfg, errors.Join(p.errs...)
}

// Validate rejects combinations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Ledger.Driver {
	case DriverSQLite, DriverPostgres, DriverRedis, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_DRIVER %q", c.Ledger.Driver))
	}
	if c.Transfer.CodeBytes < minCodeBytes {
		errs = append(errs, fmt.Errorf("TRANSFER_CODE_BYTES must be at least %d", minCodeBytes))
	}
	if c.Transfer.DefaultTTL < 0 {
		errs = append(errs, errors.New("TRANSFER_DEFAULT_TTL must not be negative"))
	}
	if c.Transfer.MaxTTL < c.Transfer.DefaultTTL {
		errs = append(errs, errors.New("TRANSFER_MAX_TTL is below TRANSFER_DEFAULT_TTL"))
	}
	if c.Transfer.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.Transfer.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("TRANSFER_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("STORAGE_DIR is required"))
	}
	if len(c.Auth.AdminUsers) > 0 && c.App.JWTSecret == "" {
		errs = append(errs, errors.New("SERVICE_JWT_SECRET is required when ADMIN_USERS is set"))
	}

	return errors.Join(errs...)
}

func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	dsn := fmt.Sprintf(
		"postgres://%s@%s:%s/%s",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	)
	if c.DB.SSLMode != "" {
		dsn += "?sslmode=" + url.QueryEscape(c.DB.SSLMode)
	}

	return dsn, nil
}

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}
