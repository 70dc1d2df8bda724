package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ATTIRA_DB_DSN"
	EnvDBHost = "ATTIRA_DB_HOST"
	EnvDBUser = "ATTIRA_DB_USER"
	EnvDBName = "ATTIRA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Shipping     ShippingConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ATTIRA_APP_ENV" required:"true"`
	Port         string `envconfig:"ATTIRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ATTIRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATTIRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ATTIRA_DB_DSN"`
	Driver string `envconfig:"ATTIRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ATTIRA_DB_HOST"`
	LegacyPort     int    `envconfig:"ATTIRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ATTIRA_DB_USER"`
	LegacyPassword string `envconfig:"ATTIRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"ATTIRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"ATTIRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATTIRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATTIRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATTIRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATTIRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATTIRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATTIRA_REDIS_ADDR"`
	Password     string        `envconfig:"ATTIRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATTIRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATTIRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATTIRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATTIRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATTIRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATTIRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ATTIRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ATTIRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ATTIRA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	TxTimeout        time.Duration `envconfig:"ATTIRA_CHECKOUT_TX_TIMEOUT" default:"10s"`
	ShippingFee      string        `envconfig:"ATTIRA_CHECKOUT_SHIPPING_FEE" default:"49"`
	FreeShippingOver string        `envconfig:"ATTIRA_CHECKOUT_FREE_SHIPPING_OVER" default:"999"`
	ReturnWindowDays int           `envconfig:"ATTIRA_RETURN_WINDOW_DAYS" default:"7"`
	WebhookEventTTL  time.Duration `envconfig:"ATTIRA_WEBHOOK_EVENT_TTL" default:"720h"`

	WebhookRateLimit  int64         `envconfig:"ATTIRA_WEBHOOK_RATE_LIMIT" default:"300"`
	WebhookRateWindow time.Duration `envconfig:"ATTIRA_WEBHOOK_RATE_WINDOW" default:"1m"`
}

type ShippingConfig struct {
	CarrierBaseURL string        `envconfig:"ATTIRA_CARRIER_BASE_URL"`
	CarrierToken   string        `envconfig:"ATTIRA_CARRIER_TOKEN"`
	PushTimeout    time.Duration `envconfig:"ATTIRA_CARRIER_PUSH_TIMEOUT" default:"15s"`
	PushAttempts   int           `envconfig:"ATTIRA_CARRIER_PUSH_ATTEMPTS" default:"3"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"ATTIRA_CRON_INTERVAL" default:"1h"`
	PendingPaymentTTL  time.Duration `envconfig:"ATTIRA_CRON_PENDING_PAYMENT_TTL" default:"24h"`
	MetricsPort        string        `envconfig:"ATTIRA_CRON_METRICS_PORT" default:"9100"`
	LockTTL            time.Duration `envconfig:"ATTIRA_CRON_LOCK_TTL" default:"2h"`
	ExpiryBatchLimit   int           `envconfig:"ATTIRA_CRON_EXPIRY_BATCH_LIMIT" default:"200"`
	DisablePendingScan bool          `envconfig:"ATTIRA_CRON_DISABLE_PENDING_SCAN" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ATTIRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ATTIRA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
