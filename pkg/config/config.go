package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable consumed by the service.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AGENDFY_DB_DSN"
	EnvDBHost = "AGENDFY_DB_HOST"
	EnvDBUser = "AGENDFY_DB_USER"
	EnvDBName = "AGENDFY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Trial        TrialConfig
	Cron         CronConfig
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
	Env          string `envconfig:"AGENDFY_APP_ENV" required:"true"`
	Port         string `envconfig:"AGENDFY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGENDFY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGENDFY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGENDFY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGENDFY_DB_DSN"`
	Driver string `envconfig:"AGENDFY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGENDFY_DB_HOST"`
	LegacyPort     int    `envconfig:"AGENDFY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGENDFY_DB_USER"`
	LegacyPassword string `envconfig:"AGENDFY_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGENDFY_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGENDFY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGENDFY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGENDFY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGENDFY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGENDFY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGENDFY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGENDFY_REDIS_ADDR"`
	Password     string        `envconfig:"AGENDFY_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGENDFY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGENDFY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGENDFY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGENDFY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGENDFY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGENDFY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGENDFY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGENDFY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGENDFY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGENDFY_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey              string        `envconfig:"AGENDFY_STRIPE_API_KEY"`
	Secret              string        `envconfig:"AGENDFY_STRIPE_SECRET"`
	Env                 string        `envconfig:"AGENDFY_STRIPE_ENV" default:"test"`
	SubscriptionPriceID string        `envconfig:"AGENDFY_STRIPE_SUBSCRIPTION_PRICE_ID"`
	SuccessURL          string        `envconfig:"AGENDFY_STRIPE_SUCCESS_URL" default:"https://app.agendfy.com/billing/success"`
	CancelURL           string        `envconfig:"AGENDFY_STRIPE_CANCEL_URL" default:"https://app.agendfy.com/billing/canceled"`
	FetchTimeout        time.Duration `envconfig:"AGENDFY_STRIPE_FETCH_TIMEOUT" default:"10s"`
	IdempotencyTTL      time.Duration `envconfig:"AGENDFY_STRIPE_IDEMPOTENCY_TTL" default:"48h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type TrialConfig struct {
	DurationDays int `envconfig:"AGENDFY_TRIAL_DURATION_DAYS" default:"3"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"AGENDFY_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"AGENDFY_CRON_LOCK_TTL" default:"2h"`
	SweepLimit int           `envconfig:"AGENDFY_TRIAL_SWEEP_LIMIT" default:"500"`
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
