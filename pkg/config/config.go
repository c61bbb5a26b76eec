package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Orders       OrdersConfig
	Cron         CronConfig
	Webhooks     WebhooksConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	if cfg.Cron.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvCronIntervalMinutes)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ORDERFLOW_LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string `envconfig:"ORDERFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERFLOW_DB_DSN"`
	Driver string `envconfig:"ORDERFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERFLOW_DB_USER"`
	LegacyPassword string `envconfig:"ORDERFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERFLOW_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey          string        `envconfig:"ORDERFLOW_STRIPE_API_KEY"`
	Secret          string        `envconfig:"ORDERFLOW_STRIPE_SECRET"`
	Env             string        `envconfig:"ORDERFLOW_STRIPE_ENV" default:"test"`
	SuccessURL      string        `envconfig:"ORDERFLOW_STRIPE_SUCCESS_URL" required:"true"`
	CancelURL       string        `envconfig:"ORDERFLOW_STRIPE_CANCEL_URL" required:"true"`
	Currency        string        `envconfig:"ORDERFLOW_STRIPE_CURRENCY" default:"usd"`
	Timeout         time.Duration `envconfig:"ORDERFLOW_STRIPE_TIMEOUT" default:"10s"`
	BreakerFailures uint32        `envconfig:"ORDERFLOW_STRIPE_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"ORDERFLOW_STRIPE_BREAKER_COOLDOWN" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OrdersConfig struct {
	RefundPercentage          string `envconfig:"ORDERFLOW_REFUND_PERCENTAGE" default:"100"`
	CancellationWindowMinutes int    `envconfig:"ORDERFLOW_CANCELLATION_PAID_ORDER_PERIOD_MINUTES" default:"30"`
	MaxPendingMinutes         int    `envconfig:"ORDERFLOW_MAX_PENDING_OR_FAILED_ORDER_MINUTES" default:"60"`
}

// RefundRate returns the configured refund percentage as a decimal in [0, 100].
func (o OrdersConfig) RefundRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(o.RefundPercentage))
	if err != nil {
		return decimal.NewFromInt(100)
	}
	return rate
}

// CancellationWindow is how long after payment a client may still cancel.
func (o OrdersConfig) CancellationWindow() time.Duration {
	return time.Duration(o.CancellationWindowMinutes) * time.Minute
}

// MaxPendingAge is how long an unpaid order may hold its reservation.
func (o OrdersConfig) MaxPendingAge() time.Duration {
	return time.Duration(o.MaxPendingMinutes) * time.Minute
}

func (o OrdersConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(o.RefundPercentage))
	if err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvRefundPercentage, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvRefundPercentage)
	}
	if o.CancellationWindowMinutes < 0 {
		return fmt.Errorf("%s must not be negative", EnvCancellationWindowMinutes)
	}
	if o.MaxPendingMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxPendingMinutes)
	}
	return nil
}

type CronConfig struct {
	IntervalMinutes int           `envconfig:"ORDERFLOW_CRON_INTERVAL_MINUTES" default:"5"`
	LockTTL         time.Duration `envconfig:"ORDERFLOW_CRON_LOCK_TTL" default:"4m"`
}

// Interval returns the sweep cadence.
func (c CronConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ORDERFLOW_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if sqlite {
		db.Driver = "sqlite"
	}
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:orderflow.db?cache=shared&_foreign_keys=on"
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
