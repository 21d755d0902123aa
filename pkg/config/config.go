package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MDV"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Paystack  PaystackConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	Breaker   BreakerConfig
	Cron      CronConfig
	Outbox    OutboxConfig
	PubSub    PubSubConfig
	Features  FeatureFlagsConfig
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
	Env          string `envconfig:"MDV_APP_ENV" required:"true"`
	Port         string `envconfig:"MDV_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"MDV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MDV_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"MDV_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MDV_DB_DSN"`

	Host     string `envconfig:"MDV_DB_HOST"`
	Port     int    `envconfig:"MDV_DB_PORT" default:"5432"`
	User     string `envconfig:"MDV_DB_USER"`
	Password string `envconfig:"MDV_DB_PASSWORD"`
	Name     string `envconfig:"MDV_DB_NAME"`
	SSLMode  string `envconfig:"MDV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MDV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MDV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MDV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MDV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"MDV_DB_HOST": db.Host,
		"MDV_DB_USER": db.User,
		"MDV_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either MDV_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MDV_REDIS_URL"`
	Address      string        `envconfig:"MDV_REDIS_ADDR"`
	Password     string        `envconfig:"MDV_REDIS_PASSWORD"`
	DB           int           `envconfig:"MDV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MDV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MDV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MDV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MDV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MDV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MDV_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MDV_JWT_ISSUER" default:"mdv"`
	ExpirationMinutes int    `envconfig:"MDV_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"MDV_PAYSTACK_SECRET_KEY" required:"true"`
	PublicKey   string        `envconfig:"MDV_PAYSTACK_PUBLIC_KEY"`
	BaseURL     string        `envconfig:"MDV_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"MDV_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"MDV_PAYSTACK_TIMEOUT" default:"15s"`
}

type CheckoutConfig struct {
	ReservationsEnabled       bool          `envconfig:"MDV_CHECKOUT_RESERVATIONS_ENABLED" default:"true"`
	ReservationTTL            time.Duration `envconfig:"MDV_CHECKOUT_RESERVATION_TTL" default:"15m"`
	FreeShippingThresholdKobo int64         `envconfig:"MDV_CHECKOUT_FREE_SHIPPING_THRESHOLD_KOBO" default:"5000000"`
	FreeShippingState         string        `envconfig:"MDV_CHECKOUT_FREE_SHIPPING_STATE" default:"Lagos"`
	CouponAppliesToDiscounted bool          `envconfig:"MDV_CHECKOUT_COUPON_APPLIES_TO_DISCOUNTED" default:"false"`
}

type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"MDV_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutEmailLimit int           `envconfig:"MDV_RATE_LIMIT_CHECKOUT_EMAIL_LIMIT" default:"5"`
	CheckoutIPLimit    int           `envconfig:"MDV_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"20"`
}

type BreakerConfig struct {
	FailureThreshold int           `envconfig:"MDV_BREAKER_FAILURE_THRESHOLD" default:"5"`
	RecoveryTimeout  time.Duration `envconfig:"MDV_BREAKER_RECOVERY_TIMEOUT" default:"30s"`
	HalfOpenMaxCalls int           `envconfig:"MDV_BREAKER_HALF_OPEN_MAX_CALLS" default:"3"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"MDV_CRON_INTERVAL" default:"1m"`
	LockKey      string        `envconfig:"MDV_CRON_LOCK_KEY" default:"mdv:cron:lock"`
	LockTTL      time.Duration `envconfig:"MDV_CRON_LOCK_TTL" default:"5m"`
	SweepBatch   int           `envconfig:"MDV_CRON_SWEEP_BATCH" default:"500"`
	RetentionAge time.Duration `envconfig:"MDV_CRON_OUTBOX_RETENTION_AGE" default:"720h"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"MDV_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"MDV_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"MDV_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"MDV_PUBSUB_PROJECT_ID"`
	DomainTopic string `envconfig:"MDV_PUBSUB_DOMAIN_TOPIC" default:"mdv-domain-events"`
	Emulator    string `envconfig:"PUBSUB_EMULATOR_HOST"`

	CredentialsJSON        string `envconfig:"MDV_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MDV_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MDV_FEATURE_AUTO_MIGRATE" default:"false"`
}
