package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"EQUIPLOAN_APP_ENV" required:"true"`
	Port         string `envconfig:"EQUIPLOAN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EQUIPLOAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EQUIPLOAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EQUIPLOAN_DB_DSN"`
	Driver string `envconfig:"EQUIPLOAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EQUIPLOAN_DB_HOST"`
	LegacyPort     int    `envconfig:"EQUIPLOAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EQUIPLOAN_DB_USER"`
	LegacyPassword string `envconfig:"EQUIPLOAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"EQUIPLOAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"EQUIPLOAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EQUIPLOAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EQUIPLOAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EQUIPLOAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EQUIPLOAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EQUIPLOAN_REDIS_URL"`
	Address      string        `envconfig:"EQUIPLOAN_REDIS_ADDR"`
	Password     string        `envconfig:"EQUIPLOAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"EQUIPLOAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EQUIPLOAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EQUIPLOAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EQUIPLOAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EQUIPLOAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EQUIPLOAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EQUIPLOAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EQUIPLOAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EQUIPLOAN_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EQUIPLOAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EQUIPLOAN_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EQUIPLOAN_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"EQUIPLOAN_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"EQUIPLOAN_PUBSUB_ORDERS_TOPIC" default:"equiploan-order-events"`
	OrdersSubscription string `envconfig:"EQUIPLOAN_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"EQUIPLOAN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"EQUIPLOAN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"EQUIPLOAN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ensureDSN assembles a postgres URL from the discrete host/user/name
// variables when no full DSN was given, so older deploy manifests keep
// working.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		query := dsn.Query()
		query.Set("sslmode", db.LegacySSLMode)
		dsn.RawQuery = query.Encode()
	}

	db.DSN = dsn.String()
	return nil
}
