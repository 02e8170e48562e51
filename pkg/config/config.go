package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Client       ClientConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Live         LiveConfig
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
	if err := cfg.Client.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SPARESYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"SPARESYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SPARESYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPARESYNC_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SPARESYNC_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ClientConfig drives the storefront core talking to the remote backend.
type ClientConfig struct {
	BaseURL         string        `envconfig:"SPARESYNC_CLIENT_BASE_URL" default:"http://localhost:8080/api/v1"`
	RequestTimeout  time.Duration `envconfig:"SPARESYNC_CLIENT_REQUEST_TIMEOUT" default:"15s"`
	MaxItemQuantity int           `envconfig:"SPARESYNC_CART_MAX_ITEM_QUANTITY" default:"5"`
}

func (c ClientConfig) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvClientRequestTimeout)
	}
	if c.MaxItemQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxItemQuantity)
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"SPARESYNC_DB_DSN"`
	Driver string `envconfig:"SPARESYNC_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SPARESYNC_DB_HOST"`
	Port     int    `envconfig:"SPARESYNC_DB_PORT" default:"5432"`
	User     string `envconfig:"SPARESYNC_DB_USER"`
	Password string `envconfig:"SPARESYNC_DB_PASSWORD"`
	Name     string `envconfig:"SPARESYNC_DB_NAME"`
	SSLMode  string `envconfig:"SPARESYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPARESYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPARESYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPARESYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPARESYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the backend runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SPARESYNC_REDIS_URL"`
	Address      string        `envconfig:"SPARESYNC_REDIS_ADDR"`
	Password     string        `envconfig:"SPARESYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPARESYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPARESYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPARESYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPARESYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPARESYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPARESYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPARESYNC_JWT_SECRET"`
	Issuer            string `envconfig:"SPARESYNC_JWT_ISSUER" default:"sparesync"`
	ExpirationMinutes int    `envconfig:"SPARESYNC_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SessionTTL is how long a client keeps a stored session before it must log in again.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type LiveConfig struct {
	Namespace  string `envconfig:"SPARESYNC_LIVE_NAMESPACE" default:"ss"`
	BufferSize int    `envconfig:"SPARESYNC_LIVE_BUFFER_SIZE" default:"16"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"SPARESYNC_AUTO_MIGRATE" default:"false"`
	WalletPayments bool `envconfig:"SPARESYNC_FEATURE_WALLET_PAYMENTS" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:sparesync.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbComponentEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
