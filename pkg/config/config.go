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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	KV            KVConfig
	Device        DeviceConfig
	Security      SecurityConfig
	AuthRateLimit AuthRateLimitConfig
	Upstream      UpstreamConfig
	Payment       PaymentConfig
	Store         StoreConfig
	Cart          CartConfig
	Checkout      CheckoutConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.KV.Backend = strings.ToLower(strings.TrimSpace(cfg.KV.Backend))
	if err := cfg.KV.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if cfg.KV.Backend == KVBackendSQL && cfg.DB.Driver != DBDriverSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// KVConfig selects where device-scoped state (token, profile, cart) lives.
type KVConfig struct {
	Backend string        `envconfig:"STOREFRONT_KV_BACKEND" default:"redis"`
	TTL     time.Duration `envconfig:"STOREFRONT_KV_TTL" default:"720h"`
}

func (k KVConfig) validate() error {
	switch k.Backend {
	case KVBackendRedis, KVBackendSQL, KVBackendMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of redis, sql, memory (got %q)", EnvKVBackend, k.Backend)
	}
}

// DeviceConfig signs the per-browser device token.
type DeviceConfig struct {
	Secret string        `envconfig:"STOREFRONT_DEVICE_SECRET" required:"true"`
	Issuer string        `envconfig:"STOREFRONT_DEVICE_ISSUER" default:"storefront"`
	TTL    time.Duration `envconfig:"STOREFRONT_DEVICE_TTL" default:"8760h"`
	Cookie string        `envconfig:"STOREFRONT_DEVICE_COOKIE" default:"sf_device"`
	Secure bool          `envconfig:"STOREFRONT_DEVICE_COOKIE_SECURE" default:"true"`
}

type SecurityConfig struct {
	TokenSealSecret  string `envconfig:"STOREFRONT_TOKEN_SEAL_SECRET"`
	TokenSealSalt    string `envconfig:"STOREFRONT_TOKEN_SEAL_SALT" default:"storefront-token-seal"`
	ArgonMemoryKB    int    `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"STOREFRONT_ARGON_TIME" default:"1"`
	ArgonParallelism int    `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow       time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_WINDOW" default:"5m"`
	OTPPhoneLimit   int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit      int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
}

// UpstreamConfig points at the LiveDataNow online-order API.
type UpstreamConfig struct {
	BaseURL       string        `envconfig:"STOREFRONT_UPSTREAM_BASE_URL" default:"https://api.livedatanow.com/api/online-order"`
	Timeout       time.Duration `envconfig:"STOREFRONT_UPSTREAM_TIMEOUT" default:"15s"`
	WebOrderToken string        `envconfig:"STOREFRONT_WEB_ORDER_TOKEN"`
}

// PaymentConfig holds the DCAP gateway credentials used to acquire an initial API key.
type PaymentConfig struct {
	DCAPURL      string        `envconfig:"STOREFRONT_DCAP_URL" default:"https://pay-cert.dcap.com/v2/AcquireInitialApiKey"`
	DCAPUsername string        `envconfig:"STOREFRONT_DCAP_USERNAME"`
	DCAPPassword string        `envconfig:"STOREFRONT_DCAP_PASSWORD"`
	Timeout      time.Duration `envconfig:"STOREFRONT_DCAP_TIMEOUT" default:"15s"`
}

type StoreConfig struct {
	RootDomain       string        `envconfig:"STOREFRONT_ROOT_DOMAIN"`
	DefaultSubdomain string        `envconfig:"STOREFRONT_DEFAULT_SUBDOMAIN" default:"flavors"`
	DefaultStoreID   string        `envconfig:"STOREFRONT_DEFAULT_STORE_ID" default:"68c328b7a277614f117d8226"`
	DefaultStoreName string        `envconfig:"STOREFRONT_DEFAULT_STORE_NAME" default:"Flavors Restaurant"`
	CacheTTL         time.Duration `envconfig:"STOREFRONT_STORE_CACHE_TTL" default:"5m"`
}

type CartConfig struct {
	TaxRate       decimal.Decimal `envconfig:"STOREFRONT_TAX_RATE" default:"0.0832"`
	SortModifiers bool            `envconfig:"STOREFRONT_CART_SORT_MODIFIERS" default:"false"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	OTPLogin    bool `envconfig:"STOREFRONT_AUTH_OTP_ENABLED" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
