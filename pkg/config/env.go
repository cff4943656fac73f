package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	KVBackendRedis  = "redis"
	KVBackendSQL    = "sql"
	KVBackendMemory = "memory"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvLogLevel        = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvDBHost          = "STOREFRONT_DB_HOST"
	EnvDBUser          = "STOREFRONT_DB_USER"
	EnvDBName          = "STOREFRONT_DB_NAME"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvKVBackend       = "STOREFRONT_KV_BACKEND"
	EnvDeviceSecret    = "STOREFRONT_DEVICE_SECRET"
	EnvUpstreamURL     = "STOREFRONT_UPSTREAM_BASE_URL"
	EnvWebOrderToken   = "STOREFRONT_WEB_ORDER_TOKEN"
	EnvDCAPUsername    = "STOREFRONT_DCAP_USERNAME"
	EnvDCAPPassword    = "STOREFRONT_DCAP_PASSWORD"
	EnvTaxRate         = "STOREFRONT_TAX_RATE"
	EnvSortModifiers   = "STOREFRONT_CART_SORT_MODIFIERS"
	EnvUseSQLite       = "STOREFRONT_USE_SQLITE"
	EnvOTPLogin        = "STOREFRONT_AUTH_OTP_ENABLED"
	EnvTokenSealSecret = "STOREFRONT_TOKEN_SEAL_SECRET"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
