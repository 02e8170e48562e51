package config

const EnvPrefix = "SPARESYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv               = "SPARESYNC_APP_ENV"
	EnvPort                 = "SPARESYNC_APP_PORT"
	EnvClientBaseURL        = "SPARESYNC_CLIENT_BASE_URL"
	EnvClientRequestTimeout = "SPARESYNC_CLIENT_REQUEST_TIMEOUT"
	EnvCartMaxItemQuantity  = "SPARESYNC_CART_MAX_ITEM_QUANTITY"
	EnvDBDSN                = "SPARESYNC_DB_DSN"
	EnvDBDriver             = "SPARESYNC_DB_DRIVER"
	EnvDBHost               = "SPARESYNC_DB_HOST"
	EnvDBUser               = "SPARESYNC_DB_USER"
	EnvDBName               = "SPARESYNC_DB_NAME"
	EnvRedisURL             = "SPARESYNC_REDIS_URL"
	EnvJWTSecret            = "SPARESYNC_JWT_SECRET"
	EnvJWTIssuer            = "SPARESYNC_JWT_ISSUER"
	EnvLiveNamespace        = "SPARESYNC_LIVE_NAMESPACE"
)

var dbComponentEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
