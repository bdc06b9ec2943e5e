package config

const EnvPrefix = "POS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:pos.db?_foreign_keys=on"
)

const (
	EnvAppEnv   = "POS_APP_ENV"
	EnvPort     = "POS_APP_PORT"
	EnvLogLevel = "POS_LOG_LEVEL"

	EnvDBDSN    = "POS_DB_DSN"
	EnvDBDriver = "POS_DB_DRIVER"
	EnvDBHost   = "POS_DB_HOST"
	EnvDBUser   = "POS_DB_USER"
	EnvDBName   = "POS_DB_NAME"

	EnvRedisURL = "POS_REDIS_URL"

	EnvJWTSecret  = "POS_JWT_SECRET"
	EnvJWTIssuer  = "POS_JWT_ISSUER"
	EnvJWTExpMins = "POS_JWT_EXPIRATION_MINUTES"

	EnvOrdersVerifyTotals   = "POS_ORDERS_VERIFY_TOTALS"
	EnvOrdersDecrementStock = "POS_ORDERS_DECREMENT_STOCK"

	EnvAnalyticsTrendWindow = "POS_ANALYTICS_TREND_WINDOW"
	EnvAnalyticsCostRatio   = "POS_ANALYTICS_COST_ESTIMATE_RATIO"

	EnvPrinterAddr = "POS_PRINTER_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
