package config

// EnvPrefix is handed to envconfig; every field carries its full variable name in the tag.
const EnvPrefix = "ORDERFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "ORDERFLOW_APP_ENV"
	EnvPort     = "ORDERFLOW_APP_PORT"
	EnvLogLevel = "ORDERFLOW_LOG_LEVEL"

	EnvDBDSN  = "ORDERFLOW_DB_DSN"
	EnvDBHost = "ORDERFLOW_DB_HOST"
	EnvDBUser = "ORDERFLOW_DB_USER"
	EnvDBName = "ORDERFLOW_DB_NAME"

	EnvRedisURL = "ORDERFLOW_REDIS_URL"

	EnvJWTSecret  = "ORDERFLOW_JWT_SECRET"
	EnvJWTIssuer  = "ORDERFLOW_JWT_ISSUER"
	EnvJWTExpMins = "ORDERFLOW_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "ORDERFLOW_USE_SQLITE"

	EnvStripeAPIKey     = "ORDERFLOW_STRIPE_API_KEY"
	EnvStripeSecret     = "ORDERFLOW_STRIPE_SECRET"
	EnvStripeSuccessURL = "ORDERFLOW_STRIPE_SUCCESS_URL"
	EnvStripeCancelURL  = "ORDERFLOW_STRIPE_CANCEL_URL"

	EnvRefundPercentage          = "ORDERFLOW_REFUND_PERCENTAGE"
	EnvCancellationWindowMinutes = "ORDERFLOW_CANCELLATION_PAID_ORDER_PERIOD_MINUTES"
	EnvMaxPendingMinutes         = "ORDERFLOW_MAX_PENDING_OR_FAILED_ORDER_MINUTES"
	EnvCronIntervalMinutes       = "ORDERFLOW_CRON_INTERVAL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
