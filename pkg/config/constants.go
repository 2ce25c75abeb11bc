package config

// EnvPrefix is empty: the sink reads the bare variable names its Helm chart sets.
const EnvPrefix = ""

const (
	EnvLogFormat = "LOG_FORMAT"

	EnvDBDSN      = "DB_DSN"
	EnvDBDriver   = "DB_DRIVER"
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBName     = "DB_NAME"
	EnvDBSchema   = "DB_SCHEMA"
	EnvDBTable    = "DB_TABLE"
	EnvDBPoolSize = "DB_POOL_SIZE"

	EnvSinkShape = "SINK_TABLE_SHAPE"
)

const DriverSQLite = "sqlite"

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBPassword, EnvDBName}
