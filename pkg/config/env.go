package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "equiploan"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "EQUIPLOAN_DB_DSN"
	EnvDBHost = "EQUIPLOAN_DB_HOST"
	EnvDBUser = "EQUIPLOAN_DB_USER"
	EnvDBName = "EQUIPLOAN_DB_NAME"
)
