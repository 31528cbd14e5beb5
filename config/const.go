package config

const (
	FlagConfigPath = "config-path"

	DBDialectMysql   = "mysql"
	DBDialectSqlite3 = "sqlite3"

	EnvVarConfigFilePath = "CONFIG_FILE_PATH"
	EnvVarDBUserName     = "DB_USERNAME"
	EnvVarDBUserPass     = "DB_PASSWORD"
)
