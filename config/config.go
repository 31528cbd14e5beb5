package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
)

type Config struct {
	LogConfig     LogConfig     `json:"log_config"`
	DBConfig      DBConfig      `json:"db_config"`
	ChainConfig   ChainConfig   `json:"chain_config"`
	SyncConfig    SyncConfig    `json:"sync_config"`
	MetricsConfig MetricsConfig `json:"metrics_config"`
	CacheConfig   CacheConfig   `json:"cache_config"`
}

func (c *Config) Validate() {
	c.LogConfig.Validate()
	c.DBConfig.Validate()
	c.ChainConfig.Validate()
}

type ChainConfig struct {
	RPCAddr string `json:"rpc_addr"` // host:port of the chain daemon RPC
	RPCUser string `json:"rpc_user"`
	RPCPass string `json:"rpc_pass"`
}

func (cfg *ChainConfig) Validate() {
	if cfg.RPCAddr == "" {
		panic("chain rpc_addr should not be empty")
	}
}

type SyncConfig struct {
	StartHeight     uint64 `json:"start_height"`      // first height to index when the store is empty
	PollIntervalSec uint64 `json:"poll_interval_sec"` // sleep between tip checks once caught up
	MaxBlockRetries int    `json:"max_block_retries"` // attempts per height before the loop halts
	RetryBackoffSec int64  `json:"retry_backoff_sec"` // per-attempt backoff, grows linearly; -1 disables
}

const (
	DefaultPollIntervalSec = 30
	DefaultMaxBlockRetries = 5
	DefaultRetryBackoffSec = 5
)

func (cfg *SyncConfig) GetPollInterval() time.Duration {
	if cfg.PollIntervalSec != 0 {
		return time.Duration(cfg.PollIntervalSec) * time.Second
	}
	return DefaultPollIntervalSec * time.Second
}

func (cfg *SyncConfig) GetMaxBlockRetries() int {
	if cfg.MaxBlockRetries > 0 {
		return cfg.MaxBlockRetries
	}
	return DefaultMaxBlockRetries
}

// GetRetryBackoff returns how long to wait before the given retry
// attempt, counted from 1.
func (cfg *SyncConfig) GetRetryBackoff(attempt int) time.Duration {
	base := cfg.RetryBackoffSec
	if base < 0 {
		return 0
	}
	if base == 0 {
		base = DefaultRetryBackoffSec
	}
	return time.Duration(base*int64(attempt)) * time.Second
}

type MetricsConfig struct {
	Enable      bool   `json:"enable"`
	HttpAddress string `json:"http_address"`
}

type CacheConfig struct {
	CacheSize uint64 `json:"cache_size"`
}

func (c *CacheConfig) GetCacheSize() uint64 {
	if c.CacheSize != 0 {
		return c.CacheSize
	}
	return cache.DefaultCacheSize
}

type DBConfig struct {
	Dialect       string `json:"dialect"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Url           string `json:"url"`
	MaxIdleConns  int    `json:"max_idle_conns"`
	MaxOpenConns  int    `json:"max_open_conns"`
	AWSRegion     string `json:"aws_region"`      // set together with aws_secret_name to pull the
	AWSSecretName string `json:"aws_secret_name"` // db password from Secrets Manager
}

func (cfg *DBConfig) Validate() {
	if cfg.Dialect != DBDialectMysql && cfg.Dialect != DBDialectSqlite3 {
		panic(fmt.Sprintf("only %s and %s supported", DBDialectMysql, DBDialectSqlite3))
	}
	if cfg.Dialect == DBDialectMysql && (cfg.Username == "" || cfg.Url == "") {
		panic("db config is not correct, missing username and/or url")
	}
	if cfg.MaxIdleConns == 0 || cfg.MaxOpenConns == 0 {
		panic("db connections is not correct")
	}
}

func (cfg *DBConfig) GetUsername() string {
	if user := os.Getenv(EnvVarDBUserName); user != "" {
		return user
	}
	return cfg.Username
}

func (cfg *DBConfig) GetPassword() string {
	if pass := os.Getenv(EnvVarDBUserPass); pass != "" {
		return pass
	}
	if cfg.AWSSecretName != "" {
		secret, err := GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(fmt.Sprintf("get db password from secret manager, err=%s", err.Error()))
		}
		return secret
	}
	return cfg.Password
}

type LogConfig struct {
	Level                        string `json:"level"`
	Filename                     string `json:"filename"`
	MaxFileSizeInMB              int    `json:"max_file_size_in_mb"`
	MaxBackupsOfLogFiles         int    `json:"max_backups_of_log_files"`
	MaxAgeToRetainLogFilesInDays int    `json:"max_age_to_retain_log_files_in_days"`
	UseConsoleLogger             bool   `json:"use_console_logger"`
	UseFileLogger                bool   `json:"use_file_logger"`
	Compress                     bool   `json:"compress"`
}

func (cfg *LogConfig) Validate() {
	if cfg.UseFileLogger {
		if cfg.Filename == "" {
			panic("filename should not be empty if use file logger")
		}
		if cfg.MaxFileSizeInMB <= 0 {
			panic("max_file_size_in_mb should be larger than 0 if use file logger")
		}
		if cfg.MaxBackupsOfLogFiles <= 0 {
			panic("max_backups_of_log_files should be larger than 0 if use file logger")
		}
	}
}

func ParseConfigFromJson(content string) *Config {
	var config Config
	if err := json.Unmarshal([]byte(content), &config); err != nil {
		panic(err)
	}
	return &config
}

func ParseConfigFromFile(filePath string) *Config {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}

	var config Config
	if err := json.Unmarshal(bz, &config); err != nil {
		panic(err)
	}
	return &config
}

// InitDBWithConfig opens the configured database and optionally runs the
// schema migration.
func InitDBWithConfig(cfg *DBConfig, migrateDB bool) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DBDialectMysql:
		dbUrl := fmt.Sprintf("%s:%s@%s", cfg.GetUsername(), cfg.GetPassword(), cfg.Url)
		dialector = mysql.Open(dbUrl)
	case DBDialectSqlite3:
		dialector = sqlite.Open(cfg.Url)
	default:
		panic(fmt.Sprintf("unsupported db dialect %s", cfg.Dialect))
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("open db error, err=%s", err.Error()))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if migrateDB {
		db.AutoMigrateDB(gdb)
	}
	return gdb
}
