package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/logger"
	"github.com/spf13/viper"
)

// Config 應用設定
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

// ServerConfig HTTP 服務設定
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// Addr 監聽位址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig 日誌設定
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 轉換為 logger.Options
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 連線池設定
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 資料庫設定
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres / memory
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 設定（Redis 卡片鎖使用）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Addr host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// QueueConfig asynq 佇列設定（領域事件投遞）
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// Addr host:port
func (c QueueConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// 資料庫驅動；memory 不落地，只供本機開發
const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMemory   = "memory"
)

// 卡片鎖後端
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// LedgerConfig 帳本服務設定
type LedgerConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"` // 版本衝突時的最大嘗試次數（含第一次）
	LockBackend string `mapstructure:"lock_backend"` // memory / redis
	LockTTLMs   int    `mapstructure:"lock_ttl_ms"`  // Redis 鎖自動過期時間
	LockWaitMs  int    `mapstructure:"lock_wait_ms"` // 取得鎖的最長等待時間
	EventBuffer int    `mapstructure:"event_buffer"` // 待投遞領域事件的緩衝數量
}

// LockTTL 鎖過期時間
func (c LedgerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMs) * time.Millisecond
}

// LockWait 取得鎖的等待上限
func (c LedgerConfig) LockWait() time.Duration {
	return time.Duration(c.LockWaitMs) * time.Millisecond
}

// Load 讀取設定
//
// 搜尋順序：path（非空時）→ ./config.yml → ./etc/config.yml → ../config.yml。
// 找不到設定檔時使用預設值與環境變數（ledger.max_attempts → LEDGER_MAX_ATTEMPTS）。
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./etc")
		v.AddConfigPath("../")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Warnw("config_file_not_found", "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 檢查設定值
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DatabaseDriverSQLite, DatabaseDriverPostgres, DatabaseDriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("ledger.max_attempts must be >= 1, got %d", c.Ledger.MaxAttempts)
	}
	switch c.Ledger.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if !c.Redis.Enabled {
			return errors.New("ledger.lock_backend=redis requires redis.enabled")
		}
		if c.Ledger.LockTTLMs <= 0 {
			return fmt.Errorf("ledger.lock_ttl_ms must be > 0, got %d", c.Ledger.LockTTLMs)
		}
	default:
		return fmt.Errorf("unsupported ledger.lock_backend %q", c.Ledger.LockBackend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "loyalty.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", DatabaseDriverSQLite)
	v.SetDefault("database.dsn", "./db/loyalty.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "loyalty")

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"ledger":  6,
		"default": 3,
	})

	v.SetDefault("ledger.max_attempts", 3)
	v.SetDefault("ledger.lock_backend", LockBackendMemory)
	v.SetDefault("ledger.lock_ttl_ms", 5000)
	v.SetDefault("ledger.lock_wait_ms", 2000)
	v.SetDefault("ledger.event_buffer", 1024)
}
