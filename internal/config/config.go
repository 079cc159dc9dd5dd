package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

/*
GetConfig 讀取一次後常駐
Watch 設置 viper watch，設定檔變更時重新載入並通知呼叫端
*/
var (
	configSingleton *ConfigSingleton
	once            sync.Once
)

type ConfigSingleton struct {
	Config   *Config
	mu       sync.RWMutex
	v        *viper.Viper
	loadErr  error
	watchers []func(*Config)
}

type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`
	HttpPort    string `mapstructure:"HTTP_PORT"`

	OpsRateLimitCapacity  int     `mapstructure:"OPS_RATE_LIMIT_CAPACITY"`
	OpsRateLimitPerSecond float64 `mapstructure:"OPS_RATE_LIMIT_PER_SECOND"`

	DbDriver      string `mapstructure:"DB_DRIVER"`
	DbHost        string `mapstructure:"POSTGRES_HOST"`
	DbPort        string `mapstructure:"POSTGRES_PORT"`
	DbUser        string `mapstructure:"POSTGRES_USER"`
	DbPas         string `mapstructure:"POSTGRES_PASSWORD"`
	DbName        string `mapstructure:"POSTGRES_DB"`
	MysqlHost     string `mapstructure:"MYSQL_HOST"`
	MysqlPort     string `mapstructure:"MYSQL_PORT"`
	MysqlUser     string `mapstructure:"MYSQL_USER"`
	MysqlPas      string `mapstructure:"MYSQL_PASSWORD"`
	MysqlName     string `mapstructure:"MYSQL_DB"`
	DbMaxOpenConn int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DbMaxIdleConn int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers           string `mapstructure:"KAFKA_BROKERS"`
	KafkaNotificationTopic string `mapstructure:"KAFKA_NOTIFICATION_TOPIC"`
	KafkaOrderEventTopic   string `mapstructure:"KAFKA_ORDER_EVENT_TOPIC"`
	LogKafkaTopic          string `mapstructure:"LOG_KAFKA_TOPIC"`

	OtlpEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	WarehouseStoreID          int `mapstructure:"WAREHOUSE_STORE_ID"`
	StatusActive              int `mapstructure:"STATUS_ACTIVE"`
	StatusInactive            int `mapstructure:"STATUS_INACTIVE"`
	StatusPaymentSuccess      int `mapstructure:"STATUS_PAYMENT_SUCCESS"`
	StatusPendingConfirmation int `mapstructure:"STATUS_PENDING_CONFIRMATION"`
	StatusConfirmed           int `mapstructure:"STATUS_CONFIRMED"`
	StatusCancelled           int `mapstructure:"STATUS_CANCELLED"`

	PromotionRefreshInterval time.Duration `mapstructure:"PROMOTION_REFRESH_INTERVAL"`
	SeedFile                 string        `mapstructure:"SEED_FILE"`
}

// KafkaBrokerList KAFKA_BROKERS 以逗號分隔
func (c *Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

var defaults = map[string]any{
	"SERVICE_NAME":                "retail",
	"LOG_LEVEL":                   "info",
	"LOG_PRETTY":                  false,
	"HTTP_PORT":                   "8080",
	"OPS_RATE_LIMIT_CAPACITY":     50,
	"OPS_RATE_LIMIT_PER_SECOND":   10,
	"DB_DRIVER":                   "memory",
	"POSTGRES_HOST":               "localhost",
	"POSTGRES_PORT":               "5432",
	"POSTGRES_USER":               "",
	"POSTGRES_PASSWORD":           "",
	"POSTGRES_DB":                 "retail",
	"MYSQL_HOST":                  "localhost",
	"MYSQL_PORT":                  "3306",
	"MYSQL_USER":                  "",
	"MYSQL_PASSWORD":              "",
	"MYSQL_DB":                    "retail",
	"DB_MAX_OPEN_CONNS":           20,
	"DB_MAX_IDLE_CONNS":           5,
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"KAFKA_BROKERS":               "",
	"KAFKA_NOTIFICATION_TOPIC":    "retail.notifications",
	"KAFKA_ORDER_EVENT_TOPIC":     "retail.order-events",
	"LOG_KAFKA_TOPIC":             "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"WAREHOUSE_STORE_ID":          1,
	"STATUS_ACTIVE":               1,
	"STATUS_INACTIVE":             2,
	"STATUS_PAYMENT_SUCCESS":      3,
	"STATUS_PENDING_CONFIRMATION": 4,
	"STATUS_CONFIRMED":            5,
	"STATUS_CANCELLED":            6,
	"PROMOTION_REFRESH_INTERVAL":  "1m",
	"SEED_FILE":                   "",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
	}
	return v
}

// readConfig 設定檔不存在時只用環境變數與預設值
func readConfig(v *viper.Viper) (*Config, error) {
	if file := v.ConfigFileUsed(); file != "" {
		if _, err := os.Stat(file); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, err
	}
	return cf, nil
}

// Load 讀取指定的 .env 檔，環境變數優先
func Load(path string) (*Config, error) {
	return readConfig(newViper(path))
}

// configPath CONFIG_FILE 未設定時使用工作目錄下的 .env
func configPath() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return ".env"
}

func GetConfig() (*Config, error) {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config, configSingleton.loadErr
}

func initConfig() {
	once.Do(func() {
		v := newViper(configPath())
		cf, err := readConfig(v)
		configSingleton = &ConfigSingleton{Config: cf, v: v, loadErr: err}
	})
}

// Watch 設定檔變更時重新載入，載入失敗保留舊設定
func Watch(fn func(*Config)) {
	initConfig()
	configSingleton.mu.Lock()
	defer configSingleton.mu.Unlock()

	first := len(configSingleton.watchers) == 0
	configSingleton.watchers = append(configSingleton.watchers, fn)
	if !first {
		return
	}

	v := configSingleton.v
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		log.Warn().Str("file", v.ConfigFileUsed()).Msg("config file not found, hot reload disabled")
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cf, err := readConfig(v)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("failed to reload config file")
			return
		}
		configSingleton.mu.Lock()
		configSingleton.Config = cf
		watchers := append([]func(*Config){}, configSingleton.watchers...)
		configSingleton.mu.Unlock()

		log.Info().Str("file", e.Name).Msg("config reloaded")
		for _, w := range watchers {
			w(cf)
		}
	})
	v.WatchConfig()
}
