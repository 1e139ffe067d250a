package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process level configuration, read once at startup. Knobs
// that may change at runtime live in EngineConfig instead.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	LogFile     string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int // seconds
	DBConnMaxIdleTime int // seconds
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BatchConcurrency int
	SnowflakeNodeID  int64

	// MetricsPushExporter is prometheus_remote_write or prometheus_pushgateway;
	// empty leaves batch metrics to scraping.
	MetricsPushExporter string
	MetricsPushEndpoint string
	MetricsPushToken    string
}

var envDefaults = map[string]any{
	"APP_SERVICE":                 "royalty",
	"APP_VERSION":                 "0.1.0",
	"ENVIRONMENT":                 "development",
	"LOG_LEVEL":                   "info",
	"LOG_FILE":                    "",
	"HTTP_ADDR":                   ":8080",
	"OTLP_ENDPOINT":               "localhost:4317",
	"DATABASE_TYPE":               "postgres",
	"DATABASE_HOST":               "localhost",
	"DATABASE_PORT":               "5432",
	"DATABASE_NAME":               "royalty",
	"DATABASE_USER":               "postgres",
	"DATABASE_PASSWORD":           "",
	"DATABASE_SSLMODE":            "disable",
	"DATABASE_MAX_IDLE_CONN":      5,
	"DATABASE_MAX_OPEN_CONN":      20,
	"DATABASE_CONN_MAX_LIFETIME":  300,
	"DATABASE_CONN_MAX_IDLE_TIME": 60,
	"DATABASE_AUTO_MIGRATE":       true,
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"BATCH_CONCURRENCY":           8,
	"SNOWFLAKE_NODE_ID":           1,
	"METRICS_PUSH_EXPORTER":       "",
	"METRICS_PUSH_ENDPOINT":       "",
	"METRICS_PUSH_TOKEN":          "",
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	env := viper.New()
	env.AutomaticEnv()
	for key, def := range envDefaults {
		env.SetDefault(key, def)
	}
	str := func(key string) string { return strings.TrimSpace(env.GetString(key)) }

	cfg := Config{
		AppName:           str("APP_SERVICE"),
		AppVersion:        str("APP_VERSION"),
		Environment:       str("ENVIRONMENT"),
		LogLevel:          strings.ToLower(str("LOG_LEVEL")),
		LogFile:           str("LOG_FILE"),
		HTTPAddr:          str("HTTP_ADDR"),
		OTLPEndpoint:      str("OTLP_ENDPOINT"),
		DBType:            str("DATABASE_TYPE"),
		DBHost:            str("DATABASE_HOST"),
		DBPort:            str("DATABASE_PORT"),
		DBName:            str("DATABASE_NAME"),
		DBUser:            str("DATABASE_USER"),
		DBPassword:        env.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         str("DATABASE_SSLMODE"),
		DBMaxIdleConn:     env.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     env.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: env.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: env.GetInt("DATABASE_CONN_MAX_IDLE_TIME"),
		DBAutoMigrate:     env.GetBool("DATABASE_AUTO_MIGRATE"),
		RedisAddr:         str("REDIS_ADDR"),
		RedisPassword:     env.GetString("REDIS_PASSWORD"),
		RedisDB:           env.GetInt("REDIS_DB"),
		BatchConcurrency:  max(env.GetInt("BATCH_CONCURRENCY"), 1),
		SnowflakeNodeID:   env.GetInt64("SNOWFLAKE_NODE_ID"),

		MetricsPushExporter: str("METRICS_PUSH_EXPORTER"),
		MetricsPushEndpoint: str("METRICS_PUSH_ENDPOINT"),
		MetricsPushToken:    env.GetString("METRICS_PUSH_TOKEN"),
	}
	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
