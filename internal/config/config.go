package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all outgoing
// provider requests.
const DefaultUserAgent = "bettersubs/1.0"

type Config struct {
	ProxyConnectionString string              `mapstructure:"proxy_connection_string"`
	ClientTimeout         string              `mapstructure:"client_timeout"` // Go duration string like "30s"
	UserAgent             string              `mapstructure:"user_agent"`
	LogLevel              string              `mapstructure:"log_level"`
	Server                ServerConfig        `mapstructure:"server"`
	Metrics               MetricsConfig       `mapstructure:"metrics"`
	Sentry                SentryConfig        `mapstructure:"sentry"`
	Session               SessionConfig       `mapstructure:"session"`
	Database              DatabaseConfig      `mapstructure:"database"`
	Storage               StorageConfig       `mapstructure:"storage"`
	OpenSubtitles         OpenSubtitlesConfig `mapstructure:"opensubtitles"`
	Catalog               CatalogConfig       `mapstructure:"catalog"`
	FanSite               FanSiteConfig       `mapstructure:"fansite"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Address string `mapstructure:"address"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SessionConfig struct {
	Backend string      `mapstructure:"backend"` // "memory" or "redis"
	Size    int         `mapstructure:"size"`    // maximum number of cached search sessions
	TTL     string      `mapstructure:"ttl"`     // Go duration string like "1h"
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type OpenSubtitlesConfig struct {
	APIURL   string `mapstructure:"api_url"`
	APIKey   string `mapstructure:"api_key"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CatalogConfig struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
}

type FanSiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	globalConfig = config
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.address", "0.0.0.0")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.size", 100)
	viper.SetDefault("session.ttl", "1h")
	viper.SetDefault("database.path", "bettersubs.db")
	viper.SetDefault("opensubtitles.api_url", "https://api.opensubtitles.com/api/v1")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}
	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}
