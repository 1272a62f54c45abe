package config

import (
	"fmt"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/spf13/viper"
)

// Config is the server configuration.
type Config struct {
	Port             int           `mapstructure:"port"`
	LogLevel         string        `mapstructure:"logLevel"`
	DatabaseURL      string        `mapstructure:"databaseUrl"`
	RecordInterval   time.Duration `mapstructure:"recordInterval"`
	SendQueueSize    int           `mapstructure:"sendQueueSize"`
	ReceiveQueueSize int           `mapstructure:"receiveQueueSize"`
	// PublishInterval is how often flight input is copied to the state manager
	PublishInterval time.Duration `mapstructure:"publishInterval"`
}

// RecorderEnabled reports whether a flight recorder database is configured.
func (c *Config) RecorderEnabled() bool {
	return c.DatabaseURL != ""
}

func setDefaults() {
	viper.SetDefault("port", 8080)
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("databaseUrl", "")
	viper.SetDefault("recordInterval", "10s")
	viper.SetDefault("sendQueueSize", 256)
	viper.SetDefault("receiveQueueSize", 256)
	viper.SetDefault("publishInterval", "100ms")
}

func bindEnv() error {
	bindings := map[string]string{
		"port":             "PORT",
		"logLevel":         "CLOUDFLIGHT_LOG_LEVEL",
		"databaseUrl":      "CLOUDFLIGHT_DATABASE_URL",
		"recordInterval":   "CLOUDFLIGHT_RECORD_INTERVAL",
		"sendQueueSize":    "CLOUDFLIGHT_SEND_QUEUE_SIZE",
		"receiveQueueSize": "CLOUDFLIGHT_RECEIVE_QUEUE_SIZE",
		"publishInterval":  "CLOUDFLIGHT_PUBLISH_INTERVAL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %v", key, env, err)
		}
	}
	return nil
}

// Load reads configuration from defaults, the optional config file and the
// environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	setDefaults()
	if err := bindEnv(); err != nil {
		return nil, err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	cfg := &Config{
		Port:             viper.GetInt("port"),
		LogLevel:         viper.GetString("logLevel"),
		DatabaseURL:      viper.GetString("databaseUrl"),
		RecordInterval:   viper.GetDuration("recordInterval"),
		SendQueueSize:    viper.GetInt("sendQueueSize"),
		ReceiveQueueSize: viper.GetInt("receiveQueueSize"),
		PublishInterval:  viper.GetDuration("publishInterval"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}
	if c.RecordInterval <= 0 {
		return fmt.Errorf("record interval must be positive, got %s", c.RecordInterval)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send queue size must be positive, got %d", c.SendQueueSize)
	}
	if c.ReceiveQueueSize <= 0 {
		return fmt.Errorf("receive queue size must be positive, got %d", c.ReceiveQueueSize)
	}
	if c.PublishInterval <= 0 {
		return fmt.Errorf("publish interval must be positive, got %s", c.PublishInterval)
	}
	return nil
}
