// Package config loads chat server configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wtask/chatrelay/pkg/log"
)

const (
	// DefaultPort - used when port argument is missing or invalid.
	DefaultPort = 8888
	// EnvPrefix - prefix of environment variables overriding configuration.
	EnvPrefix = "CHATRELAY"
)

// Config - server configuration.
type Config struct {
	// Host - bind address, empty means all interfaces
	Host string `mapstructure:"host"`
	// Port - taken from command line only
	Port int `mapstructure:"-"`
	// QueueSize - capacity of inbound message queue
	QueueSize int `mapstructure:"queue_size"`
	// WriteTimeout - limit for writing one message to one client
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// HandshakeTimeout - time given to new client to introduce itself
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	// ShutdownTimeout - limit for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Log             log.Config    `mapstructure:"log"`
}

// Load - builds configuration: port from args, everything else from defaults,
// optional chatrelay.yaml and CHATRELAY_* environment variables.
// Warnings about the port argument are written to warn.
func Load(args []string, warn io.Writer) (*Config, error) {
	v := viper.New()
	v.SetConfigName("chatrelay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "")
	v.SetDefault("queue_size", 256)
	v.SetDefault("write_timeout", "10s")
	v.SetDefault("handshake_timeout", "30s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chatsrv")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Port = ParsePort(args, warn)
	return cfg, nil
}

func (c *Config) validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("config: queue_size must be greater than 0, got %d", c.QueueSize)
	}
	if c.WriteTimeout < 0 || c.HandshakeTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown_timeout must be greater than 0, got %v", c.ShutdownTimeout)
	}
	return nil
}

// ParsePort - takes port from the first positional argument.
// Missing or invalid value falls back to DefaultPort with a warning.
func ParsePort(args []string, warn io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(warn, "No port number specified. Defaulting to %d\n", DefaultPort)
		return DefaultPort
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		fmt.Fprintf(warn, "Invalid port number (%s). Defaulting to %d\n", args[0], DefaultPort)
		return DefaultPort
	}
	return port
}
