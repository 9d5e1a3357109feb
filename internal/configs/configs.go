/*
Package configs is responsible for loading and parsing the application's configuration settings.

All settings come from operating system environment variables: the running environment,
the listening port, CORS allowed origins, logging level, and the limits applied to
WebSocket connections of the chat room.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultPort matches the port the chat front-end expects the server on.
	DefaultPort = 3000

	// DefaultAllowedOrigin is the origin of the front-end development server.
	DefaultAllowedOrigin = "http://localhost:5173"

	// DefaultMaxAvatarBytes leaves room for a small inline data URL avatar.
	DefaultMaxAvatarBytes = 64 << 10

	// DefaultMaxMessageBytes fits a login frame carrying a DefaultMaxAvatarBytes avatar.
	DefaultMaxMessageBytes = 128 << 10
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	LogLevel    string

	// Security Settings
	AllowedOrigins []string
	ConnectRate    float64
	ConnectBurst   int

	// Connection Settings
	MaxMessageBytes int64
	MaxAvatarBytes  int
	SendQueueSize   int
	MessageRate     float64
	MessageBurst    int

	// RelayToSender controls whether a relayed chat message is echoed back to its sender.
	RelayToSender bool
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := intFromEnv("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		} else {
			cfg.LogLevel = "info"
		}
	}

	// --- Security Settings ---
	originsStr, ok := os.LookupEnv("ALLOWED_ORIGINS")
	if !ok {
		originsStr = DefaultAllowedOrigin
	}
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(originsStr, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if cfg.ConnectRate, err = floatFromEnv("CONNECT_RATE", 1); err != nil {
		return nil, err
	}
	if cfg.ConnectBurst, err = intFromEnv("CONNECT_BURST", 10); err != nil {
		return nil, err
	}

	// --- Connection Settings ---
	maxBytes, err := intFromEnv("MAX_MESSAGE_BYTES", DefaultMaxMessageBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageBytes = int64(maxBytes)

	if cfg.MaxAvatarBytes, err = intFromEnv("MAX_AVATAR_BYTES", DefaultMaxAvatarBytes); err != nil {
		return nil, err
	}

	if cfg.SendQueueSize, err = intFromEnv("SEND_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.MessageRate, err = floatFromEnv("MESSAGE_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.MessageBurst, err = intFromEnv("MESSAGE_BURST", 10); err != nil {
		return nil, err
	}

	relay := os.Getenv("RELAY_TO_SENDER")
	if relay == "" {
		cfg.RelayToSender = true
	} else {
		cfg.RelayToSender, err = strconv.ParseBool(relay)
		if err != nil {
			return nil, fmt.Errorf("invalid RELAY_TO_SENDER environment variable: %w", err)
		}
	}

	if cfg.MaxMessageBytes <= 0 || cfg.SendQueueSize <= 0 || cfg.MessageBurst <= 0 || cfg.ConnectBurst <= 0 {
		return nil, fmt.Errorf("connection limits must be positive")
	}

	// Zero disables the avatar bound; a positive bound must fit inside one frame.
	if cfg.MaxAvatarBytes < 0 || int64(cfg.MaxAvatarBytes) >= cfg.MaxMessageBytes {
		return nil, fmt.Errorf("MAX_AVATAR_BYTES %d must be between 0 and MAX_MESSAGE_BYTES %d", cfg.MaxAvatarBytes, cfg.MaxMessageBytes)
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatFromEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, v)
	}
	return v, nil
}
