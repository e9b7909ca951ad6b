package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	// When empty, the upgrade path accepts anonymous connections and
	// identity comes solely from the user:register event.
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int    `mapstructure:"maxPerIP"`
	Mode     string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	// Interval between liveness pings. Idle connections are kept open as
	// long as the peer keeps answering; zero disables the probe.
	PingInterval   time.Duration `mapstructure:"pingInterval"`
	MaxMessageSize int64         `mapstructure:"maxMessageSize"`
}
