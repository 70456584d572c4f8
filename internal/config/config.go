package config

import "time"

// NotifierConfig is the root configuration for a notifier instance.
type NotifierConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Store     StoreConfig     `yaml:"store"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
}

// InstanceConfig identifies this notifier.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// EndpointConfig holds the push endpoint settings.
type EndpointConfig struct {
	URL              string        `yaml:"url"`
	Token            string        `yaml:"token"` // Bearer token, sent as Authorization header when set
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// ReconnectConfig holds the backoff policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"` // 0 = unbounded
	MaxAttempts int           `yaml:"max_attempts"`
}

// StoreConfig holds in-memory notification store settings.
type StoreConfig struct {
	MaxItems int `yaml:"max_items"`
}

// ArchiveConfig holds the optional PostgreSQL history writer settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the archive database connection.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}
