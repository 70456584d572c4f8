package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID         = "notifier"
	DefaultWSURL              = "ws://localhost:8000/ws/notifications"
	DefaultPingInterval       = 30 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultMaxAttempts        = 5
	DefaultStoreMaxItems      = 50
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 5 * time.Second
	DefaultBufferSize         = 1000
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultServerPort         = 8080
	DefaultMetricsPath        = "/metrics"
)

func (c *NotifierConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
		if host, err := os.Hostname(); err == nil && host != "" {
			c.Instance.ID = host
		}
	}

	// Endpoint defaults
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = DefaultWSURL
	}
	if c.Endpoint.PingInterval == 0 {
		c.Endpoint.PingInterval = DefaultPingInterval
	}
	if c.Endpoint.PingTimeout == 0 {
		c.Endpoint.PingTimeout = DefaultPingTimeout
	}
	if c.Endpoint.WriteTimeout == 0 {
		c.Endpoint.WriteTimeout = DefaultWriteTimeout
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxAttempts
	}

	if c.Store.MaxItems == 0 {
		c.Store.MaxItems = DefaultStoreMaxItems
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
