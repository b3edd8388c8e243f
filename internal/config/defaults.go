package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL            = "http://localhost:8080/v1"
	DefaultWSURL              = "ws://localhost:8080/v1/stream"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultJWTTTL             = time.Hour
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultStreamBufferSize   = 1000
	DefaultSaveDebounce       = 300 * time.Millisecond
	DefaultLoopBuffer         = 1024
	DefaultReconcileInterval  = 5 * time.Minute
	DefaultPageSize           = 500
	DefaultPollInterval       = time.Minute
	DefaultPollTimeout        = 10 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultServerPort         = 9090
	DefaultLogLevel           = "info"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.JWTTTL == 0 {
		c.API.JWTTTL = DefaultJWTTTL
	}
	if c.API.JWTSubject == "" {
		c.API.JWTSubject = c.Instance.ID
	}

	// Stream defaults
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}

	// Alerts defaults
	if c.Alerts.SaveDebounce == 0 {
		c.Alerts.SaveDebounce = DefaultSaveDebounce
	}
	if c.Alerts.LoopBuffer == 0 {
		c.Alerts.LoopBuffer = DefaultLoopBuffer
	}

	// Markets defaults
	if c.Markets.ReconcileInterval == 0 {
		c.Markets.ReconcileInterval = DefaultReconcileInterval
	}
	if c.Markets.PageSize == 0 {
		c.Markets.PageSize = DefaultPageSize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultBufferSize
	}

	// Server and log defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
