package config

import "time"

// Config is the root configuration for an alerts daemon instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance" env:",prefix=INSTANCE_"`
	API      APIConfig      `yaml:"api" env:",prefix=API_"`
	Stream   StreamConfig   `yaml:"stream" env:",prefix=STREAM_"`
	Alerts   AlertsConfig   `yaml:"alerts" env:",prefix=ALERTS_"`
	Markets  MarketsConfig  `yaml:"markets" env:",prefix=MARKETS_"`
	Poller   PollerConfig   `yaml:"poller" env:",prefix=POLLER_"`
	Database DBConfig       `yaml:"database" env:",prefix=DATABASE_"`
	Writer   WriterConfig   `yaml:"writer" env:",prefix=WRITER_"`
	Server   ServerConfig   `yaml:"server" env:",prefix=SERVER_"`
	Log      LogConfig      `yaml:"log" env:",prefix=LOG_"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id" env:"ID"`
}

// APIConfig holds alerts service settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url" env:"REST_URL"`
	WSURL      string        `yaml:"ws_url" env:"WS_URL"`
	Token      string        `yaml:"token" env:"TOKEN"`           // Static bearer token
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"` // HS256 secret for self-signed tokens
	JWTSubject string        `yaml:"jwt_subject" env:"JWT_SUBJECT"`
	JWTTTL     time.Duration `yaml:"jwt_ttl" env:"JWT_TTL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// StreamConfig holds stream connection settings.
type StreamConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay" env:"RECONNECT_BASE_DELAY"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay" env:"RECONNECT_MAX_DELAY"`
	PingInterval       time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	PingTimeout        time.Duration `yaml:"ping_timeout" env:"PING_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	BufferSize         int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// AlertsConfig holds alert manager settings.
type AlertsConfig struct {
	SaveDebounce   time.Duration `yaml:"save_debounce" env:"SAVE_DEBOUNCE"`
	ConfirmCancel  bool          `yaml:"confirm_cancel" env:"CONFIRM_CANCEL"`
	NotifyPlaced   bool          `yaml:"notify_placed" env:"NOTIFY_PLACED"`
	NotifyCanceled bool          `yaml:"notify_canceled" env:"NOTIFY_CANCELED"`
	NotifyExpired  bool          `yaml:"notify_expired" env:"NOTIFY_EXPIRED"`
	LoopBuffer     int           `yaml:"loop_buffer" env:"LOOP_BUFFER"`
}

// MarketsConfig holds market registry settings.
type MarketsConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"RECONCILE_INTERVAL"`
	PageSize          int           `yaml:"page_size" env:"PAGE_SIZE"`
}

// PollerConfig holds snapshot poller settings.
type PollerConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DBConfig holds the trigger history database connection.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"MIN_CONNS"`
}

// WriterConfig holds trigger writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
	BufferSize    int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// ServerConfig holds status server settings.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}
