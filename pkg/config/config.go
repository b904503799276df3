package config

import "time"

// Config is the top-level configuration tree, trimmed from the teacher's
// ~20-section struct down to the HTTP/REST surface, the three OCPP
// transports, persistence, the optional cache/queue enrichments, and the
// ambient observability/resilience stack. cmd/server does not read the
// Logging or CircuitBreaker sections.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	OCPP           OCPPConfig           `mapstructure:"ocpp"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	NATS           NATSConfig           `mapstructure:"nats"`
	RabbitMQ       RabbitMQConfig       `mapstructure:"rabbitmq"`
	Vault          VaultConfig          `mapstructure:"vault"`
	Encryption     EncryptionConfig     `mapstructure:"encryption"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OCPPConfig gathers the three transport adapters behind one enable flag
// apiece (spec §6), plus the shared send timeout and the WebSocket
// adapter's own listener address.
type OCPPConfig struct {
	SendTimeout time.Duration       `mapstructure:"send_timeout"`
	MQTT        MQTTTransportConfig `mapstructure:"mqtt"`
	WebSocket   WSTransportConfig   `mapstructure:"websocket"`
	HTTP        HTTPTransportConfig `mapstructure:"http"`
}

type MQTTTransportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BrokerURL string `mapstructure:"broker_url"`
}

type WSTransportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type HTTPTransportConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// RedisConfig backs the optional EVSEStatus/last-seen hot cache. Empty URL
// means cache.NewLocalCache is used instead.
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	Enabled  bool          `mapstructure:"enabled"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

// NATSConfig backs the optional DeviceEvent fan-out bus.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// RabbitMQConfig is the alternative MessageQueue implementation behind the
// same queue.MessageQueue port; when both NATS and RabbitMQ are enabled,
// cmd/server uses NATS.
type RabbitMQConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// VaultConfig controls whether ENCRYPTION_KEY/ENCRYPTION_SALT are read from
// Vault at boot instead of straight from Encryption below.
type VaultConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

// EncryptionConfig feeds internal/credential.New directly when Vault is
// disabled.
type EncryptionConfig struct {
	Key  string `mapstructure:"key"`
	Salt string `mapstructure:"salt"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	ServiceName string       `mapstructure:"service_name"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
}

type JaegerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	ExposeHeaders  []string `mapstructure:"expose_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}
