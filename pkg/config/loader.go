package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config.yaml (if present) from ./configs, ., or /app/configs,
// then layers APP_-prefixed environment variables on top, same search
// order and precedence as the teacher's loader.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Common unprefixed env vars, per spec §6.
	viper.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	viper.BindEnv("rabbitmq.url", "RABBITMQ_URL", "APP_RABBITMQ_URL")
	viper.BindEnv("encryption.key", "ENCRYPTION_KEY", "APP_ENCRYPTION_KEY")
	viper.BindEnv("encryption.salt", "ENCRYPTION_SALT", "APP_ENCRYPTION_SALT")
	viper.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	viper.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	viper.BindEnv("ocpp.mqtt.enabled", "ENABLE_MQTT_TRANSPORT")
	viper.BindEnv("ocpp.mqtt.broker_url", "MQTT_BROKER_URL")
	viper.BindEnv("ocpp.websocket.enabled", "ENABLE_WEBSOCKET_TRANSPORT")
	viper.BindEnv("ocpp.http.enabled", "ENABLE_HTTP_TRANSPORT")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "csms-ocpp16")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", "15s")
	viper.SetDefault("http.write_timeout", "15s")
	viper.SetDefault("http.idle_timeout", "60s")

	viper.SetDefault("ocpp.send_timeout", "5s")
	viper.SetDefault("ocpp.mqtt.enabled", false)
	viper.SetDefault("ocpp.websocket.enabled", true)
	viper.SetDefault("ocpp.websocket.addr", ":9000")
	viper.SetDefault("ocpp.http.enabled", true)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("redis.status_ttl", "30s")

	viper.SetDefault("opentelemetry.service_name", "csms-ocpp16")

	viper.SetDefault("prometheus.enabled", true)
	viper.SetDefault("prometheus.path", "/metrics")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.failure_threshold", 5)

	viper.SetDefault("cors.enabled", true)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	viper.SetDefault("cors.max_age", 300)
}
