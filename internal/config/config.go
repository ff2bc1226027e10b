package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort   string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	RoundTimeout time.Duration `yaml:"round-timeout" env:"ROUND_TIMEOUT" env-default:"0s"`
	HistoryLimit int64         `yaml:"history-limit" env:"HISTORY_LIMIT" env-default:"50"`
	HistoryTTL   time.Duration `yaml:"history-ttl" env:"HISTORY_TTL" env-default:"24h"`
	Redis        Redis         `yaml:"redis"`
	WebSocket    WebSocket     `yaml:"websocket"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type WebSocket struct {
	SendBuffer     int   `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"256"`
	MaxMessageSize int64 `yaml:"max-message-size" env:"WS_MAX_MESSAGE_SIZE" env-default:"4096"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
