package config

import (
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel      string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort      string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	WebSocketPort string `yaml:"websocket-port" env:"WEBSOCKET_PORT"`
	Relay         Relay  `yaml:"relay"`
	Redis         Redis  `yaml:"redis"`
}

type Relay struct {
	Host         string        `yaml:"host" env:"RELAY_HOST"`
	Port         string        `yaml:"port" env:"RELAY_PORT" env-default:"1000"`
	WriteTimeout time.Duration `yaml:"write-timeout" env:"RELAY_WRITE_TIMEOUT" env-default:"5s"`
	MaxPayload   int           `yaml:"max-payload" env:"RELAY_MAX_PAYLOAD" env-default:"4096"`
}

type Redis struct {
	Host    string `yaml:"host" env:"REDIS_HOST"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Channel string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"tictactoe:events"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads the YAML file at path, falling back to the environment alone when path is empty.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read config from env: %w", err)
		}
		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Relay) GetAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}

// Enabled - the event feed is optional and off without a host.
func (that *Redis) Enabled() bool {
	return that.Host != ""
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
