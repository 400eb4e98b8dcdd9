package config

import (
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string   `yaml:"log-level"       env:"LOG_LEVEL"       env-default:"info"`
	HTTPPort       string   `yaml:"http-port"       env:"HTTP_PORT"       env-default:"9090"`
	SocketPort     string   `yaml:"socket-port"     env:"SOCKET_PORT"     env-default:"7777"`
	PublicURL      string   `yaml:"public-url"      env:"PUBLIC_URL"      env-default:"http://localhost:3000"`
	AllowedOrigins []string `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:","`
	Rooms          Rooms    `yaml:"rooms"`
	Redis          Redis    `yaml:"redis"`
}

type Rooms struct {
	DefaultSize int           `yaml:"default-size" env:"ROOMS_DEFAULT_SIZE" env-default:"3"`
	IdleTimeout time.Duration `yaml:"idle-timeout" env:"ROOMS_IDLE_TIMEOUT" env-default:"10m"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"ROOMS_SNAPSHOT_TTL" env-default:"1h"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	DB   int    `yaml:"db"   env:"REDIS_DB"   env-default:"0"`
}

// Load - reads the yaml file at path, then applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
