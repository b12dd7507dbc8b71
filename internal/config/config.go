package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Store struct {
		Driver string `yaml:"driver"` // memory, postgres or mongo
	} `yaml:"store"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Registry struct {
		ChunkBytes int `yaml:"chunkBytes"`
	} `yaml:"registry"`
	Leaderboard struct {
		FeedDepth int `yaml:"feedDepth"`
	} `yaml:"leaderboard"`
}

// Defaults returns a configuration that runs entirely in memory.
func Defaults() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Store.Driver = "memory"
	cfg.Mongo.Database = "testyourself"
	cfg.Redis.TTL = "10m"
	cfg.Registry.ChunkBytes = 900_000
	cfg.Leaderboard.FeedDepth = 10
	return cfg
}

// Load reads YAML config from path on top of Defaults. A missing file is not
// an error. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
