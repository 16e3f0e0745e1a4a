package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	CheckIn     CheckInConfig     `yaml:"checkin"`
	Sync        SyncConfig        `yaml:"sync"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type RecognitionConfig struct {
	ModelsDir string `yaml:"models_dir"`
	// MatchThreshold is the maximum cosine distance for an accepted match.
	// The legacy app hardcoded 0.4; kept configurable here.
	MatchThreshold float64 `yaml:"match_threshold"`
	EmbeddingDim   int     `yaml:"embedding_dim"`
	InputSize      int     `yaml:"input_size"`
	WorkerCount    int     `yaml:"worker_count"`
}

type CheckInConfig struct {
	// Cooldown is the minimum interval between accepted check-ins
	// for the same identity.
	Cooldown time.Duration `yaml:"cooldown"`
}

type SyncConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Throttle time.Duration `yaml:"throttle"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Recognition.MatchThreshold == 0 {
		cfg.Recognition.MatchThreshold = 0.4
	}
	if cfg.Recognition.EmbeddingDim == 0 {
		cfg.Recognition.EmbeddingDim = 512
	}
	if cfg.Recognition.InputSize == 0 {
		cfg.Recognition.InputSize = 160
	}
	if cfg.Recognition.WorkerCount == 0 {
		cfg.Recognition.WorkerCount = 4
	}
	if cfg.CheckIn.Cooldown == 0 {
		cfg.CheckIn.Cooldown = time.Minute
	}
	if cfg.Sync.Throttle == 0 {
		cfg.Sync.Throttle = time.Minute
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.Timeout == 0 {
		cfg.Sync.Timeout = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AZURA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AZURA_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("AZURA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("AZURA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("AZURA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("AZURA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("AZURA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("AZURA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AZURA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AZURA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("AZURA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("AZURA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("AZURA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("AZURA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("AZURA_MODELS_DIR"); v != "" {
		cfg.Recognition.ModelsDir = v
	}
	if v := os.Getenv("AZURA_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.WorkerCount = n
		}
	}
	if v := os.Getenv("AZURA_SYNC_ENDPOINT"); v != "" {
		cfg.Sync.Endpoint = v
	}
	if v := os.Getenv("AZURA_SYNC_API_KEY"); v != "" {
		cfg.Sync.APIKey = v
	}
}
