package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultCandidates are the paths that Load tries in order when no explicit
// path is given.
var DefaultCandidates = []string{"configs/rippley.yaml", "rippley.yaml"}

// Config is the Rippley server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Chat   ChatConfig   `yaml:"chat"`
	Tasks  TasksConfig  `yaml:"tasks"`
	Memory MemoryConfig `yaml:"memory"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ChatConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	Model             string  `yaml:"model"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type TasksConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queueSize"`
}

type MemoryConfig struct {
	MaxEntries int `yaml:"maxEntries"`
}

// Default returns the default Config.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8000"},
		Log:    LogConfig{Level: "info"},
		Chat: ChatConfig{
			Model:             "gpt-4o-mini",
			TimeoutSeconds:    60,
			RequestsPerSecond: 10,
			Burst:             1,
		},
		Tasks:  TasksConfig{Workers: 4, QueueSize: 128},
		Memory: MemoryConfig{MaxEntries: 10000},
	}
}

// Load loads the Config from the first existing DefaultCandidates path and
// applies RIPPLEY_* environment overrides. A missing file is not an error;
// the defaults are used instead.
func Load() (Config, error) {
	return LoadFromPath("")
}

// LoadFromPath does the same as Load but reads the given path. An empty path
// falls back to DefaultCandidates.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()

	candidates := DefaultCandidates
	if path != "" {
		candidates = []string{path}
	}

	for _, candidate := range candidates {
		b, err := os.ReadFile(candidate)
		if os.IsNotExist(err) {
			if path != "" {
				return cfg, fmt.Errorf("read config %q: %w", path, err)
			}
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", candidate, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", candidate, err)
		}
		break
	}

	applyEnv(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RIPPLEY_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RIPPLEY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RIPPLEY_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("RIPPLEY_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("RIPPLEY_TASK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tasks.Workers = n
		}
	}
	if v := os.Getenv("RIPPLEY_TASK_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tasks.QueueSize = n
		}
	}
	if v := os.Getenv("RIPPLEY_MEMORY_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Memory.MaxEntries = n
		}
	}
}
