package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config - общие настройки сервера, CLI и бота
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Client   ClientConfig   `toml:"client"`
	Telegram TelegramConfig `toml:"telegram"`
	LogLevel string         `toml:"log_level"`
}

type ServerConfig struct {
	Addr       string   `toml:"addr"`
	DBPath     string   `toml:"db_path"`
	SessionTTL Duration `toml:"session_ttl"`
	ExpireSpec string   `toml:"expire_spec"`
}

type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	StatePath string `toml:"state_path"`
}

type TelegramConfig struct {
	Token string `toml:"token"`
	Debug bool   `toml:"debug"`
}

// Duration позволяет писать в TOML значения вида "12h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("разбор длительности %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default возвращает настройки по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":5000",
			DBPath:     filepath.Join("data", "todo.sqlite"),
			SessionTTL: Duration{24 * time.Hour},
			ExpireSpec: "@every 1m",
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:5000",
			StatePath: defaultStatePath(),
		},
		LogLevel: "info",
	}
}

func defaultStatePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".todo-session.json"
	}
	return filepath.Join(homeDir, ".config", "todo-calendar", "session.json")
}

// DefaultPath - где Load ищет файл, если путь не задан
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("TODO_CONFIG")); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "todo.toml"
	}
	return filepath.Join(homeDir, ".config", "todo-calendar", "config.toml")
}

// Load читает конфигурацию из стандартного места
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom читает конфигурацию из файла и накладывает переменные окружения
func LoadFrom(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// файла нет: значения по умолчанию плюс окружение
	case err != nil:
		return nil, fmt.Errorf("чтение файла конфигурации: %w", err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("разбор файла конфигурации: %w", err)
		}
	}

	applyEnv(cfg)

	cfg.Server.DBPath = expandPath(cfg.Server.DBPath)
	cfg.Client.StatePath = expandPath(cfg.Client.StatePath)

	if cfg.Server.SessionTTL.Duration <= 0 {
		return nil, fmt.Errorf("server.session_ttl должен быть положительным")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Addr, "TODO_ADDR")
	set(&cfg.Server.DBPath, "TODO_DB_PATH")
	set(&cfg.Server.ExpireSpec, "TODO_EXPIRE_SPEC")
	set(&cfg.Client.BaseURL, "TODO_SERVER_URL")
	set(&cfg.Client.StatePath, "TODO_STATE_PATH")
	set(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	set(&cfg.LogLevel, "TODO_LOG_LEVEL")
}

// expandPath раскрывает ~ в домашнюю директорию
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// SaveTo сохраняет конфигурацию в TOML
func (c *Config) SaveTo(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("создание директории конфигурации: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("создание файла конфигурации: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("запись конфигурации: %w", err)
	}
	return nil
}
