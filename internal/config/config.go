package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"labelops/internal/ingest"
)

const (
	DefaultPath             = "clients.yaml"
	DefaultChatDefaultsPath = "data/chat_defaults.json"

	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrMissingField = errors.New("missing required config field")
	ErrInvalidField = errors.New("invalid config field")
)

type Config struct {
	// Path is the file the config was read from.
	Path    string
	BaseDir string

	Log       LogConfig
	Telegram  TelegramConfig
	Storage   StorageConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	ClickDrop ClickDropConfig
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TelegramConfig struct {
	Token                string
	DefaultClientID      string
	Clients              []string
	AllowlistedChatIDs   []int64
	AllowlistedUsernames []string
	ChatDefaultsPath     string
	Webhook              WebhookConfig
}

type WebhookConfig struct {
	URL         string `yaml:"url"`
	SecretPath  string `yaml:"secret_path"`
	SecretToken string `yaml:"secret_token"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	AutoMigrate *bool  `yaml:"auto_migrate"`
}

type RedisConfig struct {
	// Addr empty disables update de-duplication.
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	UpdateTTL time.Duration `yaml:"update_ttl"`
}

type HTTPConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	HealthPath  string `yaml:"health_path"`
	MetricsPath string `yaml:"metrics_path"`
}

// ClickDropConfig is only read by the export tooling. The retry schedule is
// carried as configuration; nothing in this module schedules retries.
type ClickDropConfig struct {
	APIBaseURL           string `yaml:"api_base_url"`
	APIKey               string `yaml:"api_key"`
	RetryScheduleMinutes []int  `yaml:"retry_schedule_minutes"`
}

type fileConfig struct {
	BaseDir   string          `yaml:"base_dir"`
	Log       LogConfig       `yaml:"log"`
	Telegram  telegramFile    `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	ClickDrop ClickDropConfig `yaml:"clickdrop"`
}

// Pointers distinguish an absent key from an explicitly empty list.
type telegramFile struct {
	Token                string        `yaml:"token"`
	DefaultClientID      string        `yaml:"default_client_id"`
	Clients              *[]string     `yaml:"clients"`
	AllowlistedChatIDs   *[]int64      `yaml:"allowlisted_chat_ids"`
	AllowlistedUsernames *[]string     `yaml:"allowlisted_usernames"`
	ChatDefaultsPath     string        `yaml:"chat_defaults_path"`
	Webhook              WebhookConfig `yaml:"webhook"`
}

// Load reads the YAML file at path and applies environment overrides for
// secrets. Any missing or malformed required field is an error.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw, absPath)
}

// Parse decodes data as if it had been read from path.
func Parse(data []byte, path string) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidField, err)
	}
	dir := filepath.Dir(path)

	cfg := &Config{
		Path:    path,
		BaseDir: resolvePath(dir, fc.BaseDir),
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", orDefault(fc.Log.Level, "info"))),
		},
		Telegram: TelegramConfig{
			Token:            mustEnv("BOT_TOKEN", strings.TrimSpace(fc.Telegram.Token)),
			DefaultClientID:  strings.ToLower(strings.TrimSpace(fc.Telegram.DefaultClientID)),
			ChatDefaultsPath: resolvePath(dir, orDefault(fc.Telegram.ChatDefaultsPath, DefaultChatDefaultsPath)),
			Webhook: WebhookConfig{
				URL:         strings.TrimSpace(fc.Telegram.Webhook.URL),
				SecretPath:  strings.Trim(orDefault(fc.Telegram.Webhook.SecretPath, "telegram"), "/"),
				SecretToken: mustEnv("WEBHOOK_SECRET_TOKEN", fc.Telegram.Webhook.SecretToken),
			},
		},
		Storage: StorageConfig{
			Driver:      normalizeDriver(orDefault(fc.Storage.Driver, DriverFile)),
			DSN:         mustEnv("DB_DSN", fc.Storage.DSN),
			AutoMigrate: fc.Storage.AutoMigrate,
		},
		Redis: RedisConfig{
			Addr:      mustEnv("REDIS_ADDR", fc.Redis.Addr),
			Password:  mustEnv("REDIS_PASSWORD", fc.Redis.Password),
			DB:        mustInt("REDIS_DB", fc.Redis.DB),
			UpdateTTL: mustDuration("UPDATE_DEDUPE_TTL", durationOr(fc.Redis.UpdateTTL, 6*time.Hour)),
		},
		HTTP: HTTPConfig{
			ListenAddr:  orDefault(fc.HTTP.ListenAddr, ":8080"),
			HealthPath:  orDefault(fc.HTTP.HealthPath, "/healthz"),
			MetricsPath: orDefault(fc.HTTP.MetricsPath, "/metrics"),
		},
		ClickDrop: ClickDropConfig{
			APIBaseURL:           strings.TrimSpace(fc.ClickDrop.APIBaseURL),
			APIKey:               mustEnv("CLICKDROP_API_KEY", fc.ClickDrop.APIKey),
			RetryScheduleMinutes: fc.ClickDrop.RetryScheduleMinutes,
		},
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = dir
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.DSN != "" && !strings.Contains(cfg.Storage.DSN, ":") {
		cfg.Storage.DSN = resolvePath(dir, cfg.Storage.DSN)
	}

	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("%w: telegram.token", ErrMissingField)
	}
	if cfg.Telegram.DefaultClientID == "" {
		return nil, fmt.Errorf("%w: telegram.default_client_id", ErrMissingField)
	}
	if fc.Telegram.Clients == nil {
		return nil, fmt.Errorf("%w: telegram.clients", ErrMissingField)
	}
	if fc.Telegram.AllowlistedChatIDs == nil {
		return nil, fmt.Errorf("%w: telegram.allowlisted_chat_ids", ErrMissingField)
	}
	if fc.Telegram.AllowlistedUsernames == nil {
		return nil, fmt.Errorf("%w: telegram.allowlisted_usernames", ErrMissingField)
	}

	clients, err := normalizeClients(*fc.Telegram.Clients)
	if err != nil {
		return nil, err
	}
	cfg.Telegram.Clients = clients
	if !contains(clients, cfg.Telegram.DefaultClientID) {
		return nil, fmt.Errorf("%w: telegram.default_client_id %q is not in telegram.clients", ErrInvalidField, cfg.Telegram.DefaultClientID)
	}

	cfg.Telegram.AllowlistedChatIDs = append([]int64(nil), *fc.Telegram.AllowlistedChatIDs...)
	for _, u := range *fc.Telegram.AllowlistedUsernames {
		if n := strings.ToLower(strings.TrimLeft(strings.TrimSpace(u), "@")); n != "" {
			cfg.Telegram.AllowlistedUsernames = append(cfg.Telegram.AllowlistedUsernames, n)
		}
	}

	switch cfg.Storage.Driver {
	case DriverFile:
	case DriverSQLite, DriverPostgres:
		if cfg.Storage.DSN == "" {
			return nil, fmt.Errorf("%w: storage.dsn", ErrMissingField)
		}
	default:
		return nil, fmt.Errorf("%w: storage.driver %q", ErrInvalidField, cfg.Storage.Driver)
	}

	for _, m := range cfg.ClickDrop.RetryScheduleMinutes {
		if m < 0 {
			return nil, fmt.Errorf("%w: clickdrop.retry_schedule_minutes contains %d", ErrInvalidField, m)
		}
	}

	return cfg, nil
}

func (s StorageConfig) Migrate() bool {
	return s.AutoMigrate == nil || *s.AutoMigrate
}

// Validate checks the fields the export tooling needs.
func (c ClickDropConfig) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: clickdrop.api_base_url", ErrMissingField)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: clickdrop.api_key", ErrMissingField)
	}
	return nil
}

func (c ClickDropConfig) RetrySchedule() []time.Duration {
	out := make([]time.Duration, 0, len(c.RetryScheduleMinutes))
	for _, m := range c.RetryScheduleMinutes {
		out = append(out, time.Duration(m)*time.Minute)
	}
	return out
}

func (t TelegramConfig) HasClient(id string) bool {
	return contains(t.Clients, strings.ToLower(strings.TrimSpace(id)))
}

func normalizeClients(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if !ingest.ValidClientID(c) {
			return nil, fmt.Errorf("%w: telegram.clients entry %q must look like client_NN", ErrInvalidField, c)
		}
		if contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: telegram.clients is empty", ErrInvalidField)
	}
	return out, nil
}

func normalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "", "file", "json":
		return DriverFile
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return strings.ToLower(strings.TrimSpace(d))
	}
}

func resolvePath(dir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func durationOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(def)
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
