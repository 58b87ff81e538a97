// Package config loads editor service settings from defaults, an optional TOML
// file and environment variables, in that order.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"

	"eproba-editor/domain"
)

const (
	DriverAzure  = "azure"
	DriverSQLite = "sqlite"
)

type Config struct {
	Debug      bool   `toml:"debug"`
	ListenAddr string `toml:"listen_addr"`

	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	Auth    AuthConfig    `toml:"auth"`
	Submit  SubmitConfig  `toml:"submit"`

	DefaultTasksPerCategory int `toml:"default_tasks_per_category"`
}

type StorageConfig struct {
	Driver           string `toml:"driver"`
	ConnectionString string `toml:"connection_string"`
	DraftsTable      string `toml:"drafts_table"`
	SubmissionQueue  string `toml:"submission_queue"`
	SQLitePath       string `toml:"sqlite_path"`
}

type RedisConfig struct {
	ConnectionString string   `toml:"connection_string"`
	DraftCacheTTL    Duration `toml:"draft_cache_ttl"`
	DeduperTTL       Duration `toml:"deduper_ttl"`
}

type AuthConfig struct {
	Domain       string   `toml:"domain"`
	Audience     string   `toml:"audience"`
	TestMode     bool     `toml:"test_mode"`
	TestSecret   string   `toml:"test_secret"`
	JWKSCacheTTL Duration `toml:"jwks_cache_ttl"`
}

type SubmitConfig struct {
	Workers        int      `toml:"workers"`
	Buffer         int      `toml:"buffer"`
	Timeout        Duration `toml:"timeout"`
	HandoffTimeout Duration `toml:"handoff_timeout"`
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Storage: StorageConfig{
			Driver:      DriverAzure,
			DraftsTable: "EditorDrafts",
		},
		Redis: RedisConfig{
			DraftCacheTTL: Duration(10 * time.Minute),
			DeduperTTL:    Duration(24 * time.Hour),
		},
		Auth: AuthConfig{
			JWKSCacheTTL: Duration(5 * time.Minute),
		},
		Submit: SubmitConfig{
			Workers:        4,
			Buffer:         64,
			Timeout:        Duration(15 * time.Second),
			HandoffTimeout: Duration(50 * time.Millisecond),
		},
		DefaultTasksPerCategory: 3,
	}
}

// Load builds the configuration. EDITOR_CONFIG may name a TOML file whose
// values sit between the defaults and the environment.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path, ok := lookup("EDITOR_CONFIG"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	positiveInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				errs = append(errs, fmt.Errorf("invalid %s: must be a positive integer", key))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("invalid %s: must be a positive duration", key))
				return
			}
			*dst = Duration(d)
		}
	}

	boolean("DEBUG", &cfg.Debug)
	str("LISTEN_ADDR", &cfg.ListenAddr)
	if port, ok := lookup("FUNCTIONS_CUSTOMHANDLER_PORT"); ok && port != "" {
		cfg.ListenAddr = ":" + port
	}

	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_CONNECTION_STRING", &cfg.Storage.ConnectionString)
	str("DRAFTS_TABLE", &cfg.Storage.DraftsTable)
	str("SUBMISSION_QUEUE", &cfg.Storage.SubmissionQueue)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)

	str("REDIS_CONNECTION_STRING", &cfg.Redis.ConnectionString)
	duration("DRAFT_CACHE_TTL", &cfg.Redis.DraftCacheTTL)
	duration("DEDUPER_TTL", &cfg.Redis.DeduperTTL)

	str("AUTH0_DOMAIN", &cfg.Auth.Domain)
	str("AUTH0_AUDIENCE", &cfg.Auth.Audience)
	if v, ok := lookup("AUTH0_TEST_MODE"); ok && v != "" {
		cfg.Auth.TestMode = v == "1" || strings.EqualFold(v, "true")
	}
	str("TEST_JWT_SECRET", &cfg.Auth.TestSecret)
	duration("JWKS_CACHE_TTL", &cfg.Auth.JWKSCacheTTL)

	positiveInt("SUBMIT_WORKERS", &cfg.Submit.Workers)
	positiveInt("SUBMIT_BUFFER", &cfg.Submit.Buffer)
	duration("SUBMIT_TIMEOUT", &cfg.Submit.Timeout)
	duration("SUBMIT_HANDOFF_TIMEOUT", &cfg.Submit.HandoffTimeout)

	positiveInt("DEFAULT_TASKS_PER_CATEGORY", &cfg.DefaultTasksPerCategory)

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	return errors.Join(errs...)
}

// Validate reports every missing or inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverAzure:
		if c.Storage.ConnectionString == "" || c.Storage.DraftsTable == "" || c.Storage.SubmissionQueue == "" {
			errs = append(errs, errors.New("missing storage config"))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("missing SQLITE_PATH"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Redis.ConnectionString == "" {
		errs = append(errs, errors.New("missing redis config"))
	}
	if c.Auth.TestMode {
		if c.Auth.TestSecret == "" {
			errs = append(errs, errors.New("missing TEST_JWT_SECRET"))
		}
	} else if c.Auth.Domain == "" || c.Auth.Audience == "" {
		errs = append(errs, errors.New("missing Auth0 config"))
	}
	if limit := MaxDefaultTasksPerCategory(); c.DefaultTasksPerCategory <= 0 || c.DefaultTasksPerCategory > limit {
		errs = append(errs, fmt.Errorf("default tasks per category must be between 1 and %d", limit))
	}
	return errors.Join(errs...)
}

// MaxDefaultTasksPerCategory is the largest blank set a new editor can open
// with while staying within the task limit.
func MaxDefaultTasksPerCategory() int {
	return domain.MaxTasks / len(domain.Categories)
}

// Issuer returns the expected token issuer for the configured domain.
func (a AuthConfig) Issuer() string {
	return "https://" + a.Domain + "/"
}

// JWKSURL returns the key set location of the configured domain.
func (a AuthConfig) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", a.Domain)
}

// RedisOptions parses either a redis:// URL or an Azure style
// "host:port,password=...,ssl=True" connection string.
func (r RedisConfig) RedisOptions() (*redis.Options, error) {
	if r.ConnectionString == "" {
		return nil, errors.New("missing redis config")
	}
	if opts, err := redis.ParseURL(r.ConnectionString); err == nil {
		return opts, nil
	}
	parts := strings.Split(r.ConnectionString, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
