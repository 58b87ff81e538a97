package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.Storage.Driver != DriverAzure || cfg.DefaultTasksPerCategory != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Redis.DeduperTTL.D() != 24*time.Hour {
		t.Fatalf("unexpected deduper ttl: %v", cfg.Redis.DeduperTTL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.toml")
	file := `
debug = true
default_tasks_per_category = 5

[storage]
driver = "sqlite"
sqlite_path = "/tmp/from-file.db"

[submit]
workers = 2
timeout = "30s"
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load(env(map[string]string{
		"EDITOR_CONFIG":                path,
		"SQLITE_PATH":                  "/tmp/from-env.db",
		"FUNCTIONS_CUSTOMHANDLER_PORT": "7071",
		"AUTH0_TEST_MODE":              "1",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Debug || cfg.DefaultTasksPerCategory != 5 || cfg.Submit.Workers != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Submit.Timeout.D() != 30*time.Second {
		t.Fatalf("expected 30s submit timeout, got %v", cfg.Submit.Timeout)
	}
	if cfg.Storage.SQLitePath != "/tmp/from-env.db" || cfg.ListenAddr != ":7071" || !cfg.Auth.TestMode {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DEBUG":          "maybe",
		"DEDUPER_TTL":    "-1s",
		"SUBMIT_WORKERS": "zero",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := load(env(map[string]string{key: val}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Storage.ConnectionString = "UseDevelopmentStorage=true"
	valid.Storage.SubmissionQueue = "submissions"
	valid.Redis.ConnectionString = "localhost:6379"
	valid.Auth.Domain = "eproba.eu.auth0.com"
	valid.Auth.Audience = "eproba-api"

	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	atLimit := valid
	atLimit.DefaultTasksPerCategory = MaxDefaultTasksPerCategory()
	if err := atLimit.Validate(); err != nil {
		t.Fatalf("unexpected error at the task limit: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing queue", func(c *Config) { c.Storage.SubmissionQueue = "" }, "missing storage config"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = DriverSQLite }, "SQLITE_PATH"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "unknown storage driver"},
		{"missing redis", func(c *Config) { c.Redis.ConnectionString = "" }, "missing redis config"},
		{"missing auth", func(c *Config) { c.Auth.Domain = "" }, "missing Auth0 config"},
		{"test mode without secret", func(c *Config) { c.Auth.TestMode = true }, "TEST_JWT_SECRET"},
		{"no default tasks", func(c *Config) { c.DefaultTasksPerCategory = 0 }, "default tasks per category"},
		{"default tasks over the task limit", func(c *Config) { c.DefaultTasksPerCategory = MaxDefaultTasksPerCategory() + 1 }, "between 1 and 50"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := RedisConfig{ConnectionString: "redis://:secret@cache:6380/2"}.RedisOptions()
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts, err = RedisConfig{ConnectionString: "eproba.redis.cache.windows.net:6380,password=pw,ssl=True,abortConnect=False"}.RedisOptions()
	if err != nil {
		t.Fatalf("parse azure string: %v", err)
	}
	if opts.Addr != "eproba.redis.cache.windows.net:6380" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("unexpected azure options: %+v", opts)
	}
}

func TestAuthURLs(t *testing.T) {
	a := AuthConfig{Domain: "eproba.eu.auth0.com"}
	if a.Issuer() != "https://eproba.eu.auth0.com/" {
		t.Fatalf("unexpected issuer %q", a.Issuer())
	}
	if a.JWKSURL() != "https://eproba.eu.auth0.com/.well-known/jwks.json" {
		t.Fatalf("unexpected jwks url %q", a.JWKSURL())
	}
}
