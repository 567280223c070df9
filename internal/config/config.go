package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultSecret is the signing secret used when SECRET_KEY is not set.
const DefaultSecret = "dev-secret"

// Config holds all configuration for the service.
type Config struct {
	Port     string
	LogLevel string
	Env      string

	StorageBackend string // mongo | postgres | memory
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string

	SecretKey      string
	SessionTTL     time.Duration
	SessionBackend string // memory | redis
	RedisAddr      string
	CookieName     string
	CookieSecure   bool

	CORSOrigins  []string
	KafkaBrokers []string
	BulkMaxBytes int64
}

type setting struct {
	env, yaml, def string
}

var settings = []setting{
	{"PORT", "port", "5000"},
	{"LOG_LEVEL", "log_level", "info"},
	{"APP_ENV", "app_env", "development"},
	{"STORAGE_BACKEND", "storage_backend", "mongo"},
	{"MONGODB_URI", "mongodb_uri", ""},
	{"MONGODB_DATABASE", "mongodb_database", "travel_journal"},
	{"DATABASE_URL", "database_url", ""},
	{"SECRET_KEY", "secret_key", DefaultSecret},
	{"SESSION_TTL", "session_ttl", "168h"},
	{"SESSION_BACKEND", "session_backend", "memory"},
	{"REDIS_ADDR", "redis_addr", "localhost:6379"},
	{"SESSION_COOKIE_NAME", "session_cookie_name", "session"},
	{"SESSION_COOKIE_SECURE", "session_cookie_secure", "false"},
	{"CORS_ORIGINS", "cors_origins", "http://localhost:5173,https://travelrecord.onrender.com"},
	{"KAFKA_BROKERS", "kafka_brokers", ""},
	{"BULK_MAX_BYTES", "bulk_max_bytes", "10485760"},
}

// Load builds the configuration. Sources, lowest precedence first: defaults,
// the YAML file at path (skipped when path is empty), then the environment,
// which .env seeds when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	vals := make(map[string]string, len(settings))
	for _, s := range settings {
		vals[s.env] = s.def
	}

	if path != "" {
		if err := applyFile(path, vals); err != nil {
			return nil, err
		}
	}

	for _, s := range settings {
		if v, ok := os.LookupEnv(s.env); ok {
			vals[s.env] = v
		}
	}

	cfg, err := parse(vals)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(path string, vals map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var file map[string]interface{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	byYAML := make(map[string]string, len(settings))
	for _, s := range settings {
		byYAML[s.yaml] = s.env
	}
	for k, v := range file {
		env, ok := byYAML[k]
		if !ok {
			return fmt.Errorf("config: unknown key %q in %s", k, path)
		}
		vals[env] = yamlString(v)
	}
	return nil
}

// yamlString flattens a scalar or a list of scalars to the env form.
func yamlString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func parse(vals map[string]string) (*Config, error) {
	cfg := &Config{
		Port:           vals["PORT"],
		LogLevel:       vals["LOG_LEVEL"],
		Env:            vals["APP_ENV"],
		StorageBackend: strings.ToLower(vals["STORAGE_BACKEND"]),
		MongoURI:       vals["MONGODB_URI"],
		MongoDatabase:  vals["MONGODB_DATABASE"],
		DatabaseURL:    vals["DATABASE_URL"],
		SecretKey:      vals["SECRET_KEY"],
		SessionBackend: strings.ToLower(vals["SESSION_BACKEND"]),
		RedisAddr:      vals["REDIS_ADDR"],
		CookieName:     vals["SESSION_COOKIE_NAME"],
		CORSOrigins:    splitList(vals["CORS_ORIGINS"]),
		KafkaBrokers:   splitList(vals["KAFKA_BROKERS"]),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(vals["SESSION_TTL"]); err != nil {
		return nil, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	if cfg.CookieSecure, err = strconv.ParseBool(vals["SESSION_COOKIE_SECURE"]); err != nil {
		return nil, fmt.Errorf("config: SESSION_COOKIE_SECURE: %w", err)
	}
	if cfg.BulkMaxBytes, err = strconv.ParseInt(vals["BULK_MAX_BYTES"], 10, 64); err != nil {
		return nil, fmt.Errorf("config: BULK_MAX_BYTES: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORAGE_BACKEND=mongo"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	switch c.SessionBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if c.SessionBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when SESSION_BACKEND=redis"))
	}

	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.BulkMaxBytes <= 0 {
		errs = append(errs, errors.New("BULK_MAX_BYTES must be positive"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool { return strings.EqualFold(c.Env, "production") }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
