package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/compatdb/internal/storage"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding an optional YAML config path.
const FileEnv = "CONFIG_FILE"

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if set) and environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
// Environment variables always win over the file.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	root := reflect.ValueOf(cfg).Elem()

	if err := walk(root, applyDefault); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := walk(root, applyEnv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := walk(root, checkRequired); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type fieldFunc func(field reflect.StructField, val reflect.Value) error

// walk calls fn for every settable leaf field, recursing into nested structs.
func walk(v reflect.Value, fn fieldFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := walk(fieldVal, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}

	return nil
}

func applyDefault(field reflect.StructField, val reflect.Value) error {
	def := field.Tag.Get("default")
	if def == "" {
		return nil
	}
	if err := setField(val, def); err != nil {
		return fmt.Errorf("invalid default for %s=%q: %w", field.Name, def, err)
	}
	return nil
}

func applyEnv(field reflect.StructField, val reflect.Value) error {
	envName := field.Tag.Get("env")
	if envName == "" {
		return nil
	}

	// Try primary env var, then alternate
	value := os.Getenv(envName)
	if value == "" {
		if alt := field.Tag.Get("envAlt"); alt != "" {
			value = os.Getenv(alt)
		}
	}
	if value == "" {
		return nil
	}

	if err := setField(val, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
	}
	return nil
}

func checkRequired(field reflect.StructField, val reflect.Value) error {
	if field.Tag.Get("required") != "true" || !val.IsZero() {
		return nil
	}
	return fmt.Errorf("required setting %s is not set (env %s or yaml %q)",
		field.Name, field.Tag.Get("env"), field.Tag.Get("yaml"))
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if _, err := storage.ParseDialect(c.Database.Dialect); err != nil {
		errs = append(errs, fmt.Sprintf("DB_DIALECT: %v", err))
	}
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Search validation
	if c.Search.Threshold <= 0 || c.Search.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("SEARCH_THRESHOLD (%g) must be in (0, 1]", c.Search.Threshold))
	}
	if c.Search.Distance == 0 {
		errs = append(errs, "SEARCH_DISTANCE must be non-zero")
	}
	if c.Search.MinQueryLength <= 0 {
		errs = append(errs, "SEARCH_MIN_QUERY_LENGTH must be positive")
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, "SEARCH_DEFAULT_LIMIT must be positive")
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, fmt.Sprintf("SEARCH_MAX_LIMIT (%d) must be >= SEARCH_DEFAULT_LIMIT (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit))
	}
	if c.Search.RefreshInterval < 0 {
		errs = append(errs, "SEARCH_REFRESH_INTERVAL must be non-negative")
	}

	// Sample validation
	if c.Sample.DefaultSize <= 0 {
		errs = append(errs, "SAMPLE_DEFAULT_SIZE must be positive")
	}
	if c.Sample.MaxSize < c.Sample.DefaultSize {
		errs = append(errs, fmt.Sprintf("SAMPLE_MAX_SIZE (%d) must be >= SAMPLE_DEFAULT_SIZE (%d)",
			c.Sample.MaxSize, c.Sample.DefaultSize))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe representation of the config for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {Dialect: %q, URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.Dialect, c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: [%d MASKED]}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Search: {Threshold: %g, Distance: %d, MinQueryLength: %d}, ",
		c.Search.Threshold, c.Search.Distance, c.Search.MinQueryLength)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
