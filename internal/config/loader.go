package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the environment variable holding an optional YAML config path.
const FileEnv = "GRADEBOOK_CONFIG"

// Load builds a Config by layering, lowest precedence first:
//  1. struct-tag defaults
//  2. the YAML file named by GRADEBOOK_CONFIG, if set
//  3. environment variables
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	cfg := &Config{}
	v := reflect.ValueOf(cfg).Elem()

	if err := applyDefaults(v); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(v); err != nil {
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

// loadFile overlays YAML values onto cfg. Keys absent from the file keep
// their current values.
func loadFile(path string, cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return err
	}
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
}

// applyDefaults sets every field that has a default tag.
func applyDefaults(v reflect.Value) error {
	return walk(v, func(field reflect.StructField, val reflect.Value) error {
		def := field.Tag.Get("default")
		if def == "" {
			return nil
		}
		if err := setField(val, def); err != nil {
			return fmt.Errorf("invalid default for %s=%q: %w", field.Name, def, err)
		}
		return nil
	})
}

// applyEnv overrides fields whose environment variable is set.
func applyEnv(v reflect.Value) error {
	return walk(v, func(field reflect.StructField, val reflect.Value) error {
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
	})
}

// walk calls fn for every settable leaf field, recursing into nested structs.
func walk(v reflect.Value, fn func(reflect.StructField, reflect.Value) error) error {
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

	// Data validation
	if strings.TrimSpace(c.Data.SourceDir) == "" {
		errs = append(errs, "SOURCE_DIR must not be empty")
	}
	if strings.TrimSpace(c.Data.CacheDir) == "" {
		errs = append(errs, "CACHE_DIR must not be empty")
	}
	if c.Data.HotCacheTTL < 0 {
		errs = append(errs, "HOT_CACHE_TTL must be non-negative")
	}

	// Ingest validation
	if c.Ingest.MaxGrade <= c.Ingest.MinGrade {
		errs = append(errs, fmt.Sprintf("INGEST_MAX_GRADE (%g) must be greater than INGEST_MIN_GRADE (%g)",
			c.Ingest.MaxGrade, c.Ingest.MinGrade))
	}
	if c.Ingest.MaxUploadSize <= 0 {
		errs = append(errs, "INGEST_MAX_UPLOAD_SIZE must be positive")
	}
	if c.Ingest.MaxConcurrent <= 0 {
		errs = append(errs, "INGEST_MAX_CONCURRENT must be positive")
	}
	if c.Ingest.MaxWaitTime <= 0 {
		errs = append(errs, "INGEST_MAX_WAIT_TIME must be positive")
	}

	// Database validation, only when history goes to Postgres
	if c.Database.URL != "" {
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
	}
	if c.Database.HistoryLimit <= 0 {
		errs = append(errs, "HISTORY_LIMIT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Metrics validation
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("METRICS_PATH (%q) must start with /", c.Metrics.Path))
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

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	db := "[none]"
	if c.Database.URL != "" {
		db = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Data: {SourceDir: %q, CacheDir: %q, HotCacheTTL: %s}, ",
		c.Data.SourceDir, c.Data.CacheDir, c.Data.HotCacheTTL))
	b.WriteString(fmt.Sprintf("Ingest: {Grades: %g-%g, MaxUploadSize: %d}, ",
		c.Ingest.MinGrade, c.Ingest.MaxGrade, c.Ingest.MaxUploadSize))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d}, ", db, c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
