// Package config loads objgraph settings.
//
// Settings come from a YAML file, then from a .env file in the working
// directory, then from OBJGRAPH_* environment variables. Later sources
// win; a variable set in the environment is never replaced by .env.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/translator"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OBJGRAPH_"

// Config is the application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schema     SchemaConfig     `yaml:"schema"`
	Translator TranslatorConfig `yaml:"translator"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	// Path is the SQLite file, or the connection string for postgres.
	Path    string `yaml:"path"`
	Adapter string `yaml:"adapter"`
}

type SchemaConfig struct {
	// Path is the CUE data map file.
	Path string `yaml:"path"`
}

type TranslatorConfig struct {
	CaseInsensitiveLike bool `yaml:"case_insensitive_like"`
	TableAliases        bool `yaml:"table_aliases"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Database:   DatabaseConfig{Path: "objgraph.db", Adapter: "sqlite"},
		Schema:     SchemaConfig{Path: "schema.cue"},
		Translator: TranslatorConfig{TableAliases: true},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads path, which may be empty, and applies the .env file of the
// working directory and the environment.
func Load(path string) (*Config, error) {
	return load(path, ".env", os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	text := map[string]*string{
		"DATABASE_PATH":    &c.Database.Path,
		"DATABASE_ADAPTER": &c.Database.Adapter,
		"SCHEMA_PATH":      &c.Schema.Path,
		"LOG_LEVEL":        &c.Log.Level,
	}
	for key, field := range text {
		if v, ok := env(EnvPrefix + key); ok {
			*field = v
		}
	}

	flags := map[string]*bool{
		"TRANSLATOR_CASE_INSENSITIVE_LIKE": &c.Translator.CaseInsensitiveLike,
		"TRANSLATOR_TABLE_ALIASES":         &c.Translator.TableAliases,
		"CACHE_ENABLED":                    &c.Cache.Enabled,
	}
	for key, field := range flags {
		v, ok := env(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*field = b
	}
	return nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Adapter {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.adapter %q: must be sqlite or postgres", c.Database.Adapter)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Adapter returns the adapter named by database.adapter.
func (c *Config) Adapter() dbadapter.DbAdapter {
	if c.Database.Adapter == "postgres" {
		return dbadapter.NewPostgresAdapter()
	}
	return dbadapter.NewSQLiteAdapter()
}

// TranslatorOptions returns the select translator settings.
func (c *Config) TranslatorOptions() []translator.Option {
	return []translator.Option{
		translator.WithCaseInsensitiveLike(c.Translator.CaseInsensitiveLike),
		translator.WithTableAliases(c.Translator.TableAliases),
	}
}

// LogLevel returns log.level as a slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q: must be debug, info, warn or error", name)
}
