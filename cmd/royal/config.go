package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "royal.yaml"
	envPrefix         = "ROYAL_"
)

// Config holds settings shared by all commands. Values are layered:
// defaults, then the YAML file, then ROYAL_* environment variables, then
// flags that were set explicitly.
type Config struct {
	Language        string        `yaml:"language"`
	Engine          string        `yaml:"engine"`
	Timeout         time.Duration `yaml:"timeout"`
	Memory          string        `yaml:"memory"`
	NoCache         bool          `yaml:"no_cache"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	Port            int           `yaml:"port"`
	PreviewMaxBytes int           `yaml:"preview_max_bytes"`
	SampleInterval  time.Duration `yaml:"sample_interval"`
	Dark            bool          `yaml:"dark"`
}

func defaultConfig() Config {
	return Config{
		Engine:          "quickjs",
		Timeout:         30 * time.Second,
		Memory:          "256mb",
		LogLevel:        "info",
		Port:            8080,
		PreviewMaxBytes: 1024 * 1024,
		SampleInterval:  time.Second,
	}
}

// loadConfig builds the effective configuration. path may be empty, in which
// case royal.yaml in the working directory is used if present.
func loadConfig(path string, flags *pflag.FlagSet, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive, got %v", c.SampleInterval)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// loadDotEnv reads .env into the process environment. A missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	str("LANGUAGE", &cfg.Language)
	str("ENGINE", &cfg.Engine)
	str("MEMORY", &cfg.Memory)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)

	for key, dst := range map[string]*time.Duration{
		"TIMEOUT":         &cfg.Timeout,
		"SAMPLE_INTERVAL": &cfg.SampleInterval,
	} {
		if v := getenv(envPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*int{
		"PORT":              &cfg.Port,
		"PREVIEW_MAX_BYTES": &cfg.PreviewMaxBytes,
	} {
		if v := getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*bool{
		"NO_CACHE": &cfg.NoCache,
		"DARK":     &cfg.Dark,
	} {
		if v := getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := flags.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}
	set("lang", func() (e error) { cfg.Language, e = flags.GetString("lang"); return })
	set("engine", func() (e error) { cfg.Engine, e = flags.GetString("engine"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("memory", func() (e error) { cfg.Memory, e = flags.GetString("memory"); return })
	set("no-cache", func() (e error) { cfg.NoCache, e = flags.GetBool("no-cache"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = flags.GetString("log-level"); return })
	set("log-file", func() (e error) { cfg.LogFile, e = flags.GetString("log-file"); return })
	set("port", func() (e error) { cfg.Port, e = flags.GetInt("port"); return })
	set("dark", func() (e error) { cfg.Dark, e = flags.GetBool("dark"); return })
	return err
}
