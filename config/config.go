// Package config loads the .nameproxy.yaml project configuration.
//
// Values are layered: built-in defaults, then the config file, then
// NAMEPROXY_* environment variables, then command-line flags. Relative
// paths in the file are resolved against the file's directory.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/langmeta"
	"github.com/minios-linux/nameproxy/proxy"
	"github.com/minios-linux/nameproxy/settings"
	"github.com/minios-linux/nameproxy/translate"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".nameproxy.yaml"

// EnvPrefix prefixes every environment override (NAMEPROXY_TARGET_LANG,
// NAMEPROXY_PROVIDER_MODEL, ...).
const EnvPrefix = "NAMEPROXY"

// Config is the resolved project configuration.
type Config struct {
	// SourceLang and TargetLang are BCP 47 tags (default "ja" and "en").
	// An empty SourceLang lets the provider detect it.
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	// Context is the dictionary context used when a command names none.
	Context string `mapstructure:"context"`

	Provider Provider `mapstructure:"provider"`

	// Prompt overrides the translation system prompt.
	Prompt string `mapstructure:"prompt"`
	// PromptType picks a built-in or prompts.json prompt: sentence or dialogue.
	PromptType string `mapstructure:"prompt_type"`
	// JoinMarker joins two names into a compound (default "・").
	JoinMarker string `mapstructure:"join_marker"`

	// Dictionaries are YAML or TSV files loaded into an in-memory catalog
	// when no database is configured.
	Dictionaries []string `mapstructure:"dictionaries"`
	// Database is the SQLite dictionary store. Empty means in-memory only.
	Database string `mapstructure:"database"`

	// PoolFile is a YAML placeholder pool; Pool is an inline one. The file
	// wins when both are set.
	PoolFile string            `mapstructure:"pool_file"`
	Pool     []proxy.PoolEntry `mapstructure:"pool"`

	// Cache enables the translation cache. It requires Database.
	Cache bool `mapstructure:"cache"`

	LogLevel string `mapstructure:"log_level"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
	// Dir is the base directory for relative paths.
	Dir string `mapstructure:"-"`
}

// Provider selects the translation service.
type Provider struct {
	ID      string        `mapstructure:"id"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Proxy   string        `mapstructure:"proxy"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"source_lang":       "ja",
	"target_lang":       "en",
	"context":           "",
	"provider.id":       "",
	"provider.model":    "",
	"provider.base_url": "",
	"provider.api_key":  "",
	"provider.proxy":    "",
	"provider.timeout":  time.Duration(0),
	"prompt":            "",
	"prompt_type":       "",
	"join_marker":       proxy.DefaultJoinMarker,
	"dictionaries":      []string{},
	"database":          "",
	"pool_file":         "",
	"cache":             false,
	"log_level":         "",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"source-lang": "source_lang",
	"target-lang": "target_lang",
	"context":     "context",
	"provider":    "provider.id",
	"model":       "provider.model",
	"base-url":    "provider.base_url",
	"proxy":       "provider.proxy",
	"timeout":     "provider.timeout",
	"prompt":      "prompt",
	"prompt-type": "prompt_type",
	"join-marker": "join_marker",
	"dictionary":  "dictionaries",
	"database":    "database",
	"pool":        "pool_file",
	"cache":       "cache",
	"log-level":   "log_level",
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// Root is the project directory searched for FileName (default ".").
	Root string
	// File is an explicit config path. A missing explicit file is an error.
	File string
	// Flags are bound on top of the file and environment. Only flags that
	// were set on the command line override.
	Flags *pflag.FlagSet
}

// Load reads, layers and validates the configuration. A missing
// .nameproxy.yaml is not an error; the defaults are used.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	root := opts.Root
	if root == "" {
		root = "."
	}
	path := opts.File
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}

	var cfg Config
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		cfg.Dir = root
	} else {
		cfg.File = path
		cfg.Dir = filepath.Dir(path)
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		if cfg.File != "" {
			return nil, fmt.Errorf("%s: %w", cfg.File, err)
		}
		return nil, err
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func (c *Config) validate() error {
	c.SourceLang = strings.TrimSpace(c.SourceLang)
	c.TargetLang = strings.TrimSpace(c.TargetLang)
	if c.SourceLang != "" {
		if _, err := langmeta.Parse(c.SourceLang); err != nil {
			return fmt.Errorf("source_lang: %w", err)
		}
	}
	if c.TargetLang == "" {
		return errors.New("target_lang is required")
	}
	if _, err := langmeta.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("target_lang: %w", err)
	}
	switch c.PromptType {
	case "", translate.PromptSentence, translate.PromptDialogue:
	default:
		return fmt.Errorf("prompt_type %q is not one of %s, %s", c.PromptType, translate.PromptSentence, translate.PromptDialogue)
	}
	if c.JoinMarker == "" {
		c.JoinMarker = proxy.DefaultJoinMarker
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must not be negative (got %s)", c.Provider.Timeout)
	}
	if c.Cache && c.Database == "" {
		return errors.New("cache requires a database")
	}
	for i, e := range c.Pool {
		if _, err := dict.ParseRole(e.Role); err != nil {
			return fmt.Errorf("pool #%d: %w", i+1, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolved values
// ---------------------------------------------------------------------------

// Path resolves p against the config directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DictionaryPaths returns the dictionary files with relative paths resolved.
func (c *Config) DictionaryPaths() []string {
	out := make([]string, 0, len(c.Dictionaries))
	for _, p := range c.Dictionaries {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, c.Path(p))
		}
	}
	return out
}

// DatabasePath returns the SQLite path, or "" when no database is set.
func (c *Config) DatabasePath() string {
	return c.Path(c.Database)
}

// DefaultDatabasePath is where `dict import` stores entries when the
// project names no database.
func DefaultDatabasePath() (string, error) {
	dir, err := settings.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nameproxy.db"), nil
}

// LoadPool builds the placeholder pool from pool_file or the inline pool.
func (c *Config) LoadPool() (*proxy.Pool, error) {
	if c.PoolFile != "" {
		return proxy.LoadPool(c.Path(c.PoolFile))
	}
	if len(c.Pool) == 0 {
		return nil, errors.New("no placeholder pool configured (set pool_file or pool)")
	}
	return proxy.PoolFromEntries(c.Pool)
}

// CacheNamespace keys cached translations by provider, model and language
// pair. A custom prompt, prompt type or base URL adds a short digest of
// those settings, so translations made under other settings are not reused.
func (c *Config) CacheNamespace() string {
	ns := strings.Join([]string{c.Provider.ID, c.Provider.Model, c.SourceLang, c.TargetLang}, ":")
	if c.Prompt == "" && c.PromptType == "" && c.Provider.BaseURL == "" {
		return ns
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{c.Prompt, c.PromptType, c.Provider.BaseURL}, "\x00")))
	return ns + ":" + hex.EncodeToString(sum[:6])
}
