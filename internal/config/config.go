// Package config loads deltatree settings from a config file and the environment.
package config

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DELTATREE_DATADIR.
const EnvPrefix = "DELTATREE"

// Config represents the complete deltatree configuration
type Config struct {
	DataDir string        `json:"dataDir" mapstructure:"dataDir"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Vault   VaultConfig   `json:"vault" mapstructure:"vault"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Header  HeaderConfig  `json:"header" mapstructure:"header"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// VaultConfig contains encryption settings. MasterKey is hex encoded.
type VaultConfig struct {
	MasterKey   string `json:"masterKey" mapstructure:"masterKey"`
	Compression string `json:"compression" mapstructure:"compression"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	BusyRetries   int `json:"busyRetries" mapstructure:"busyRetries"`
	BusyBackoffMs int `json:"busyBackoffMs" mapstructure:"busyBackoffMs"`
}

// HeaderConfig maps header names to template paths like "intake/personal/fullName".
// Names are lower-cased on load.
type HeaderConfig struct {
	Fields map[string]string `json:"fields" mapstructure:"fields"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		DataDir: ".deltatree",
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Vault: VaultConfig{
			Compression: "default",
		},
		Storage: StorageConfig{
			BusyRetries:   5,
			BusyBackoffMs: 50,
		},
		Header: HeaderConfig{
			Fields: map[string]string{},
		},
	}
}

// Load reads deltatree.{json,yaml,toml} from dir. A missing file yields the
// defaults; environment variables override either.
func Load(dir string) (*Config, error) {
	return load(dir, "")
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	return load("", path)
}

func load(dir, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("deltatree")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Header.Fields == nil {
		cfg.Header.Fields = map[string]string{}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("dataDir", d.DataDir)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("vault.masterKey", d.Vault.MasterKey)
	v.SetDefault("vault.compression", d.Vault.Compression)
	v.SetDefault("storage.busyRetries", d.Storage.BusyRetries)
	v.SetDefault("storage.busyBackoffMs", d.Storage.BusyBackoffMs)
}

// MasterKey decodes the configured vault key.
func (c *Config) MasterKey() ([]byte, error) {
	key, err := hex.DecodeString(c.Vault.MasterKey)
	if err != nil {
		return nil, &Error{Field: "vault.masterKey", Message: "not valid hex"}
	}
	return key, nil
}

// HeaderPaths splits each configured template path on "/".
func (c *Config) HeaderPaths() map[string][]string {
	out := make(map[string][]string, len(c.Header.Fields))
	for name, path := range c.Header.Fields {
		out[name] = strings.Split(strings.Trim(path, "/"), "/")
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return &Error{Field: "dataDir", Message: "must not be empty"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &Error{Field: "logging.format", Message: "must be human or json"}
	}
	key, err := c.MasterKey()
	if err != nil {
		return err
	}
	if len(key) != 32 {
		return &Error{Field: "vault.masterKey", Message: "must be 32 bytes (64 hex characters)"}
	}
	switch c.Vault.Compression {
	case "fastest", "default", "better", "best":
	default:
		return &Error{Field: "vault.compression", Message: "must be fastest, default, better or best"}
	}
	if c.Storage.BusyRetries < 0 {
		return &Error{Field: "storage.busyRetries", Message: "must not be negative"}
	}
	for name, path := range c.HeaderPaths() {
		if len(path) < 2 {
			return &Error{Field: "header.fields." + name, Message: "template path needs a document and a field"}
		}
	}
	return nil
}

// Error represents a configuration error
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
