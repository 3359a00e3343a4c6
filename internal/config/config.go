// Package config loads the engine's runtime configuration: data and
// metadata locations, the active metadata backend, network-filesystem
// retry tuning, metadata caching, and per-bucket defaults, plus the
// ambient logging and metrics sub-config. Values come from a YAML
// config file, with LAMINA_* environment variables overriding the keys
// that file sets; built-in defaults fill every field still unset. No
// CLI flags are bound here, and environment variables are not read at
// all when no config file is found.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/laminastore/lamina/internal/bytesize"
)

// MetadataMode selects which Object Metadata Store backend is active.
type MetadataMode string

const (
	MetadataModeSeparateDirectory MetadataMode = "SeparateDirectory"
	MetadataModeInline            MetadataMode = "Inline"
	MetadataModeXattr             MetadataMode = "Xattr"
	MetadataModeDatabase          MetadataMode = "Database"
)

// NetworkMode selects the network-filesystem retry/atomic-rename
// behavior netfs applies underneath every data and metadata write.
type NetworkMode string

const (
	NetworkModeNone NetworkMode = "None"
	NetworkModeCIFS NetworkMode = "CIFS"
	NetworkModeNFS  NetworkMode = "NFS"
)

// Config is the engine's complete runtime configuration.
type Config struct {
	DataDirectory               string            `mapstructure:"data_directory" yaml:"data_directory" validate:"required"`
	MetadataDirectory           string            `mapstructure:"metadata_directory" yaml:"metadata_directory,omitempty"`
	MetadataMode                MetadataMode      `mapstructure:"metadata_mode" yaml:"metadata_mode" validate:"required,oneof=SeparateDirectory Inline Xattr Database"`
	InlineMetadataDirectoryName string            `mapstructure:"inline_metadata_directory_name" yaml:"inline_metadata_directory_name"`
	TempFilePrefix              string            `mapstructure:"temp_file_prefix" yaml:"temp_file_prefix"`
	XattrPrefix                 string            `mapstructure:"xattr_prefix" yaml:"xattr_prefix"`
	NetworkMode                 NetworkMode       `mapstructure:"network_mode" yaml:"network_mode" validate:"required,oneof=None CIFS NFS"`
	RetryCount                  int               `mapstructure:"retry_count" yaml:"retry_count" validate:"gte=0"`
	RetryDelayMs                int               `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms" validate:"gte=0"`
	MetadataCache               MetadataCacheConfig `mapstructure:"metadata_cache" yaml:"metadata_cache"`
	BucketDefaults              BucketDefaultsConfig `mapstructure:"bucket_defaults" yaml:"bucket_defaults"`
	Database                    DatabaseConfig    `mapstructure:"database" yaml:"database,omitempty"`
	Logging                     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Metrics                     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// DatabaseConfig configures the PostgreSQL connection backing
// MetadataModeDatabase; it is ignored by every other metadata mode.
type DatabaseConfig struct {
	Host         string `mapstructure:"host" yaml:"host,omitempty"`
	Port         int    `mapstructure:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database     string `mapstructure:"database" yaml:"database,omitempty"`
	User         string `mapstructure:"user" yaml:"user,omitempty"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"ssl_mode" yaml:"ssl_mode,omitempty" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`
}

// MetadataCacheConfig controls the optional in-memory cache layered in
// front of a metadata backend's Get calls.
type MetadataCacheConfig struct {
	Enabled                   bool              `mapstructure:"enabled" yaml:"enabled"`
	SizeLimit                 bytesize.ByteSize `mapstructure:"size_limit" yaml:"size_limit,omitempty"`
	AbsoluteExpirationMinutes int               `mapstructure:"absolute_expiration_minutes" yaml:"absolute_expiration_minutes" validate:"omitempty,gt=0"`
	SlidingExpirationMinutes  int               `mapstructure:"sliding_expiration_minutes" yaml:"sliding_expiration_minutes" validate:"omitempty,gt=0"`
}

// BucketDefaultsConfig supplies the values a CreateBucket call falls
// back to when the caller omits them.
type BucketDefaultsConfig struct {
	Type         string `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=GeneralPurpose Directory"`
	StorageClass string `mapstructure:"storage_class" yaml:"storage_class,omitempty"`
}

// LoggingConfig controls internal/logger's level, format, and sink.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Load reads configuration from configPath (or the default search
// path when empty), lets LAMINA_* environment variables override the
// keys the file sets, fills fields still unset with built-in defaults,
// then validates the result. When no config file is found, only the
// defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg to path in YAML form.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("LAMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return time.ParseDuration(s)
		}
		return data, nil
	}
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lamina")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lamina")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}
