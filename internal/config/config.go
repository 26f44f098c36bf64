package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "CATALOGSYNC"

	DefaultAPIURL         = "http://localhost:3000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMirrorBackend  = MirrorFile
	DefaultMirrorDir      = ".catalogsync"
	DefaultStripThreshold = 8 * 1024
	DefaultMaxUploadSize  = 100 << 20
	DefaultPort           = "8888"
)

const (
	MirrorFile   = "file"
	MirrorMemory = "memory"
)

type Config struct {
	APIURL         string        `json:"api_url,omitempty"         mapstructure:"api_url"`
	APIKey         string        `json:"-"                         mapstructure:"api_key"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty" mapstructure:"request_timeout"`
	CacheMaxAge    time.Duration `json:"cache_max_age,omitempty"   mapstructure:"cache_max_age"`
	MirrorBackend  string        `json:"mirror_backend,omitempty"  mapstructure:"mirror_backend"`
	MirrorDir      string        `json:"mirror_dir,omitempty"      mapstructure:"mirror_dir"`
	BlobDir        string        `json:"blob_dir,omitempty"        mapstructure:"blob_dir"`
	StripThreshold int           `json:"strip_threshold,omitempty" mapstructure:"strip_threshold"`
	MaxUploadSize  int64         `json:"max_upload_size,omitempty" mapstructure:"max_upload_size"`
	Port           string        `json:"port,omitempty"            mapstructure:"port"`
}

// LoadConfig reads CATALOGSYNC_* environment variables and, when path is set, a config file
func LoadConfig(path string) (*Config, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	_ = v.BindEnv("api_url")
	v.SetDefault("api_url", DefaultAPIURL)

	_ = v.BindEnv("api_key")
	v.SetDefault("api_key", "")

	_ = v.BindEnv("request_timeout")
	v.SetDefault("request_timeout", DefaultRequestTimeout)

	// 0 keeps the memory entry until a mutation invalidates it
	_ = v.BindEnv("cache_max_age")
	v.SetDefault("cache_max_age", time.Duration(0))

	_ = v.BindEnv("mirror_backend")
	v.SetDefault("mirror_backend", DefaultMirrorBackend)

	_ = v.BindEnv("mirror_dir")
	v.SetDefault("mirror_dir", DefaultMirrorDir)

	// Empty keeps uploaded blobs in memory
	_ = v.BindEnv("blob_dir")
	v.SetDefault("blob_dir", "")

	_ = v.BindEnv("strip_threshold")
	v.SetDefault("strip_threshold", DefaultStripThreshold)

	_ = v.BindEnv("max_upload_size")
	v.SetDefault("max_upload_size", DefaultMaxUploadSize)

	_ = v.BindEnv("port")
	v.SetDefault("port", DefaultPort)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)

	config := &Config{}
	if err := v.Unmarshal(config, viper.DecodeHook(decodeHooks)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	switch c.MirrorBackend {
	case MirrorFile:
		if c.MirrorDir == "" {
			return fmt.Errorf("mirror_dir is required for the file mirror")
		}
	case MirrorMemory:
	default:
		return fmt.Errorf("unknown mirror_backend %q (want %s or %s)", c.MirrorBackend, MirrorFile, MirrorMemory)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must not be negative")
	}
	if c.StripThreshold <= 0 {
		return fmt.Errorf("strip_threshold must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
