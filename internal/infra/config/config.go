package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type DownloadConfig struct {
	OutDir         string        `mapstructure:"out_dir" yaml:"out_dir"`
	CreateDir      bool          `mapstructure:"create_dir" yaml:"create_dir"`
	Overwrite      bool          `mapstructure:"overwrite" yaml:"overwrite"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxFileSize    int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxRedirects   int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// Load reads configuration from path, falling back to defaults when path is
// empty and no config.yaml exists. Environment variables with the JPEGBATCH_
// prefix override file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()

	v.SetDefault("download.out_dir", "./downloads")
	v.SetDefault("download.concurrency", 8)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.request_timeout", "30s")
	v.SetDefault("download.max_file_size", 50*1024*1024)
	v.SetDefault("download.max_redirects", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", false)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	v.SetEnvPrefix("JPEGBATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	d := &c.Download

	if d.OutDir == "" {
		d.OutDir = "./downloads"
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 8
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = 3
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.MaxFileSize <= 0 {
		d.MaxFileSize = 50 * 1024 * 1024
	}
	if d.MaxRedirects <= 0 {
		d.MaxRedirects = 5
	}
	if d.RateLimit < 0 {
		return fmt.Errorf("download.rate_limit must not be negative")
	}

	if c.Port == "" {
		c.Port = "8080"
	}

	return nil
}
