package config

import (
	"fmt"
	"time"

	"github.com/melih/hytale-panel/internal/adapters/docker"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the panel. Every key can be set
// through the environment variable of the same name in upper case.
type Config struct {
	ContainerName   string        `mapstructure:"container_name"`
	Port            int           `mapstructure:"panel_port"`
	StaticDir       string        `mapstructure:"static_dir"`
	StatusInterval  time.Duration `mapstructure:"status_interval"`
	LogTail         int           `mapstructure:"log_tail"`
	AssetDir        string        `mapstructure:"asset_dir"`
	ConsolePath     string        `mapstructure:"console_path"`
	Downloader      string        `mapstructure:"downloader"`
	DownloadPath    string        `mapstructure:"download_path"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
}

// Keys shared with command-line flag bindings.
const (
	KeyContainerName = "container_name"
	KeyPort          = "panel_port"
	KeyStaticDir     = "static_dir"
	KeyLogLevel      = "log_level"
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyContainerName, docker.DefaultContainerName)
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyStaticDir, "./public")
	v.SetDefault("status_interval", 5*time.Second)
	v.SetDefault("log_tail", docker.DefaultLogTail)
	v.SetDefault("asset_dir", docker.DefaultAssetDir)
	v.SetDefault("console_path", docker.DefaultConsolePath)
	v.SetDefault("downloader", docker.DefaultDownloader)
	v.SetDefault("download_path", docker.DefaultDownloadPath)
	v.SetDefault("download_timeout", time.Duration(0))
	v.SetDefault("stop_timeout", time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault("log_file", "")
}

// New returns a viper instance reading defaults and the environment.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the panel cannot run with.
func (c *Config) Validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("config: container name is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("config: status interval must be positive, got %s", c.StatusInterval)
	}
	if c.LogTail < 0 {
		return fmt.Errorf("config: log tail must not be negative, got %d", c.LogTail)
	}
	if c.DownloadTimeout < 0 || c.StopTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}

// DockerOptions maps the configuration onto the Docker adapter options.
func (c *Config) DockerOptions() docker.Options {
	return docker.Options{
		ContainerName:   c.ContainerName,
		AssetDir:        c.AssetDir,
		ConsolePath:     c.ConsolePath,
		Downloader:      c.Downloader,
		DownloadPath:    c.DownloadPath,
		LogTail:         c.LogTail,
		DownloadTimeout: c.DownloadTimeout,
		StopTimeout:     c.StopTimeout,
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
