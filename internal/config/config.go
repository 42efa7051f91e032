package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Runway   RunwayConfig   `mapstructure:"runway"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Poll     PollConfig     `mapstructure:"poll"`
	Naming   NamingConfig   `mapstructure:"naming"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// RunwayConfig holds the remote generation service settings. Model,
// ratio, and duration are the fixed quality/format parameters sent with
// every submission.
type RunwayConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	Ratio    string `mapstructure:"ratio"`
	Duration int    `mapstructure:"duration"`
}

type BatchConfig struct {
	MaxItems           int    `mapstructure:"max_items"`
	SubmitDelaySeconds int    `mapstructure:"submit_delay_seconds"`
	QueueDir           string `mapstructure:"queue_dir"`
	OutputDir          string `mapstructure:"output_dir"`
	Platform           string `mapstructure:"platform"`
}

type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	MaxEntryErrors  int `mapstructure:"max_entry_errors"`
}

// NamingConfig drives the stub namer. Markers and the output suffix are
// configuration so filename format drift doesn't require code changes.
type NamingConfig struct {
	DraftMarkers []string `mapstructure:"draft_markers"`
	OutputSuffix string   `mapstructure:"output_suffix"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// SubmitDelay returns the minimum pause between consecutive submissions.
func (b BatchConfig) SubmitDelay() time.Duration {
	return time.Duration(b.SubmitDelaySeconds) * time.Second
}

// Interval returns the sleep between polling sweeps.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// Timeout returns the global polling ceiling.
func (p PollConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("runway.base_url", "https://api.runwayml.com/v1")
	v.SetDefault("runway.model", "gen4_turbo")
	v.SetDefault("runway.ratio", "16:9")
	v.SetDefault("runway.duration", 4)
	v.SetDefault("batch.max_items", 10)
	v.SetDefault("batch.submit_delay_seconds", 2)
	v.SetDefault("batch.queue_dir", "./video_outputs")
	v.SetDefault("batch.output_dir", "./video_outputs")
	v.SetDefault("batch.platform", "ig")
	v.SetDefault("poll.interval_seconds", 9)
	v.SetDefault("poll.timeout_seconds", 600)
	v.SetDefault("poll.max_entry_errors", 5)
	v.SetDefault("naming.draft_markers", []string{"_watermarked"})
	v.SetDefault("naming.output_suffix", "_video")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "./data/vidbatch.db")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "vidbatch")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("runway.api_key", "RUNWAY_API_KEY")
	v.BindEnv("runway.base_url", "RUNWAY_BASE_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
