package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// Config holds the entire application configuration
type Config struct {
	// Application settings
	App AppConfig `yaml:"app"`

	// Database configuration
	Database storage.Config `yaml:"database"`

	// API server configuration
	API APIConfig `yaml:"api"`

	// AWS EMR provisioner configuration
	AWS AWSConfig `yaml:"aws"`

	// Expiration sweep configuration
	Sweep SweepConfig `yaml:"sweep"`

	// Logging configuration
	Log logger.Config `yaml:"log"`

	// Releases seeds the EMR release catalog at startup.
	Releases []ReleaseConfig `yaml:"releases"`
}

// ReleaseConfig is one EMR release catalog entry
type ReleaseConfig struct {
	Version        string `yaml:"version"`
	ChangelogURL   string `yaml:"changelog_url"`
	HelpText       string `yaml:"help_text"`
	IsActive       bool   `yaml:"is_active"`
	IsExperimental bool   `yaml:"is_experimental"`
	IsDeprecated   bool   `yaml:"is_deprecated"`
}

// AppConfig contains general application settings
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	DataDir     string `yaml:"data_dir"`
	Debug       bool   `yaml:"debug"`
}

// APIConfig contains REST API server settings
type APIConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	CORSEnabled  bool   `yaml:"cors_enabled"`
	AuthEnabled  bool   `yaml:"auth_enabled"`
	AuthToken    string `yaml:"auth_token"`
}

// AWSConfig contains settings for the EMR provisioner client
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`

	// Static credentials override the default chain when both are set.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// Instance shapes used for every cluster.
	MasterInstanceType string `yaml:"master_instance_type"`
	WorkerInstanceType string `yaml:"worker_instance_type"`

	// IAM roles attached to started jobflows.
	ServiceRole string `yaml:"service_role"`
	JobFlowRole string `yaml:"job_flow_role"`

	// Remote call deadlines.
	StartTimeout    string `yaml:"start_timeout"`
	DescribeTimeout string `yaml:"describe_timeout"`
	StopTimeout     string `yaml:"stop_timeout"`
}

// SweepConfig contains expiration sweep settings
type SweepConfig struct {
	// Interval between sweep ticks.
	Interval string `yaml:"interval"`

	// LookaheadWindow is how far ahead of the expiration the
	// pre-expiration notice is dispatched.
	LookaheadWindow string `yaml:"lookahead_window"`

	// Concurrency bounds the fan-out when syncing many records.
	Concurrency int `yaml:"concurrency"`

	// DescribeRate and DescribeBurst bound describe calls per second
	// against the backend across all sweep workers.
	DescribeRate  float64 `yaml:"describe_rate"`
	DescribeBurst int     `yaml:"describe_burst"`

	// MaxLifetime caps the total cluster lifetime (initial plus
	// extensions) accepted from users, in hours.
	MaxLifetime int `yaml:"max_lifetime"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "emr-controller",
			Environment: "development",
			DataDir:     "data",
		},
		Database: *storage.DefaultConfig(),
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
			CORSEnabled:  false,
			AuthEnabled:  false,
		},
		AWS: AWSConfig{
			Region:             "us-west-2",
			MasterInstanceType: "m5.xlarge",
			WorkerInstanceType: "m5.xlarge",
			ServiceRole:        "EMR_DefaultRole",
			JobFlowRole:        "EMR_EC2_DefaultRole",
			StartTimeout:       "60s",
			DescribeTimeout:    "15s",
			StopTimeout:        "30s",
		},
		Sweep: SweepConfig{
			Interval:        "5m",
			LookaheadWindow: "1h",
			Concurrency:     8,
			DescribeRate:    5,
			DescribeBurst:   10,
			MaxLifetime:     24,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads configuration from the given path, falling back to a set
// of default locations, and applies environment overrides.
func Load(configPath string) (*Config, error) {
	config := Default()

	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"emr-controller.yaml",
			filepath.Join("config", "emr-controller.yaml"),
			filepath.Join(os.Getenv("HOME"), ".emr-controller", "emr-controller.yaml"),
		}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && configPath == "" {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		break
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("EMR_CONTROLLER_ENVIRONMENT"); env != "" {
		c.App.Environment = env
	}
	if env := os.Getenv("EMR_CONTROLLER_API_HOST"); env != "" {
		c.API.Host = env
	}
	if env := os.Getenv("EMR_CONTROLLER_API_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil {
			c.API.Port = port
		}
	}
	if env := os.Getenv("EMR_CONTROLLER_API_AUTH_TOKEN"); env != "" {
		c.API.AuthToken = env
	}
	if env := os.Getenv("EMR_CONTROLLER_LOG_LEVEL"); env != "" {
		c.Log.Level = env
	}
	if env := os.Getenv("EMR_CONTROLLER_DEBUG"); env == "true" {
		c.App.Debug = true
	}
	if env := os.Getenv("EMR_CONTROLLER_DATABASE_PATH"); env != "" {
		c.Database.Path = env
	}
	if env := os.Getenv("AWS_REGION"); env != "" {
		c.AWS.Region = env
	}
}

// Validate checks the configuration for missing or contradictory values
func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.Sweep.Concurrency < 1 {
		return fmt.Errorf("sweep.concurrency must be at least 1, got %d", c.Sweep.Concurrency)
	}
	if c.Sweep.MaxLifetime < 1 {
		return fmt.Errorf("sweep.max_lifetime must be at least 1, got %d", c.Sweep.MaxLifetime)
	}
	if c.API.AuthEnabled && c.API.AuthToken == "" {
		return fmt.Errorf("api.auth_token is required when api.auth_enabled is set")
	}
	for name, value := range map[string]string{
		"api.read_timeout":       c.API.ReadTimeout,
		"api.write_timeout":      c.API.WriteTimeout,
		"aws.start_timeout":      c.AWS.StartTimeout,
		"aws.describe_timeout":   c.AWS.DescribeTimeout,
		"aws.stop_timeout":       c.AWS.StopTimeout,
		"sweep.interval":         c.Sweep.Interval,
		"sweep.lookahead_window": c.Sweep.LookaheadWindow,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s is not a valid duration: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration config value that has already passed
// Validate; it falls back to the given default on a zero value.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
