package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	BackendEC2  = "ec2"
	BackendNATS = "nats"
)

// Config holds all configuration for the handlers and the CLI
type Config struct {
	// Target instance, read from INSTANCE_ID
	InstanceID string `mapstructure:"instance_id"`

	// Which lifecycle API to call: "ec2" (AWS SDK) or "nats" (Hive daemons)
	Backend string `mapstructure:"backend"`

	// AWS SDK settings. Credentials are normally ambient (Lambda role, env,
	// shared files); static keys are only used when both are set.
	Region    string `mapstructure:"region"`
	Profile   string `mapstructure:"profile"`
	Endpoint  string `mapstructure:"endpoint"`
	CABundle  string `mapstructure:"ca_bundle"`
	Insecure  bool   `mapstructure:"insecure"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// Shared config file consulted for endpoint_url/ca_bundle/region
	AWSConfigFile string `mapstructure:"aws_config_file"`

	NATS NATSConfig `mapstructure:"nats"`

	Debug bool `mapstructure:"debug"`
}

// NATSConfig holds the NATS configuration
type NATSConfig struct {
	Host    string        `mapstructure:"host"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// envBindings maps each config key to the environment variables it reads,
// in priority order.
var envBindings = map[string][]string{
	"instance_id":     {"INSTANCE_ID", "EC2POWER_INSTANCE_ID"},
	"backend":         {"EC2POWER_BACKEND"},
	"region":          {"EC2POWER_REGION", "AWS_REGION", "AWS_DEFAULT_REGION"},
	"profile":         {"EC2POWER_PROFILE", "AWS_PROFILE"},
	"endpoint":        {"EC2POWER_ENDPOINT", "AWS_ENDPOINT_URL_EC2", "AWS_ENDPOINT_URL"},
	"ca_bundle":       {"EC2POWER_CA_BUNDLE", "AWS_CA_BUNDLE"},
	"insecure":        {"EC2POWER_INSECURE"},
	"access_key":      {"EC2POWER_ACCESS_KEY"},
	"secret_key":      {"EC2POWER_SECRET_KEY"},
	"aws_config_file": {"EC2POWER_AWS_CONFIG_FILE", "AWS_CONFIG_FILE"},
	"nats.host":       {"EC2POWER_NATS_HOST"},
	"nats.token":      {"EC2POWER_NATS_TOKEN"},
	"nats.timeout":    {"EC2POWER_NATS_TIMEOUT"},
	"debug":           {"EC2POWER_DEBUG"},
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.New(), configPath)
}

// Load reads configuration into v, which may already carry bound command
// line flags, and unmarshals it. Flags win over environment, environment
// over the config file, the config file over defaults.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetDefault("backend", BackendEC2)
	v.SetDefault("nats.host", "127.0.0.1:4222")
	v.SetDefault("nats.timeout", "30s")

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("toml")

			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			slog.Debug("LoadConfig: using config file", "path", v.ConfigFileUsed())
		} else {
			slog.Warn("LoadConfig: config file not found, using environment variables and defaults", "path", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendEC2, BackendNATS:
	default:
		return nil, fmt.Errorf("unsupported backend %q (want %q or %q)", cfg.Backend, BackendEC2, BackendNATS)
	}

	if cfg.Backend == BackendEC2 {
		if err := ApplyProfile(&cfg, cfg.AWSConfigFile); err != nil {
			return nil, err
		}
	}

	// An empty instance ID is passed through; the lifecycle API rejects it.
	if cfg.InstanceID == "" {
		slog.Warn("LoadConfig: INSTANCE_ID is not set")
	}

	return &cfg, nil
}

// DefaultAWSConfigFile returns ~/.aws/config, or "" if the home directory
// cannot be determined.
func DefaultAWSConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "config")
}

// ApplyProfile fills Region, Endpoint and CABundle from the AWS shared config
// file when they are not already set. The SDK does not read endpoint_url, and
// that is where `hive admin init` points a profile at a Hive gateway.
// A missing file or profile is not an error.
func ApplyProfile(cfg *Config, path string) error {
	if path == "" {
		path = DefaultAWSConfigFile()
	}
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load AWS config file %s: %w", path, err)
	}

	section := profileSection(cfg.Profile)
	if !file.HasSection(section) {
		slog.Debug("ApplyProfile: profile not found", "path", path, "section", section)
		return nil
	}
	sec := file.Section(section)

	if cfg.Region == "" {
		cfg.Region = sec.Key("region").String()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = sec.Key("endpoint_url").String()
	}
	if cfg.CABundle == "" {
		cfg.CABundle = sec.Key("ca_bundle").String()
	}

	return nil
}

func profileSection(profile string) string {
	if profile == "" || profile == "default" {
		return "default"
	}
	return "profile " + profile
}

type tomlView struct {
	InstanceID string   `toml:"instance_id"`
	Backend    string   `toml:"backend"`
	Region     string   `toml:"region,omitempty"`
	Profile    string   `toml:"profile,omitempty"`
	Endpoint   string   `toml:"endpoint,omitempty"`
	CABundle   string   `toml:"ca_bundle,omitempty"`
	Insecure   bool     `toml:"insecure,omitempty"`
	AccessKey  string   `toml:"access_key,omitempty"`
	SecretKey  string   `toml:"secret_key,omitempty"`
	Debug      bool     `toml:"debug,omitempty"`
	NATS       tomlNATS `toml:"nats"`
}

type tomlNATS struct {
	Host    string `toml:"host"`
	Token   string `toml:"token,omitempty"`
	Timeout string `toml:"timeout"`
}

// TOML renders the effective configuration in config file form, with
// secrets masked.
func (c *Config) TOML() ([]byte, error) {
	view := tomlView{
		InstanceID: c.InstanceID,
		Backend:    c.Backend,
		Region:     c.Region,
		Profile:    c.Profile,
		Endpoint:   c.Endpoint,
		CABundle:   c.CABundle,
		Insecure:   c.Insecure,
		Debug:      c.Debug,
		AccessKey:  mask(c.AccessKey),
		SecretKey:  mask(c.SecretKey),
		NATS: tomlNATS{
			Host:    c.NATS.Host,
			Token:   mask(c.NATS.Token),
			Timeout: c.NATS.Timeout.String(),
		},
	}

	data, err := toml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
