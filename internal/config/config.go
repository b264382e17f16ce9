package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete downballot configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	Transport TransportConfig `json:"transport" mapstructure:"transport"`
	Bridge    BridgeConfig    `json:"bridge" mapstructure:"bridge"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// TransportConfig contains defaults for the HTTP retrieval transport
type TransportConfig struct {
	TimeoutSeconds    int     `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	UserAgent         string  `json:"userAgent" mapstructure:"userAgent"`
}

// BridgeConfig locates the runtime-environment descriptor and names the
// default environment to bind
type BridgeConfig struct {
	DescriptorPath string `json:"descriptorPath,omitempty" mapstructure:"descriptorPath"`
	Environment    string `json:"environment,omitempty" mapstructure:"environment"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultDataDir returns ~/.downballot, falling back to a relative
// .downballot when the home directory cannot be resolved
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".downballot"
	}
	return filepath.Join(home, ".downballot")
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: DefaultDataDir(),
		Transport: TransportConfig{
			TimeoutSeconds:    60,
			RequestsPerSecond: 2,
			UserAgent:         "downballot (+https://github.com/gchickering21/downballot)",
		},
		Bridge: BridgeConfig{
			Environment: "default",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// EnvOverride describes one supported environment variable
type EnvOverride struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// EnvOverrides lists every supported DOWNBALLOT_* environment variable
func EnvOverrides() []EnvOverride {
	return []EnvOverride{
		{Name: "DOWNBALLOT_DATA_DIR", Key: "dataDir", Description: "Directory holding the snapshot database and config"},
		{Name: "DOWNBALLOT_LOG_LEVEL", Key: "logging.level", Description: "Log level: debug, info, warn, error"},
		{Name: "DOWNBALLOT_LOG_FORMAT", Key: "logging.format", Description: "Log format: human, json"},
		{Name: "DOWNBALLOT_USER_AGENT", Key: "transport.userAgent", Description: "User-Agent sent on outbound HTTP requests"},
		{Name: "DOWNBALLOT_BRIDGE_ENV", Key: "bridge.environment", Description: "Runtime environment to bind on first use"},
		{Name: "DOWNBALLOT_BROWSER_BIN", Key: "", Description: "Browser executable used by the browser-automation transport"},
		{Name: "DOWNBALLOT_LIVE_TESTS", Key: "", Description: "Set to 1 to enable live-network integration tests"},
	}
}

// LoadResult carries a loaded config plus where it came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
}

// LoadConfig loads configuration from <dataDir>/config.json, applying
// DOWNBALLOT_* environment overrides. A missing file yields the defaults.
func LoadConfig(dataDir string) (*Config, error) {
	result, err := LoadConfigWithDetails(dataDir)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports provenance
func LoadConfigWithDetails(dataDir string) (*LoadResult, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if env := os.Getenv("DOWNBALLOT_DATA_DIR"); env != "" {
		dataDir = env
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)

	bindEnvOverrides(v)

	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			applyEnv(v, cfg)
			return &LoadResult{Config: cfg, UsedDefaults: true}, nil
		}
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir
	applyEnv(v, cfg)

	return &LoadResult{Config: cfg, ConfigPath: v.ConfigFileUsed()}, nil
}

func bindEnvOverrides(v *viper.Viper) {
	_ = v.BindEnv("logging.level", "DOWNBALLOT_LOG_LEVEL")
	_ = v.BindEnv("logging.format", "DOWNBALLOT_LOG_FORMAT")
	_ = v.BindEnv("transport.userAgent", "DOWNBALLOT_USER_AGENT")
	_ = v.BindEnv("bridge.environment", "DOWNBALLOT_BRIDGE_ENV")
}

// applyEnv copies bound env values over the struct for the defaults path,
// where Unmarshal never ran
func applyEnv(v *viper.Viper, cfg *Config) {
	if s := v.GetString("logging.level"); s != "" {
		cfg.Logging.Level = s
	}
	if s := v.GetString("logging.format"); s != "" {
		cfg.Logging.Format = s
	}
	if s := v.GetString("transport.userAgent"); s != "" {
		cfg.Transport.UserAgent = s
	}
	if s := v.GetString("bridge.environment"); s != "" {
		cfg.Bridge.Environment = s
	}
}

// Save writes the configuration to <dataDir>/config.json
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.DataDir, "config.json"), data, 0644)
}
