// Package config provides a reusable loader for ledgersync configuration
// files and environment variables.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"ledgersync/pkg/utils"
)

// Config is the unified configuration for the ledgersync CLI.
type Config struct {
	Remote struct {
		BaseURL      string `mapstructure:"base_url" json:"base_url"`
		TokenEnvVar  string `mapstructure:"token_env_var" json:"token_env_var"`
		RateLimitRPS int     `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
		MaxRetries   int     `mapstructure:"max_retries" json:"max_retries"`
	} `mapstructure:"remote" json:"remote"`

	Archive struct {
		Root   string `mapstructure:"root" json:"root"`
		Layout string `mapstructure:"layout" json:"layout"` // "hierarchical" or "single_file"
	} `mapstructure:"archive" json:"archive"`

	Sync struct {
		DConfirmedDays   int     `mapstructure:"d_confirmed_days" json:"d_confirmed_days"`
		DSuspectedDays   int     `mapstructure:"d_suspected_days" json:"d_suspected_days"`
		PFXPercent       float64 `mapstructure:"p_fx_percent" json:"p_fx_percent"`
		BucketThreshold  int     `mapstructure:"bucket_threshold" json:"bucket_threshold"`
		TransferCategory string  `mapstructure:"transfer_category" json:"transfer_category"`
	} `mapstructure:"sync" json:"sync"`

	Concurrency struct {
		Ceiling int `mapstructure:"ceiling" json:"ceiling"`
	} `mapstructure:"concurrency" json:"concurrency"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	RulesDir string `mapstructure:"rules_dir" json:"rules_dir"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("remote.rate_limit_rps", 4)
	viper.SetDefault("remote.max_retries", 3)
	viper.SetDefault("archive.layout", "hierarchical")
	viper.SetDefault("sync.d_confirmed_days", 2)
	viper.SetDefault("sync.d_suspected_days", 4)
	viper.SetDefault("sync.p_fx_percent", 5.0)
	viper.SetDefault("sync.bucket_threshold", 1000)
	viper.SetDefault("sync.transfer_category", "Transfers")
	viper.SetDefault("concurrency.ceiling", 4)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("rules_dir", "rules")
}

// Load reads ledgersync.yaml from the given config directories (falling
// back to "." and "$HOME/.config/ledgersync" if none given), then applies
// environment overrides via viper.AutomaticEnv, exactly as the node
// configuration loader this is modeled on does for its own default.yaml.
func Load(configPaths ...string) (*Config, error) {
	viper.SetConfigName("ledgersync")
	viper.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "$HOME/.config/ledgersync"}
	}
	for _, p := range configPaths {
		viper.AddConfigPath(p)
	}
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	viper.SetEnvPrefix("LEDGERSYNC")
	viper.AutomaticEnv()
	// The external interfaces design names LEDGERSYNC_BASE_URL and
	// LEDGERSYNC_ARCHIVE directly rather than the nested
	// LEDGERSYNC_REMOTE_BASE_URL / LEDGERSYNC_ARCHIVE_ROOT AutomaticEnv
	// would otherwise derive, so bind them explicitly.
	_ = viper.BindEnv("remote.base_url", "LEDGERSYNC_BASE_URL")
	_ = viper.BindEnv("archive.root", "LEDGERSYNC_ARCHIVE")

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if AppConfig.Remote.TokenEnvVar == "" {
		AppConfig.Remote.TokenEnvVar = "LEDGERSYNC_TOKEN"
	}
	return &AppConfig, nil
}

// RemoteToken resolves the remote API token from the environment variable
// named by Remote.TokenEnvVar.
func (c *Config) RemoteToken() string {
	return utils.EnvOrDefault(c.Remote.TokenEnvVar, "")
}

// String renders a human-readable summary of the remote, archive and
// rules settings.
func (c *Config) String() string {
	return fmt.Sprintf("remote=%s archive=%s(%s) rules=%s", c.Remote.BaseURL, c.Archive.Root, c.Archive.Layout, c.RulesDir)
}
