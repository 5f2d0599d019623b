// Package config loads tool configuration from a benchup.yaml file and
// BENCHUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full tool configuration.
type Config struct {
	// Hostname overrides the machine name in history keys and metric
	// prefixes. Empty falls back to os.Hostname.
	Hostname string `mapstructure:"hostname"`

	// Baseline is the branch every run is compared against.
	Baseline string `mapstructure:"baseline"`

	History  HistoryConfig  `mapstructure:"history"`
	Regress  RegressConfig  `mapstructure:"regress"`
	Gist     GistConfig     `mapstructure:"gist"`
	Graphite GraphiteConfig `mapstructure:"graphite"`
	Mail     MailConfig     `mapstructure:"mail"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type HistoryConfig struct {
	Backend string `mapstructure:"backend"` // gist, sql, pebble
	Driver  string `mapstructure:"driver"`  // sql: sqlite3 or mysql
	DSN     string `mapstructure:"dsn"`
	Path    string `mapstructure:"path"` // pebble
	Window  int    `mapstructure:"window"`
}

type RegressConfig struct {
	Alpha          float64 `mapstructure:"alpha"`
	Threshold      float64 `mapstructure:"threshold"`
	MinSamples     int     `mapstructure:"min_samples"`
	ThresholdsFile string  `mapstructure:"thresholds_file"`
}

type GistConfig struct {
	User  string `mapstructure:"user"`
	Token string `mapstructure:"token"`
}

type GraphiteConfig struct {
	// Server is "host" or "host:port"; empty disables forwarding.
	Server string `mapstructure:"server"`
}

type MailConfig struct {
	Sender     string   `mapstructure:"sender"`
	Recipients []string `mapstructure:"recipients"`
}

type SMTPConfig struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Load reads the config file (explicit path, or benchup.yaml found in the
// working directory) merged with BENCHUP_* environment variables.
// A missing file is fine when the environment carries everything.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("baseline", "master")
	v.SetDefault("history.backend", "gist")
	v.SetDefault("history.window", 30)
	v.SetDefault("regress.alpha", 0.05)
	v.SetDefault("regress.threshold", 0.05)
	v.SetDefault("regress.min_samples", 4)
	v.SetDefault("smtp.port", 587)

	// Every key is registered so AutomaticEnv can populate values that
	// appear in neither the file nor the defaults.
	for _, key := range []string{
		"hostname",
		"history.driver", "history.dsn", "history.path",
		"regress.thresholds_file",
		"gist.user", "gist.token",
		"graphite.server",
		"mail.sender", "mail.recipients",
		"smtp.server", "smtp.password",
	} {
		v.SetDefault(key, "")
	}

	v.SetEnvPrefix("BENCHUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", file, err)
		}
	} else {
		v.SetConfigName("benchup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return cfg, nil
}

// Validate checks the pieces the selected backends actually need, listing
// every missing key at once so a fresh CI setup converges in one round.
func (c *Config) Validate() error {
	var missing []string
	if c.History.Backend == "gist" {
		if c.Gist.User == "" {
			missing = append(missing, "gist.user")
		}
		if c.Gist.Token == "" {
			missing = append(missing, "gist.token")
		}
	}
	if c.History.Backend == "sql" && c.History.DSN == "" {
		missing = append(missing, "history.dsn")
	}
	if c.History.Backend == "pebble" && c.History.Path == "" {
		missing = append(missing, "history.path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MailConfigured reports whether report mail can be sent.
func (c *Config) MailConfigured() bool {
	return c.Mail.Sender != "" && len(c.Mail.Recipients) > 0 && c.SMTP.Server != ""
}
