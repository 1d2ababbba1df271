package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g.
// TENANTAUTH_SECURITY_MASTER_SECRET for security.master_secret.
const EnvPrefix = "TENANTAUTH"

type Config struct {
	Env          string             `mapstructure:"env"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Security     SecurityConfig     `mapstructure:"security"`
	Tokens       TokensConfig       `mapstructure:"tokens"`
	Servers      ServersConfig      `mapstructure:"servers"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Signals      SignalsConfig      `mapstructure:"signals"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

type DatabaseConfig struct {
	File string `mapstructure:"file"`
}

type SecurityConfig struct {
	MasterSecret     string `mapstructure:"master_secret"`
	MasterSecretFile string `mapstructure:"master_secret_file"` // wins over MasterSecret
	Cipher           string `mapstructure:"cipher"`

	// Store User refresh keys under the Account key like Client ones.
	EncryptUserRefreshKeys bool   `mapstructure:"encrypt_user_refresh_keys"`
	BootstrapToken         string `mapstructure:"bootstrap_token"`
	BootstrapTokenHash     string `mapstructure:"bootstrap_token_hash"` // Argon2id, wins over BootstrapToken
}

type TokensConfig struct {
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	ValidationTTL time.Duration `mapstructure:"validation_ttl"`
}

type ServersConfig struct {
	API  string `mapstructure:"api"`
	Auth string `mapstructure:"auth"`
}

type AuthConfig struct {
	AttemptsPerMinute int `mapstructure:"attempts_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type SignalsConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

type HousekeepingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables the export
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.file", "tenantauth.db")
	v.SetDefault("security.master_secret", "")
	v.SetDefault("security.master_secret_file", "")
	v.SetDefault("security.cipher", string(cryptox.DefaultAlgorithm))
	v.SetDefault("security.encrypt_user_refresh_keys", false)
	v.SetDefault("security.bootstrap_token", "")
	v.SetDefault("security.bootstrap_token_hash", "")
	v.SetDefault("tokens.issuer", "tenantauth")
	v.SetDefault("tokens.access_ttl", 24*time.Hour)
	v.SetDefault("tokens.validation_ttl", 7*24*time.Hour)
	v.SetDefault("servers.api", "")
	v.SetDefault("servers.auth", "")
	v.SetDefault("auth.attempts_per_minute", 5)
	v.SetDefault("auth.burst", 5)
	v.SetDefault("signals.max_age", 2*time.Hour)
	v.SetDefault("housekeeping.interval", time.Hour)
	v.SetDefault("metrics.textfile", "")
}

// LoadConfig reads tenantauth.yaml from dir when present, then applies
// TENANTAUTH_* environment overrides on top of the defaults.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("tenantauth")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDev reports whether ephemeral secrets are acceptable.
func (c *Config) IsDev() bool { return c.Env == "dev" }

// Validate fails closed: outside dev a master secret must be configured.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("env must be dev, staging or prod, got %q", c.Env))
	}
	if _, err := cryptox.ParseAlgorithm(c.Security.Cipher); err != nil {
		errs = append(errs, fmt.Errorf("security.cipher: %w", err))
	}
	if !c.IsDev() && c.Security.MasterSecret == "" && c.Security.MasterSecretFile == "" {
		errs = append(errs, errors.New("security.master_secret or security.master_secret_file is required outside dev"))
	}
	if c.Database.File == "" {
		errs = append(errs, errors.New("database.file is required"))
	}
	if c.Tokens.AccessTTL <= 0 {
		errs = append(errs, errors.New("tokens.access_ttl must be positive"))
	}
	if c.Tokens.ValidationTTL <= 0 {
		errs = append(errs, errors.New("tokens.validation_ttl must be positive"))
	}
	if c.Auth.AttemptsPerMinute <= 0 {
		errs = append(errs, errors.New("auth.attempts_per_minute must be positive"))
	}
	if c.Signals.MaxAge <= 0 {
		errs = append(errs, errors.New("signals.max_age must be positive"))
	}

	return errors.Join(errs...)
}
