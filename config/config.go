// Package config loads the service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port            int `mapstructure:"port"`
		QRSize          int `mapstructure:"qr_size"`
		SettleInterval  int `mapstructure:"settle_interval"`  // seconds
		PollInterval    int `mapstructure:"poll_interval"`    // seconds
		PollMaxAttempts int `mapstructure:"poll_max_attempts"`
	} `mapstructure:"app"`

	MySQL struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		DBName   string `mapstructure:"dbname"`
	} `mapstructure:"mysql"`

	Solana struct {
		Cluster       string `mapstructure:"cluster"`
		RPCURL        string `mapstructure:"rpc_url"`
		USDCMint      string `mapstructure:"usdc_mint"`
		USDCDecimals  int    `mapstructure:"usdc_decimals"`
		MerchantOwner string `mapstructure:"merchant_owner"`
		PayerSecret   string `mapstructure:"payer_secret"`
	} `mapstructure:"solana"`
}

// Load reads config.yaml from path (or the working directory when path
// is empty). SPLPAY_* environment variables override file values, e.g.
// SPLPAY_SOLANA_PAYER_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path == "" {
		path = "."
	}
	v.AddConfigPath(path)
	v.SetEnvPrefix("splpay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.port", 8080)
	v.SetDefault("app.qr_size", 256)
	v.SetDefault("app.settle_interval", 5)
	v.SetDefault("app.poll_interval", 3)
	v.SetDefault("app.poll_max_attempts", 60)
	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.dbname", "")
	v.SetDefault("solana.cluster", "mainnet")
	v.SetDefault("solana.usdc_decimals", 6)
	// Empty defaults keep these visible to AutomaticEnv overrides.
	v.SetDefault("solana.rpc_url", "")
	v.SetDefault("solana.usdc_mint", "")
	v.SetDefault("solana.merchant_owner", "")
	v.SetDefault("solana.payer_secret", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine; env vars and defaults still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Solana.MerchantOwner == "" {
		return nil, errors.New("solana.merchant_owner is required")
	}
	return &cfg, nil
}

// DSN assembles the MySQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.MySQL.User, c.MySQL.Password, c.MySQL.Host, c.MySQL.Port, c.MySQL.DBName)
}

// SettleInterval returns the settlement sweep interval.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.App.SettleInterval) * time.Second
}

// PollInterval returns the reconciler polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.App.PollInterval) * time.Second
}
