package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Test network layout used when nothing else is configured.
const (
	defaultCryptoPath = "../test-network/organizations/peerOrganizations/org1.example.com"
	envPrefix         = "HEALTHCARE"
)

// Config holds all configuration for the healthcare CLI
type Config struct {
	// "production" switches logging to JSON
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Fabric FabricConfig `mapstructure:"fabric"`
	Wallet WalletConfig `mapstructure:"wallet"`
}

// FabricConfig holds the Fabric Gateway endpoint and the deployed contract
type FabricConfig struct {
	PeerEndpoint  string `mapstructure:"peer_endpoint"`
	GatewayPeer   string `mapstructure:"gateway_peer"`
	TLSCertPath   string `mapstructure:"tls_cert_path"`
	ChannelName   string `mapstructure:"channel_name"`
	ChaincodeName string `mapstructure:"chaincode_name"`

	EvaluateTimeout     time.Duration `mapstructure:"evaluate_timeout"`
	EndorseTimeout      time.Duration `mapstructure:"endorse_timeout"`
	SubmitTimeout       time.Duration `mapstructure:"submit_timeout"`
	CommitStatusTimeout time.Duration `mapstructure:"commit_status_timeout"`
}

// WalletConfig points at the MSP directory of the client identity
type WalletConfig struct {
	Path  string `mapstructure:"path"`
	MSPID string `mapstructure:"msp_id"`
}

// IsProduction reports whether production logging should be used.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from file (when given or found) and environment.
// An empty path searches config.yaml in ., ./config and $HOME/.healthcare.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.healthcare")
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("fabric.peer_endpoint", "localhost:7051")
	v.SetDefault("fabric.gateway_peer", "peer0.org1.example.com")
	v.SetDefault("fabric.tls_cert_path", defaultCryptoPath+"/peers/peer0.org1.example.com/tls/ca.crt")
	v.SetDefault("fabric.channel_name", "mychannel")
	v.SetDefault("fabric.chaincode_name", "healthcare")
	v.SetDefault("fabric.evaluate_timeout", 5*time.Second)
	v.SetDefault("fabric.endorse_timeout", 15*time.Second)
	v.SetDefault("fabric.submit_timeout", 5*time.Second)
	v.SetDefault("fabric.commit_status_timeout", time.Minute)

	v.SetDefault("wallet.path", defaultCryptoPath+"/users/User1@org1.example.com/msp")
	v.SetDefault("wallet.msp_id", "Org1MSP")
}

// overrideWithEnv keeps the variable names used by the Fabric samples.
func overrideWithEnv(cfg *Config) {
	if name := os.Getenv("CHANNEL_NAME"); name != "" {
		cfg.Fabric.ChannelName = name
	}
	if name := os.Getenv("CHAINCODE_NAME"); name != "" {
		cfg.Fabric.ChaincodeName = name
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// Validate checks that every setting needed to reach the contract is set.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"fabric.peer_endpoint", c.Fabric.PeerEndpoint},
		{"fabric.gateway_peer", c.Fabric.GatewayPeer},
		{"fabric.tls_cert_path", c.Fabric.TLSCertPath},
		{"fabric.channel_name", c.Fabric.ChannelName},
		{"fabric.chaincode_name", c.Fabric.ChaincodeName},
		{"wallet.path", c.Wallet.Path},
		{"wallet.msp_id", c.Wallet.MSPID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	timeouts := []struct {
		key   string
		value time.Duration
	}{
		{"fabric.evaluate_timeout", c.Fabric.EvaluateTimeout},
		{"fabric.endorse_timeout", c.Fabric.EndorseTimeout},
		{"fabric.submit_timeout", c.Fabric.SubmitTimeout},
		{"fabric.commit_status_timeout", c.Fabric.CommitStatusTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value <= 0 {
			return fmt.Errorf("%s must be positive", timeout.key)
		}
	}
	return nil
}
