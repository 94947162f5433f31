// Package config holds the single envconfig-driven Config struct
// cmd/server builds its collaborators from: one struct per concern,
// populated by github.com/kelseyhightower/envconfig at process start.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"

	"github.com/verza/zkcreds/pkg/blockchain"
	"github.com/verza/zkcreds/pkg/kms"
	"github.com/verza/zkcreds/pkg/store"
)

// Config is the full process configuration, composed of one struct per
// concern. Chain-related environment variable names follow an
// EVM-flavored convention (CHAIN_ENV, REGISTRY_ADDRESS, ACCOUNT_ID,
// WALLET_KEYSTORE_PATH) for the on-chain registry collaborator this
// process signs transactions against.
type Config struct {
	Env  string `envconfig:"ENV" default:"dev"`
	Port string `envconfig:"PORT" default:"3000"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Chain     ChainConfig
	KMS       kms.Config
	RateLimit RateLimitConfig

	// ProverKeyID names the KMS key the process's proof-sealing identity
	// is bound to; created on first boot if absent.
	ProverKeyID string `envconfig:"PROVER_KEY_ID" default:"zkcreds-prover"`
}

// RateLimitConfig throttles the HTTP surface per client IP. Proof
// generation and proof verification both cost real CPU (CEL evaluation,
// signature checks); an unauthenticated caller hammering either route
// can otherwise monopolize them.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

// DatabaseConfig configures the Postgres-backed DB gateway (pkg/store).
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"zkcreds"`
	Password string `envconfig:"DB_PASSWORD" default:"zkcreds"`
	Name     string `envconfig:"DB_NAME" default:"zkcreds"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

func (d DatabaseConfig) toStoreConfig() *store.Config {
	return &store.Config{
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Database: d.Name,
		SSLMode:  d.SSLMode,
	}
}

// StoreConfig returns the pkg/store.Config this configuration describes.
func (c Config) StoreConfig() *store.Config {
	return c.Database.toStoreConfig()
}

// RedisConfig configures the orchestrator's optional write-behind receipt
// cache. Addr left empty disables the cache entirely.
type RedisConfig struct {
	Addr string `envconfig:"REDIS_ADDR" default:""`
}

// ChainConfig configures the EVM-backed registry collaborator (pkg/registry
// and its pkg/blockchain client).
type ChainConfig struct {
	Env             string `envconfig:"CHAIN_ENV" default:"dev"`
	RPCURL          string `envconfig:"CHAIN_RPC_URL" default:"http://localhost:8545"`
	ChainID         int64  `envconfig:"CHAIN_ID" default:"1337"`
	GasLimit        uint64 `envconfig:"CHAIN_GAS_LIMIT" default:"3000000"`
	GasPriceWei     int64  `envconfig:"CHAIN_GAS_PRICE" default:"0"`
	RegistryAddress string `envconfig:"REGISTRY_ADDRESS" required:"true"`
	AccountID       string `envconfig:"ACCOUNT_ID" required:"true"`
	WalletKeyPath   string `envconfig:"WALLET_KEYSTORE_PATH" required:"true"`
}

// BlockchainClientConfig returns the pkg/blockchain.Config this
// configuration describes. privateKeyHex is loaded separately (from the
// file at WalletKeyPath) since the keystore file format, not env vars,
// carries the signing key.
func (c ChainConfig) BlockchainClientConfig(privateKeyHex string) blockchain.Config {
	return blockchain.Config{
		RPCURL:     c.RPCURL,
		PrivateKey: privateKeyHex,
		ChainID:    c.ChainID,
		GasLimit:   c.GasLimit,
		GasPrice:   c.GasPriceWei,
	}
}

// walletKeyFile is the on-disk shape of a wallet key file.
type walletKeyFile struct {
	PrivateKey string `json:"private_key"`
}

// LoadWalletPrivateKey reads the signing key from
// $WALLET_KEYSTORE_PATH/$CHAIN_ENV/$ACCOUNT_ID.json.
func (c ChainConfig) LoadWalletPrivateKey() (string, error) {
	path := filepath.Join(c.WalletKeyPath, c.Env, c.AccountID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read wallet key file %s: %w", path, err)
	}
	var key walletKeyFile
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("parse wallet key file %s: %w", path, err)
	}
	if key.PrivateKey == "" {
		return "", fmt.Errorf("wallet key file %s has no private_key", path)
	}
	return key.PrivateKey, nil
}

// Load reads the process configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
