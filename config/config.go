package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/loomnetwork/loom-token/crypto"
	"github.com/loomnetwork/loom-token/native/staking"
)

type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	OpsAddress string `toml:"OpsAddress"`
	DataDir    string `toml:"DataDir"`
	Env        string `toml:"Env"`
	LogFile    string `toml:"LogFile"`

	// OwnerAddress is the bech32 account allowed to change ledger policy.
	OwnerAddress string `toml:"OwnerAddress"`
	// VaultAddress holds locked principal on the token ledger.
	VaultAddress string `toml:"VaultAddress"`

	Staking StakingConfig `toml:"staking"`
}

// StakingConfig seeds the ledger globals on first boot. Later changes go
// through the admin RPC methods, not the config file.
// MaxStakesPerAccount is a pointer so an explicit 0 (no cap) survives
// decoding; only an absent key falls back to the default.
type StakingConfig struct {
	RewardsRateBps      uint64  `toml:"RewardsRateBps"`
	MaxStakesPerAccount *uint64 `toml:"MaxStakesPerAccount"`
	MigrationStartTime  int64  `toml:"MigrationStartTime"`
	StakingEnabled      bool   `toml:"StakingEnabled"`
	AmendEnabled        bool   `toml:"AmendEnabled"`
	WithdrawEnabled     bool   `toml:"WithdrawEnabled"`
	RewardsEnabled      bool   `toml:"RewardsEnabled"`
	ImportEnabled       bool   `toml:"ImportEnabled"`
	AmendMustExtend     bool   `toml:"AmendMustExtend"`
}

const defaultMaxStakes = 100

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.OpsAddress) == "" {
		c.OpsAddress = ":9090"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./staking-data"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "local"
	}
	if c.Staking.MaxStakesPerAccount == nil {
		max := uint64(defaultMaxStakes)
		c.Staking.MaxStakesPerAccount = &max
	}
}

// Validate rejects configurations the daemon cannot start from.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return fmt.Errorf("config: OwnerAddress is required")
	}
	if _, err := crypto.DecodeAddress(c.OwnerAddress); err != nil {
		return fmt.Errorf("config: invalid OwnerAddress: %w", err)
	}
	if strings.TrimSpace(c.VaultAddress) != "" {
		if _, err := crypto.DecodeAddress(c.VaultAddress); err != nil {
			return fmt.Errorf("config: invalid VaultAddress: %w", err)
		}
	}
	return nil
}

// Owner returns the decoded policy owner address.
func (c *Config) Owner() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.OwnerAddress)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// Vault returns the decoded vault address, deriving a fixed module address
// when none is configured.
func (c *Config) Vault() ([20]byte, error) {
	if strings.TrimSpace(c.VaultAddress) == "" {
		var vault [20]byte
		copy(vault[:], "staking/module/vault")
		return vault, nil
	}
	addr, err := crypto.DecodeAddress(c.VaultAddress)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// Globals materialises the first-boot ledger aggregates from the config.
func (c *Config) Globals() (*staking.Globals, error) {
	owner, err := c.Owner()
	if err != nil {
		return nil, err
	}
	rate := c.Staking.RewardsRateBps
	if rate == 0 {
		rate = staking.DefaultRewardsRateBps
	}
	maxStakes := uint64(defaultMaxStakes)
	if c.Staking.MaxStakesPerAccount != nil {
		maxStakes = *c.Staking.MaxStakesPerAccount
	}
	return &staking.Globals{
		Owner:               owner,
		TotalStaked:         big.NewInt(0),
		TotalRewardsClaimed: big.NewInt(0),
		RewardsRateBps:      rate,
		MaxStakesPerAccount: maxStakes,
		MigrationStartTime:  c.Staking.MigrationStartTime,
		Features: staking.FeatureFlags{
			StakingEnabled:  c.Staking.StakingEnabled,
			AmendEnabled:    c.Staking.AmendEnabled,
			WithdrawEnabled: c.Staking.WithdrawEnabled,
			RewardsEnabled:  c.Staking.RewardsEnabled,
			ImportEnabled:   c.Staking.ImportEnabled,
			AmendMustExtend: c.Staking.AmendMustExtend,
		},
	}, nil
}

// createDefault writes a default configuration with a freshly generated
// owner key so a local node can start without any manual setup.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	maxStakes := uint64(defaultMaxStakes)
	cfg := &Config{
		RPCAddress:   ":8080",
		OpsAddress:   ":9090",
		DataDir:      "./staking-data",
		Env:          "local",
		OwnerAddress: key.PubKey().Address().String(),
		Staking: StakingConfig{
			RewardsRateBps:      staking.DefaultRewardsRateBps,
			MaxStakesPerAccount: &maxStakes,
			StakingEnabled:      true,
			AmendEnabled:        true,
			WithdrawEnabled:     true,
			RewardsEnabled:      true,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
