package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/loomnetwork/loom-token/crypto"
	"github.com/loomnetwork/loom-token/native/staking"
)

var (
	testOwnerAddrBytes = func() [20]byte {
		var addr [20]byte
		addr[0] = 0x42
		addr[len(addr)-1] = 0x24
		return addr
	}()
	testOwnerAddrString = crypto.MustNewAddress(testOwnerAddrBytes[:]).String()
)

func TestLoadParsesStakingSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := fmt.Sprintf(`RPCAddress = "0.0.0.0:9000"
OpsAddress = "0.0.0.0:9100"
DataDir = "./data"
Env = "testnet"
LogFile = "staking.log"
OwnerAddress = "%s"

[staking]
RewardsRateBps = 750
MaxStakesPerAccount = 25
MigrationStartTime = 1600000000
StakingEnabled = true
AmendEnabled = true
WithdrawEnabled = true
RewardsEnabled = true
ImportEnabled = true
AmendMustExtend = false
`, testOwnerAddrString)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" {
		t.Fatalf("RPCAddress: %s", cfg.RPCAddress)
	}
	if cfg.OpsAddress != "0.0.0.0:9100" {
		t.Fatalf("OpsAddress: %s", cfg.OpsAddress)
	}
	if cfg.Staking.RewardsRateBps != 750 {
		t.Fatalf("RewardsRateBps: %d", cfg.Staking.RewardsRateBps)
	}

	g, err := cfg.Globals()
	if err != nil {
		t.Fatalf("globals: %v", err)
	}
	if g.Owner != testOwnerAddrBytes {
		t.Fatalf("owner mismatch")
	}
	if g.RewardsRateBps != 750 || g.MaxStakesPerAccount != 25 {
		t.Fatalf("globals seed: %+v", g)
	}
	if !g.Features.ImportEnabled || g.Features.AmendMustExtend {
		t.Fatalf("feature seed: %+v", g.Features)
	}
}

func TestExplicitZeroStakeCapMeansUnlimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := fmt.Sprintf(`OwnerAddress = "%s"

[staking]
MaxStakesPerAccount = 0
`, testOwnerAddrString)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Staking.MaxStakesPerAccount == nil || *cfg.Staking.MaxStakesPerAccount != 0 {
		t.Fatalf("explicit zero cap not preserved: %v", cfg.Staking.MaxStakesPerAccount)
	}

	g, err := cfg.Globals()
	if err != nil {
		t.Fatalf("globals: %v", err)
	}
	if g.MaxStakesPerAccount != 0 {
		t.Fatalf("expected uncapped accounts, got %d", g.MaxStakesPerAccount)
	}
}

func TestLoadRejectsBadOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `OwnerAddress = "not-a-bech32-address"`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid owner address to be rejected")
	}
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, err := crypto.DecodeAddress(cfg.OwnerAddress); err != nil {
		t.Fatalf("generated owner invalid: %v", err)
	}
	if cfg.Staking.RewardsRateBps != staking.DefaultRewardsRateBps {
		t.Fatalf("default rate: %d", cfg.Staking.RewardsRateBps)
	}
	if !cfg.Staking.StakingEnabled || cfg.Staking.ImportEnabled {
		t.Fatalf("default features: %+v", cfg.Staking)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.OwnerAddress != cfg.OwnerAddress {
		t.Fatalf("reload changed owner: %s vs %s", reloaded.OwnerAddress, cfg.OwnerAddress)
	}
}

func TestGlobalsDefaultsRateWhenUnset(t *testing.T) {
	cfg := &Config{OwnerAddress: testOwnerAddrString}
	cfg.applyDefaults()

	g, err := cfg.Globals()
	if err != nil {
		t.Fatalf("globals: %v", err)
	}
	if g.RewardsRateBps != staking.DefaultRewardsRateBps {
		t.Fatalf("rate: %d", g.RewardsRateBps)
	}
	if g.MaxStakesPerAccount != defaultMaxStakes {
		t.Fatalf("max stakes: %d", g.MaxStakesPerAccount)
	}
}
