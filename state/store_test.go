package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/loom-token/core/types"
	"github.com/loomnetwork/loom-token/native/staking"
	"github.com/loomnetwork/loom-token/storage"
)

func testAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func TestStakingAccountRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	addr := testAddr(0x01)

	_, ok, err := store.StakingAccount(addr)
	require.NoError(t, err)
	require.False(t, ok)

	acct := &staking.Account{
		LastClaimedAt:   1_700_000_000,
		UnlockedBalance: big.NewInt(42),
		Stakes: []staking.Stake{
			{Period: staking.PeriodTwoWeeks, UnlockAt: 1_701_000_000, Amount: big.NewInt(7300)},
		},
	}
	require.NoError(t, store.PutStakingAccount(addr, acct))

	loaded, ok, err := store.StakingAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acct.LastClaimedAt, loaded.LastClaimedAt)
	require.Zero(t, acct.UnlockedBalance.Cmp(loaded.UnlockedBalance))
	require.Len(t, loaded.Stakes, 1)
	require.Equal(t, staking.PeriodTwoWeeks, loaded.Stakes[0].Period)
	require.Zero(t, loaded.Stakes[0].Amount.Cmp(big.NewInt(7300)))

	require.NoError(t, store.DeleteStakingAccount(addr))
	_, ok, err = store.StakingAccount(addr)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnsureGlobalsSeedsOnce(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	_, err := store.StakingGlobals()
	require.Error(t, err)

	defaults := &staking.Globals{
		Owner:               testAddr(0xAA),
		TotalStaked:         big.NewInt(0),
		TotalRewardsClaimed: big.NewInt(0),
		RewardsRateBps:      staking.DefaultRewardsRateBps,
		MaxStakesPerAccount: 100,
		Features:            staking.DefaultFeatures(),
	}
	require.NoError(t, store.EnsureGlobals(defaults))

	g, err := store.StakingGlobals()
	require.NoError(t, err)
	require.Equal(t, testAddr(0xAA), g.Owner)
	require.Equal(t, uint64(staking.DefaultRewardsRateBps), g.RewardsRateBps)

	// A second boot with different defaults must not clobber the record.
	other := defaults.Clone()
	other.RewardsRateBps = 1234
	require.NoError(t, store.EnsureGlobals(other))

	g, err = store.StakingGlobals()
	require.NoError(t, err)
	require.Equal(t, uint64(staking.DefaultRewardsRateBps), g.RewardsRateBps)
}

func TestTokenAccountRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	addr := testAddr(0x02)

	acc, err := store.TokenAccount(addr)
	require.NoError(t, err)
	require.Nil(t, acc)

	require.NoError(t, store.PutTokenAccount(addr, &types.TokenAccount{Balance: big.NewInt(1000), Nonce: 3}))

	acc, err = store.TokenAccount(addr)
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Zero(t, acc.Balance.Cmp(big.NewInt(1000)))
	require.Equal(t, uint64(3), acc.Nonce)
}
