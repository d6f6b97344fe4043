package rpc

import (
	"github.com/loomnetwork/loom-token/crypto"
	"github.com/loomnetwork/loom-token/native/staking"
)

type StakeResponse struct {
	Period   string `json:"period"`
	UnlockAt int64  `json:"unlockAt"`
	Amount   string `json:"amount"`
}

type AccountResponse struct {
	Address         string          `json:"address"`
	LastClaimedAt   int64           `json:"lastClaimedAt"`
	UnlockedBalance string          `json:"unlockedBalance"`
	Stakes          []StakeResponse `json:"stakes"`
}

type ClaimResponse struct {
	Reward  string          `json:"reward"`
	Account AccountResponse `json:"account"`
}

type PendingRewardsResponse struct {
	Address    string `json:"address"`
	AsOf       int64  `json:"asOf"`
	Rewards    string `json:"rewards"`
	Unlockable string `json:"unlockableUnits"`
}

type StatsResponse struct {
	Owner               string               `json:"owner"`
	TotalStaked         string               `json:"totalStaked"`
	TotalRewardsClaimed string               `json:"totalRewardsClaimed"`
	AccountCount        uint64               `json:"accountCount"`
	RewardsRateBps      uint64               `json:"rewardsRateBps"`
	MaxStakesPerAccount uint64               `json:"maxStakesPerAccount"`
	MigrationStartTime  int64                `json:"migrationStartTime"`
	Features            staking.FeatureFlags `json:"features"`
}

type ImportReceipt struct {
	Imported int `json:"imported"`
}

func accountResponse(addr [20]byte, acct *staking.Account) AccountResponse {
	resp := AccountResponse{
		Address:       crypto.MustNewAddress(addr[:]).String(),
		LastClaimedAt: acct.LastClaimedAt,
	}
	resp.UnlockedBalance = "0"
	if acct.UnlockedBalance != nil {
		resp.UnlockedBalance = acct.UnlockedBalance.String()
	}
	resp.Stakes = make([]StakeResponse, 0, len(acct.Stakes))
	for _, s := range acct.Stakes {
		entry := StakeResponse{Period: s.Period.String(), UnlockAt: s.UnlockAt, Amount: "0"}
		if s.Amount != nil {
			entry.Amount = s.Amount.String()
		}
		resp.Stakes = append(resp.Stakes, entry)
	}
	return resp
}

func statsResponse(g *staking.Globals) StatsResponse {
	resp := StatsResponse{
		Owner:               crypto.MustNewAddress(g.Owner[:]).String(),
		TotalStaked:         "0",
		TotalRewardsClaimed: "0",
		AccountCount:        g.AccountCount,
		RewardsRateBps:      g.RewardsRateBps,
		MaxStakesPerAccount: g.MaxStakesPerAccount,
		MigrationStartTime:  g.MigrationStartTime,
		Features:            g.Features,
	}
	if g.TotalStaked != nil {
		resp.TotalStaked = g.TotalStaked.String()
	}
	if g.TotalRewardsClaimed != nil {
		resp.TotalRewardsClaimed = g.TotalRewardsClaimed.String()
	}
	return resp
}
