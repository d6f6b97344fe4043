package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/loomnetwork/loom-token/crypto"
	"github.com/loomnetwork/loom-token/native/common"
	"github.com/loomnetwork/loom-token/native/staking"
)

type stakeParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Period string `json:"period"`
}

type restakeParams struct {
	Caller     string `json:"caller"`
	Amount     string `json:"amount"`
	Period     string `json:"period"`
	ClaimFirst bool   `json:"claimFirst"`
}

type amendParams struct {
	Caller      string `json:"caller"`
	FromWallet  string `json:"fromWallet"`
	FromBalance string `json:"fromBalance"`
	Period      string `json:"period"`
	Extend      bool   `json:"extend"`
}

type withdrawParams struct {
	Caller     string `json:"caller"`
	Amount     string `json:"amount"`
	ClaimFirst bool   `json:"claimFirst"`
}

type addressParams struct {
	Address string `json:"address"`
}

type pendingRewardsParams struct {
	Address string `json:"address"`
	AsOf    *int64 `json:"asOf,omitempty"`
}

type setFeaturesParams struct {
	Caller   string               `json:"caller"`
	Features staking.FeatureFlags `json:"features"`
}

type setRewardsRateParams struct {
	Caller  string `json:"caller"`
	RateBps uint64 `json:"rateBps"`
}

type setMaxStakesParams struct {
	Caller string `json:"caller"`
	Max    uint64 `json:"max"`
}

type transferOwnershipParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type importStakeParams struct {
	Period   string `json:"period"`
	UnlockAt int64  `json:"unlockAt"`
	Amount   string `json:"amount"`
}

type importAccountParams struct {
	Address string              `json:"address"`
	Balance string              `json:"balance"`
	Stakes  []importStakeParams `json:"stakes"`
}

type importParams struct {
	Caller   string                `json:"caller"`
	Accounts []importAccountParams `json:"accounts"`
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func decodeAddr(w http.ResponseWriter, req *RPCRequest, field, value string) ([20]byte, bool) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid "+field+" address", err.Error())
		return [20]byte{}, false
	}
	return addr.Raw(), true
}

func decodePeriod(w http.ResponseWriter, req *RPCRequest, label string) (staking.Period, bool) {
	period, err := staking.ParsePeriod(strings.TrimSpace(label))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid period", label)
		return 0, false
	}
	return period, true
}

// engineError maps engine sentinels onto JSON-RPC failures. Feature gate
// and ownership rejections surface as unauthorized so operators can tell
// policy failures apart from bad input.
func engineError(w http.ResponseWriter, req *RPCRequest, action string, err error) {
	switch {
	case errors.Is(err, common.ErrFeatureDisabled):
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, err.Error(), nil)
	case errors.Is(err, staking.ErrNotOwner):
		writeError(w, http.StatusForbidden, req.ID, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, staking.ErrTokenTransfer):
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, action, err.Error())
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, action, err.Error())
	}
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	period, ok := decodePeriod(w, req, params.Period)
	if !ok {
		return
	}
	acct, err := s.engine.Stake(caller, amount, period)
	if err != nil {
		engineError(w, req, "failed to stake", err)
		return
	}
	writeResult(w, req.ID, accountResponse(caller, acct))
}

func (s *Server) handleRestake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params restakeParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	period, ok := decodePeriod(w, req, params.Period)
	if !ok {
		return
	}
	acct, err := s.engine.Restake(caller, amount, period, params.ClaimFirst)
	if err != nil {
		engineError(w, req, "failed to restake", err)
		return
	}
	writeResult(w, req.ID, accountResponse(caller, acct))
}

func (s *Server) handleAmend(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params amendParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	fromWallet := big.NewInt(0)
	if strings.TrimSpace(params.FromWallet) != "" {
		var err error
		fromWallet, err = parseAmount(params.FromWallet)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid wallet amount", err.Error())
			return
		}
	}
	fromBalance := big.NewInt(0)
	if strings.TrimSpace(params.FromBalance) != "" {
		var err error
		fromBalance, err = parseAmount(params.FromBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid balance amount", err.Error())
			return
		}
	}
	period, ok := decodePeriod(w, req, params.Period)
	if !ok {
		return
	}
	acct, err := s.engine.Amend(caller, fromWallet, fromBalance, period, params.Extend)
	if err != nil {
		engineError(w, req, "failed to amend stake", err)
		return
	}
	writeResult(w, req.ID, accountResponse(caller, acct))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params withdrawParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	acct, err := s.engine.Withdraw(caller, amount, params.ClaimFirst)
	if err != nil {
		engineError(w, req, "failed to withdraw", err)
		return
	}
	writeResult(w, req.ID, accountResponse(caller, acct))
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "address", params.Address)
	if !ok {
		return
	}
	reward, acct, err := s.engine.ClaimRewards(caller)
	if err != nil {
		engineError(w, req, "failed to claim rewards", err)
		return
	}
	writeResult(w, req.ID, ClaimResponse{Reward: reward.String(), Account: accountResponse(caller, acct)})
}

func (s *Server) handlePendingRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params pendingRewardsParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, ok := decodeAddr(w, req, "address", params.Address)
	if !ok {
		return
	}
	asOf := s.engine.Now()
	if params.AsOf != nil {
		asOf = *params.AsOf
	}
	rewards, unlockable, err := s.engine.PendingRewards(addr, asOf)
	if err != nil {
		engineError(w, req, "failed to compute pending rewards", err)
		return
	}
	writeResult(w, req.ID, PendingRewardsResponse{
		Address:    params.Address,
		AsOf:       asOf,
		Rewards:    rewards.String(),
		Unlockable: unlockable.String(),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, ok := decodeAddr(w, req, "address", params.Address)
	if !ok {
		return
	}
	acct, err := s.engine.AccountSnapshot(addr)
	if err != nil {
		engineError(w, req, "failed to load account", err)
		return
	}
	writeResult(w, req.ID, accountResponse(addr, acct))
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	g, err := s.engine.Stats()
	if err != nil {
		engineError(w, req, "failed to load stats", err)
		return
	}
	writeResult(w, req.ID, statsResponse(g))
}

func (s *Server) handleGetFeatures(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	flags, err := s.engine.Features()
	if err != nil {
		engineError(w, req, "failed to load features", err)
		return
	}
	writeResult(w, req.ID, flags)
}

func (s *Server) handleSetFeatures(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setFeaturesParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	if err := s.engine.SetFeatures(caller, params.Features); err != nil {
		engineError(w, req, "failed to set features", err)
		return
	}
	writeResult(w, req.ID, params.Features)
}

func (s *Server) handleSetRewardsRate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setRewardsRateParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	if err := s.engine.SetRewardsRate(caller, params.RateBps); err != nil {
		engineError(w, req, "failed to set rewards rate", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"rateBps": params.RateBps})
}

func (s *Server) handleSetMaxStakes(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setMaxStakesParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	if err := s.engine.SetMaxStakes(caller, params.Max); err != nil {
		engineError(w, req, "failed to set max stakes", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"max": params.Max})
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params transferOwnershipParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	newOwner, ok := decodeAddr(w, req, "newOwner", params.NewOwner)
	if !ok {
		return
	}
	if err := s.engine.TransferOwnership(caller, newOwner); err != nil {
		engineError(w, req, "failed to transfer ownership", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"owner": params.NewOwner})
}

func (s *Server) handleImportAccounts(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params importParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := decodeAddr(w, req, "caller", params.Caller)
	if !ok {
		return
	}
	addrs := make([][20]byte, 0, len(params.Accounts))
	snapshots := make([]staking.ImportAccount, 0, len(params.Accounts))
	for _, entry := range params.Accounts {
		addr, ok := decodeAddr(w, req, "account", entry.Address)
		if !ok {
			return
		}
		balance := big.NewInt(0)
		if strings.TrimSpace(entry.Balance) != "" {
			var okBal bool
			balance, okBal = new(big.Int).SetString(strings.TrimSpace(entry.Balance), 10)
			if !okBal {
				writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid balance", entry.Balance)
				return
			}
		}
		stakes := make([]staking.Stake, 0, len(entry.Stakes))
		for _, st := range entry.Stakes {
			period, ok := decodePeriod(w, req, st.Period)
			if !ok {
				return
			}
			amount, okAmt := new(big.Int).SetString(strings.TrimSpace(st.Amount), 10)
			if !okAmt {
				writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake amount", st.Amount)
				return
			}
			stakes = append(stakes, staking.Stake{Period: period, UnlockAt: st.UnlockAt, Amount: amount})
		}
		addrs = append(addrs, addr)
		snapshots = append(snapshots, staking.ImportAccount{Balance: balance, Stakes: stakes})
	}
	if err := s.engine.ImportAccounts(caller, addrs, snapshots); err != nil {
		engineError(w, req, "failed to import accounts", err)
		return
	}
	writeResult(w, req.ID, ImportReceipt{Imported: len(addrs)})
}
