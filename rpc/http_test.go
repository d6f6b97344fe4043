package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomnetwork/loom-token/crypto"
	"github.com/loomnetwork/loom-token/native/staking"
	"github.com/loomnetwork/loom-token/native/token"
	"github.com/loomnetwork/loom-token/state"
	"github.com/loomnetwork/loom-token/storage"
)

const testAuthToken = "test-secret"

func testAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func unitAmount(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(staking.Decimals), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

type testFixture struct {
	server *Server
	engine *staking.Engine
	ledger *token.Ledger
	owner  [20]byte
	now    int64
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := state.NewStore(storage.NewMemDB())
	owner := testAddr(0xAA)
	features := staking.DefaultFeatures()
	features.ImportEnabled = true
	require.NoError(t, store.EnsureGlobals(&staking.Globals{
		Owner:               owner,
		TotalStaked:         big.NewInt(0),
		TotalRewardsClaimed: big.NewInt(0),
		RewardsRateBps:      staking.DefaultRewardsRateBps,
		MaxStakesPerAccount: 100,
		MigrationStartTime:  1_600_000_000,
		Features:            features,
	}))

	ledger := token.NewLedger(testAddr(0xFE))
	ledger.SetState(store)

	engine := staking.NewEngine()
	engine.SetState(store)
	engine.SetToken(ledger)
	now := int64(1_700_000_000)
	fx := &testFixture{engine: engine, ledger: ledger, owner: owner, now: now}
	engine.SetNowFunc(func() int64 { return fx.now })

	fx.server = NewServer(engine, testAuthToken)
	return fx
}

func (fx *testFixture) call(t *testing.T, method string, params interface{}, auth bool) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()

	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		rawParams = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if auth {
		r.Header.Set("Authorization", "Bearer "+testAuthToken)
	}
	w := httptest.NewRecorder()
	fx.server.handle(w, r)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func bech(addr [20]byte) string {
	return crypto.MustNewAddress(addr[:]).String()
}

func TestStakeEndToEnd(t *testing.T) {
	fx := newTestFixture(t)
	holder := testAddr(0x01)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(10_000)))

	w, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(7300).String(),
		Period: "2w",
	}, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	var acct AccountResponse
	decodeResult(t, resp, &acct)
	require.Equal(t, bech(holder), acct.Address)
	require.Len(t, acct.Stakes, 1)
	require.Equal(t, "2w", acct.Stakes[0].Period)
	require.Equal(t, "7300", acct.Stakes[0].Amount, "stake amounts are whole units")

	balance, err := fx.ledger.BalanceOf(holder)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(unitAmount(2700)))
}

func TestStakeRequiresAuth(t *testing.T) {
	fx := newTestFixture(t)

	w, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(testAddr(0x01)),
		Amount: unitAmount(1).String(),
		Period: "2w",
	}, false)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestStakeRejectsBadPeriod(t *testing.T) {
	fx := newTestFixture(t)
	holder := testAddr(0x01)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(10)))

	w, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(1).String(),
		Period: "5w",
	}, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestClaimRewardsAfterFourteenDays(t *testing.T) {
	fx := newTestFixture(t)
	holder := testAddr(0x02)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(7300)))

	_, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(7300).String(),
		Period: "2w",
	}, true)
	require.Nil(t, resp.Error)

	fx.now += 14 * 24 * 60 * 60

	_, resp = fx.call(t, "staking_claimRewards", addressParams{Address: bech(holder)}, true)
	require.Nil(t, resp.Error)

	var claim ClaimResponse
	decodeResult(t, resp, &claim)
	require.Equal(t, unitAmount(14).String(), claim.Reward)
	require.Equal(t, unitAmount(7314).String(), claim.Account.UnlockedBalance)
	require.Empty(t, claim.Account.Stakes)
}

func TestPendingRewardsDefaultsToNow(t *testing.T) {
	fx := newTestFixture(t)
	holder := testAddr(0x03)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(7300)))

	_, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(7300).String(),
		Period: "2w",
	}, true)
	require.Nil(t, resp.Error)

	fx.now += 14 * 24 * 60 * 60

	_, resp = fx.call(t, "staking_pendingRewards", pendingRewardsParams{Address: bech(holder)}, false)
	require.Nil(t, resp.Error)

	var pending PendingRewardsResponse
	decodeResult(t, resp, &pending)
	require.Equal(t, fx.now, pending.AsOf)
	require.Equal(t, unitAmount(14).String(), pending.Rewards)
	require.Equal(t, "7300", pending.Unlockable)
}

func TestWithdrawAllSentinel(t *testing.T) {
	fx := newTestFixture(t)
	holder := testAddr(0x04)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(100)))

	_, resp := fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(100).String(),
		Period: "2w",
	}, true)
	require.Nil(t, resp.Error)

	fx.now += 15 * 24 * 60 * 60

	_, resp = fx.call(t, "staking_withdraw", withdrawParams{
		Caller:     bech(holder),
		Amount:     "all",
		ClaimFirst: true,
	}, true)
	require.Nil(t, resp.Error)

	balance, err := fx.ledger.BalanceOf(holder)
	require.NoError(t, err)
	require.True(t, balance.Cmp(unitAmount(100)) > 0, "withdrawal returns principal plus rewards")

	_, resp = fx.call(t, "staking_getAccount", addressParams{Address: bech(holder)}, false)
	require.NotNil(t, resp.Error)
}

func TestGetStatsAndFeatures(t *testing.T) {
	fx := newTestFixture(t)

	_, resp := fx.call(t, "staking_getStats", nil, false)
	require.Nil(t, resp.Error)
	var stats StatsResponse
	decodeResult(t, resp, &stats)
	require.Equal(t, bech(fx.owner), stats.Owner)
	require.Equal(t, uint64(staking.DefaultRewardsRateBps), stats.RewardsRateBps)

	_, resp = fx.call(t, "staking_getFeatures", nil, false)
	require.Nil(t, resp.Error)
	var flags staking.FeatureFlags
	decodeResult(t, resp, &flags)
	require.True(t, flags.StakingEnabled)
}

func TestSetFeaturesOwnerGate(t *testing.T) {
	fx := newTestFixture(t)
	flags := staking.DefaultFeatures()
	flags.WithdrawEnabled = false

	w, resp := fx.call(t, "staking_setFeatures", setFeaturesParams{
		Caller:   bech(testAddr(0x09)),
		Features: flags,
	}, true)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, resp.Error)

	_, resp = fx.call(t, "staking_setFeatures", setFeaturesParams{
		Caller:   bech(fx.owner),
		Features: flags,
	}, true)
	require.Nil(t, resp.Error)

	holder := testAddr(0x05)
	require.NoError(t, fx.ledger.Mint(holder, unitAmount(10)))
	_, resp = fx.call(t, "staking_stake", stakeParams{
		Caller: bech(holder),
		Amount: unitAmount(10).String(),
		Period: "2w",
	}, true)
	require.Nil(t, resp.Error)

	fx.now += 15 * 24 * 60 * 60
	w, resp = fx.call(t, "staking_withdraw", withdrawParams{
		Caller: bech(holder),
		Amount: "all",
	}, true)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
}

func TestImportAccountsOverRPC(t *testing.T) {
	fx := newTestFixture(t)

	accounts := make([]importAccountParams, 0, 2)
	for i := 0; i < 2; i++ {
		accounts = append(accounts, importAccountParams{
			Address: bech(testAddr(byte(0x10 + i))),
			Balance: "100",
			Stakes: []importStakeParams{
				{Period: "6m", UnlockAt: 1_716_000_000, Amount: "50"},
			},
		})
	}

	_, resp := fx.call(t, "staking_importAccounts", importParams{
		Caller:   bech(fx.owner),
		Accounts: accounts,
	}, true)
	require.Nil(t, resp.Error)

	var receipt ImportReceipt
	decodeResult(t, resp, &receipt)
	require.Equal(t, 2, receipt.Imported)

	_, resp = fx.call(t, "staking_getStats", nil, false)
	require.Nil(t, resp.Error)
	var stats StatsResponse
	decodeResult(t, resp, &stats)
	require.Equal(t, uint64(2), stats.AccountCount)
}

func TestMethodNotFound(t *testing.T) {
	fx := newTestFixture(t)
	w, resp := fx.call(t, "staking_unknown", nil, false)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMalformedEnvelope(t *testing.T) {
	fx := newTestFixture(t)

	for _, body := range []string{"", "{not json}"} {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()
		fx.server.handle(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprintf("body %q", body))

		var resp RPCResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
	}
}
