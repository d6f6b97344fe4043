package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/loomnetwork/loom-token/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("STAKING_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	rpcEndpoint = defaultRPCEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "account":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		getAccount(args[1])
	case "pending":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		var asOf *int64
		if len(args) >= 3 {
			ts, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fmt.Println("Error: Invalid timestamp.")
				return
			}
			asOf = &ts
		}
		getPending(args[1], asOf)
	case "stats":
		getStats()
	case "stake":
		if len(args) < 4 {
			fmt.Println("Error: Please provide an address, an amount and a period.")
			printUsage()
			return
		}
		stake(args[1], args[2], args[3])
	case "restake":
		if len(args) < 4 {
			fmt.Println("Error: Please provide an address, an amount and a period.")
			printUsage()
			return
		}
		restake(args[1], args[2], args[3])
	case "withdraw":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an address and an amount (or 'all').")
			printUsage()
			return
		}
		withdraw(args[1], args[2])
	case "claim":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		claim(args[1])
	case "set-rate":
		if len(args) < 3 {
			fmt.Println("Error: Please provide the owner address and a rate in basis points.")
			printUsage()
			return
		}
		rate, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid rate.")
			return
		}
		setRate(args[1], rate)
	case "import":
		if len(args) < 3 {
			fmt.Println("Error: Please provide the owner address and a snapshot file.")
			printUsage()
			return
		}
		importSnapshot(args[1], args[2])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}

	fileName := "wallet.key"
	if err := os.WriteFile(fileName, key.Bytes(), 0600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", fileName, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
}

type accountResult struct {
	Address         string `json:"address"`
	LastClaimedAt   int64  `json:"lastClaimedAt"`
	UnlockedBalance string `json:"unlockedBalance"`
	Stakes          []struct {
		Period   string `json:"period"`
		UnlockAt int64  `json:"unlockAt"`
		Amount   string `json:"amount"`
	} `json:"stakes"`
}

func getAccount(addr string) {
	var result accountResult
	if err := callRPC("staking_getAccount", map[string]string{"address": addr}, false, &result); err != nil {
		fmt.Printf("Error fetching account: %v\n", err)
		return
	}
	printAccount(&result)
}

func printAccount(result *accountResult) {
	fmt.Printf("Account: %s\n", result.Address)
	fmt.Printf("  Unlocked balance: %s\n", result.UnlockedBalance)
	fmt.Printf("  Last claimed:     %s\n", time.Unix(result.LastClaimedAt, 0).UTC().Format(time.RFC3339))
	if len(result.Stakes) == 0 {
		fmt.Println("  No active stakes.")
		return
	}
	fmt.Println("  Stakes:")
	for _, s := range result.Stakes {
		fmt.Printf("    - %s units for %s, unlocking at %s\n",
			s.Amount, s.Period, time.Unix(s.UnlockAt, 0).UTC().Format(time.RFC3339))
	}
}

func getPending(addr string, asOf *int64) {
	params := map[string]interface{}{"address": addr}
	if asOf != nil {
		params["asOf"] = *asOf
	}
	var result struct {
		AsOf       int64  `json:"asOf"`
		Rewards    string `json:"rewards"`
		Unlockable string `json:"unlockableUnits"`
	}
	if err := callRPC("staking_pendingRewards", params, false, &result); err != nil {
		fmt.Printf("Error fetching pending rewards: %v\n", err)
		return
	}
	fmt.Printf("Pending as of %s:\n", time.Unix(result.AsOf, 0).UTC().Format(time.RFC3339))
	fmt.Printf("  Rewards:          %s\n", result.Rewards)
	fmt.Printf("  Unlockable units: %s\n", result.Unlockable)
}

func getStats() {
	var result struct {
		Owner               string `json:"owner"`
		TotalStaked         string `json:"totalStaked"`
		TotalRewardsClaimed string `json:"totalRewardsClaimed"`
		AccountCount        uint64 `json:"accountCount"`
		RewardsRateBps      uint64 `json:"rewardsRateBps"`
	}
	if err := callRPC("staking_getStats", nil, false, &result); err != nil {
		fmt.Printf("Error fetching stats: %v\n", err)
		return
	}
	fmt.Printf("Ledger owner:          %s\n", result.Owner)
	fmt.Printf("Total staked:          %s\n", result.TotalStaked)
	fmt.Printf("Total rewards claimed: %s\n", result.TotalRewardsClaimed)
	fmt.Printf("Accounts:              %d\n", result.AccountCount)
	fmt.Printf("Rewards rate:          %d bps\n", result.RewardsRateBps)
}

func stake(addr, amount, period string) {
	var result accountResult
	params := map[string]string{"caller": addr, "amount": amount, "period": period}
	if err := callRPC("staking_stake", params, true, &result); err != nil {
		fmt.Printf("Error staking: %v\n", err)
		return
	}
	fmt.Println("Stake accepted.")
	printAccount(&result)
}

func restake(addr, amount, period string) {
	var result accountResult
	params := map[string]interface{}{"caller": addr, "amount": amount, "period": period, "claimFirst": true}
	if err := callRPC("staking_restake", params, true, &result); err != nil {
		fmt.Printf("Error restaking: %v\n", err)
		return
	}
	fmt.Println("Restake accepted.")
	printAccount(&result)
}

func withdraw(addr, amount string) {
	var result accountResult
	params := map[string]interface{}{"caller": addr, "amount": amount, "claimFirst": true}
	if err := callRPC("staking_withdraw", params, true, &result); err != nil {
		fmt.Printf("Error withdrawing: %v\n", err)
		return
	}
	fmt.Println("Withdrawal accepted.")
	printAccount(&result)
}

func claim(addr string) {
	var result struct {
		Reward  string        `json:"reward"`
		Account accountResult `json:"account"`
	}
	if err := callRPC("staking_claimRewards", map[string]string{"address": addr}, true, &result); err != nil {
		fmt.Printf("Error claiming rewards: %v\n", err)
		return
	}
	fmt.Printf("Claimed %s in rewards.\n", result.Reward)
	printAccount(&result.Account)
}

func setRate(owner string, rateBps uint64) {
	var result map[string]uint64
	params := map[string]interface{}{"caller": owner, "rateBps": rateBps}
	if err := callRPC("staking_setRewardsRate", params, true, &result); err != nil {
		fmt.Printf("Error setting rewards rate: %v\n", err)
		return
	}
	fmt.Printf("Rewards rate set to %d bps.\n", rateBps)
}

// snapshotFile mirrors the staking_importAccounts parameter shape so a
// migration snapshot can be replayed straight from disk.
type snapshotFile struct {
	Accounts []struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
		Stakes  []struct {
			Period   string `json:"period"`
			UnlockAt int64  `json:"unlockAt"`
			Amount   string `json:"amount"`
		} `json:"stakes"`
	} `json:"accounts"`
}

const importBatchSize = 100

func importSnapshot(owner, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading snapshot: %v\n", err)
		return
	}
	var snapshot snapshotFile
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		fmt.Printf("Error parsing snapshot: %v\n", err)
		return
	}
	if len(snapshot.Accounts) == 0 {
		fmt.Println("Snapshot contains no accounts.")
		return
	}

	imported := 0
	for start := 0; start < len(snapshot.Accounts); start += importBatchSize {
		end := start + importBatchSize
		if end > len(snapshot.Accounts) {
			end = len(snapshot.Accounts)
		}
		params := map[string]interface{}{
			"caller":   owner,
			"accounts": snapshot.Accounts[start:end],
		}
		var receipt struct {
			Imported int `json:"imported"`
		}
		if err := callRPC("staking_importAccounts", params, true, &receipt); err != nil {
			fmt.Printf("Error importing batch starting at %d: %v\n", start, err)
			fmt.Printf("Imported %d accounts before the failure.\n", imported)
			return
		}
		imported += receipt.Imported
		fmt.Printf("Imported %d/%d accounts...\n", imported, len(snapshot.Accounts))
	}
	fmt.Printf("Import complete: %d accounts.\n", imported)
}

func callRPC(method string, params interface{}, auth bool, out interface{}) error {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		request["params"] = []interface{}{params}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		if strings.TrimSpace(rpcAuthToken) == "" {
			return fmt.Errorf("this command requires STAKING_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode result payload")
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: staking-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  --rpc <url>                         - JSON-RPC endpoint (default http://localhost:8080)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate-key                        - Generates a new key and saves to wallet.key")
	fmt.Println("  account <address>                   - Shows the staking account for an address")
	fmt.Println("  pending <address> [timestamp]       - Shows claimable rewards, optionally at a timestamp")
	fmt.Println("  stats                               - Shows ledger-wide aggregates")
	fmt.Println("  stake <address> <amount> <period>   - Locks tokens for 2w, 3m, 6m or 12m")
	fmt.Println("  restake <address> <amount> <period> - Relocks unlocked balance ('all' for everything)")
	fmt.Println("  withdraw <address> <amount>         - Withdraws unlocked balance ('all' for everything)")
	fmt.Println("  claim <address>                     - Claims accrued rewards")
	fmt.Println("  set-rate <owner> <bps>              - Owner only: updates the rewards rate")
	fmt.Println("  import <owner> <snapshot.json>      - Owner only: replays a migration snapshot in batches")
	fmt.Println()
	fmt.Println("Mutating commands send a bearer token from STAKING_RPC_TOKEN.")
}
