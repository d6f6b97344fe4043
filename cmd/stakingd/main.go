package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loomnetwork/loom-token/config"
	"github.com/loomnetwork/loom-token/core/events"
	"github.com/loomnetwork/loom-token/core/types"
	"github.com/loomnetwork/loom-token/native/staking"
	"github.com/loomnetwork/loom-token/native/token"
	"github.com/loomnetwork/loom-token/observability/logging"
	"github.com/loomnetwork/loom-token/observability/metrics"
	"github.com/loomnetwork/loom-token/rpc"
	"github.com/loomnetwork/loom-token/state"
	"github.com/loomnetwork/loom-token/storage"
)

const rpcTokenEnv = "STAKING_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("stakingd", cfg.Env, logging.FileConfig{
		Filename:   cfg.LogFile,
		MaxSizeMB:  100,
		MaxAgeDays: 28,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := state.NewStore(db)
	defaults, err := cfg.Globals()
	if err != nil {
		logger.Error("Failed to build ledger defaults", slog.Any("error", err))
		os.Exit(1)
	}
	if err := store.EnsureGlobals(defaults); err != nil {
		logger.Error("Failed to seed ledger globals", slog.Any("error", err))
		os.Exit(1)
	}

	vault, err := cfg.Vault()
	if err != nil {
		logger.Error("Failed to resolve vault address", slog.Any("error", err))
		os.Exit(1)
	}
	ledger := token.NewLedger(vault)
	ledger.SetState(store)

	engine := staking.NewEngine()
	engine.SetState(store)
	engine.SetToken(ledger)

	stakingMetrics := metrics.Staking()
	engine.SetEmitter(logEmitter{log: logger, meter: stakingMetrics})
	go refreshLedgerGauges(engine, stakingMetrics, logger)

	opsRouter := chi.NewRouter()
	opsRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsRouter.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info("starting ops server", "addr", cfg.OpsAddress)
		if err := http.ListenAndServe(cfg.OpsAddress, opsRouter); err != nil {
			logger.Error("ops server stopped", slog.Any("error", err))
		}
	}()

	authToken := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if authToken == "" {
		logger.Warn("RPC auth token not set; mutating methods will be rejected", "env", rpcTokenEnv)
	}
	server := rpc.NewServer(engine, authToken)
	server.SetLogger(logger)
	server.SetMetrics(stakingMetrics)

	go func() {
		if err := server.Start(cfg.RPCAddress); err != nil {
			logger.Error("RPC server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}

// rewardsMeter is the slice of the metrics registry the emitter feeds.
type rewardsMeter interface {
	AddRewardsIssued(units float64)
}

// logEmitter writes ledger events to the structured log and feeds the
// rewards counter. A networked event bus can replace it without touching
// the engine.
type logEmitter struct {
	log   *slog.Logger
	meter rewardsMeter
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	if claimed, ok := evt.(events.StakingRewardsClaimed); ok && l.meter != nil {
		l.meter.AddRewardsIssued(unitsFloat(claimed.Reward))
	}
	renderer, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		l.log.Info("ledger event", "event", evt.EventType())
		return
	}
	rendered := renderer.Event()
	attrs := make([]any, 0, len(rendered.Attributes)*2+2)
	attrs = append(attrs, "event", rendered.Type)
	for k, v := range rendered.Attributes {
		attrs = append(attrs, k, v)
	}
	l.log.Info("ledger event", attrs...)
}

// unitsFloat converts a fractional-scale amount to whole token units for
// gauge and counter exposition.
func unitsFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(staking.Decimals), nil))
	units, _ := new(big.Float).Quo(new(big.Float).SetInt(v), scale).Float64()
	return units
}

// refreshLedgerGauges republishes the aggregate gauges on a fixed cadence.
func refreshLedgerGauges(engine *staking.Engine, m *metrics.StakingMetrics, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		g, err := engine.Stats()
		if err != nil {
			logger.Warn("failed to refresh ledger gauges", slog.Any("error", err))
			continue
		}
		m.SetLedgerTotals(unitsFloat(g.TotalStaked), g.AccountCount)
	}
}
