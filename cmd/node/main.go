package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/params"
	"github.com/hybriddex/hybriddex/pkg/api"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/engine"
	"github.com/hybriddex/hybriddex/pkg/storage"
	"github.com/hybriddex/hybriddex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Storage ----
	store, err := storage.NewStore(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer store.Close()

	// ---- Custody ledger, restored from disk ----
	ledger := custody.NewLedger()
	assets, err := store.LoadAssets()
	if err != nil {
		sugar.Fatalw("load_assets_failed", "err", err)
	}
	balances, err := store.LoadBalances()
	if err != nil {
		sugar.Fatalw("load_balances_failed", "err", err)
	}
	ledger.Restore(assets, balances)
	sugar.Infow("ledger_restored", "assets", len(assets), "balances", len(balances))

	// ---- Engine: restore existing state or bootstrap fresh ----
	eng := engine.New(ledger, util.RealClock{}, sugar)

	global, err := store.LoadGlobal()
	if err != nil {
		sugar.Fatalw("load_global_failed", "err", err)
	}
	if global != nil {
		recs, err := store.LoadMarkets()
		if err != nil {
			sugar.Fatalw("load_markets_failed", "err", err)
		}
		if err := eng.Restore(global, recs); err != nil {
			sugar.Fatalw("engine_restore_failed", "err", err)
		}
		sugar.Infow("engine_restored", "markets", len(recs), "admin", global.Admin.Hex())
	} else if cfg.Dex.AdminAddress != "" {
		admin := common.HexToAddress(cfg.Dex.AdminAddress)
		if err := eng.Initialize(admin, cfg.Dex.MaxOrdersPerUser, cfg.Dex.MaxOrdersPerBook); err != nil {
			sugar.Fatalw("engine_init_failed", "err", err)
		}
		sugar.Infow("engine_initialized", "admin", admin.Hex(),
			"max_orders_per_user", cfg.Dex.MaxOrdersPerUser,
			"max_orders_per_book", cfg.Dex.MaxOrdersPerBook)
	} else {
		sugar.Info("engine not initialized - set ADMIN_ADDRESS or POST /api/v1/admin/init")
	}

	eng.SetArchiver(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	server := api.NewServer(eng, ledger, store, cfg.HTTP, sugar)
	go func() {
		if err := server.Start(cfg.HTTP.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}
}
