package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wladi27/biblioteca-virtual-backend/config"
	"github.com/wladi27/biblioteca-virtual-backend/internal/database"
	"github.com/wladi27/biblioteca-virtual-backend/internal/repository"
	"github.com/wladi27/biblioteca-virtual-backend/internal/service"
	"github.com/wladi27/biblioteca-virtual-backend/internal/worker"
	"github.com/wladi27/biblioteca-virtual-backend/internal/ws"
)

// The daemon runs the member-facing push channel plus the bulk-recharge
// audit worker. Business operations (placement, wallet, referrals, bulk
// recharges) are driven through the service layer by the front-end gateway
// that shares this database.
func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	wallets := repository.NewWalletRepository(db)
	txs := repository.NewTransactionRepository(db)
	withdrawals := repository.NewWithdrawalRepository(db)
	bulks := repository.NewBulkRechargeRepository(db)

	hub := ws.NewHub()
	clock := service.SystemClock()
	ledger := service.NewWalletLedger(wallets, txs, withdrawals, hub, clock)

	auditor := worker.New(worker.Config{
		QueueSize:         cfg.Bulk.AuditQueueSize,
		Delay:             cfg.Bulk.AuditDelay,
		ReconcileInterval: cfg.Bulk.ReconcileInterval,
	})
	coordinator := service.NewBulkCoordinator(bulks, wallets, txs, ledger, auditor, clock, service.BulkConfig{
		AuditBatchSize: cfg.Bulk.AuditBatchSize,
	})
	auditor.Bind(coordinator)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	auditor.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.Handler(&cfg.JWT, hub))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	auditor.Stop()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
