package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"esgledger/auth"
	"esgledger/config"
	"esgledger/ledger"
	"esgledger/models"
	"esgledger/observability/logging"
	"esgledger/pipeline"
	"esgledger/recon"
	"esgledger/server"
	"esgledger/store"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.Setup("esg-gateway", cfg.Env)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	backend, err := ledger.Dial(cfg.RPCURL)
	if err != nil {
		log.Fatalf("ledger rpc error: %v", err)
	}
	keystore, err := ledger.NewDirKeystore(cfg.KeystoreDir)
	if err != nil {
		log.Fatalf("keystore error: %v", err)
	}
	client, err := ledger.NewClient(ledger.Config{
		Backend:      backend,
		ContractAddr: cfg.ContractAddress,
		ChainID:      cfg.ChainID,
		Keystore:     keystore,
		Logger:       logger,
		PollInterval: cfg.TxPollInterval,
		WaitTimeout:  cfg.TxWaitTimeout,
	})
	if err != nil {
		log.Fatalf("ledger client error: %v", err)
	}

	fees := ledger.NewFeeEstimator(backend, logger)
	orchestrator := ledger.NewOrchestrator(client, fees, logger)

	mirror := store.New(db)
	pipelines := pipeline.New(pipeline.Config{
		Store:        mirror,
		Orchestrator: orchestrator,
		Ledger:       client,
		Logger:       logger,
		RowTimeout:   cfg.MergeRowTimeout,
	})

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("auth error: %v", err)
	}

	srv := server.New(server.Config{
		Store:        mirror,
		Pipelines:    pipelines,
		Issuer:       issuer,
		ContractAddr: client.ContractAddress(),
		Logger:       logger,
		RateLimits: map[string]server.RateLimit{
			"submit": {RequestsPerMinute: cfg.SubmitPerMinute, Burst: cfg.SubmitBurst},
		},
	})

	var reports *recon.ReportWriter
	if cfg.ReconReportDir != "" {
		reports = recon.NewReportWriter(cfg.ReconReportDir, logger)
	}
	scanner, err := recon.NewScanner(recon.Config{Store: mirror, Ledger: client, Logger: logger, Reports: reports})
	if err != nil {
		log.Fatalf("recon scanner error: %v", err)
	}
	scheduler := recon.NewScheduler(recon.SchedulerConfig{
		Scanner:   scanner,
		RunHour:   cfg.ReconRunHour,
		RunMinute: cfg.ReconRunMinute,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go scheduler.Start(ctx)

	addr := ":" + cfg.Port
	logger.Info("starting esg-gateway", "addr", addr, "contract", client.ContractAddress())
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
