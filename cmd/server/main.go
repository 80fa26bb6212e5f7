package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zaqqye/scholarship_backend/internal/config"
	"github.com/zaqqye/scholarship_backend/internal/database"
	"github.com/zaqqye/scholarship_backend/internal/identity"
	"github.com/zaqqye/scholarship_backend/internal/logging"
	"github.com/zaqqye/scholarship_backend/internal/metrics"
	"github.com/zaqqye/scholarship_backend/internal/payout"
	"github.com/zaqqye/scholarship_backend/internal/routes"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
	"github.com/zaqqye/scholarship_backend/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.Setup(logging.Options{
		Service: "scholarship_backend",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedOperator(db, cfg); err != nil {
		return err
	}

	reregister, err := scholarship.ParseReregisterPolicy(cfg.Reregister)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hubs := ws.NewHubs()
	validator := identity.New(cfg.AddressPrefix)
	store := database.NewScholarshipStore(db)
	outbox := database.NewOutbox(db)
	engine := scholarship.NewEngine(store,
		scholarship.WithValidator(validator),
		scholarship.WithReregisterPolicy(reregister),
		scholarship.WithObserver(m),
		scholarship.WithLogger(logger),
		scholarship.WithEmitter(scholarship.MultiEmitter{
			scholarship.LogEmitter{Logger: logger},
			hubs,
		}),
	)

	var sender payout.Sender = payout.LogSender{Logger: logger}
	if cfg.PayoutWebhookURL != "" {
		sender = payout.NewWebhookSender(cfg.PayoutWebhookURL)
	}
	worker := payout.NewWorker(outbox, sender,
		payout.WithInterval(cfg.PayoutPollInterval),
		payout.WithLogger(logger),
		payout.WithRecorder(m),
	)

	if strings.EqualFold(cfg.Env, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	routes.Register(r, routes.Deps{
		DB:        db,
		Config:    cfg,
		Engine:    engine,
		Store:     store,
		Outbox:    outbox,
		Hubs:      hubs,
		Validator: validator,
		Gatherer:  reg,
	})

	go hubs.Run(ctx)
	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.Any("error", err))
	}
	if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, payout.ErrStopped) {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
