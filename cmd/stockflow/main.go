package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockflow-hq/stockflow/internal/app"
	"github.com/stockflow-hq/stockflow/internal/audit"
	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/masterdata"
	"github.com/stockflow-hq/stockflow/internal/numbering"
	"github.com/stockflow-hq/stockflow/internal/platform/cache"
	"github.com/stockflow-hq/stockflow/internal/platform/db"
	"github.com/stockflow-hq/stockflow/internal/purchases"
	"github.com/stockflow-hq/stockflow/internal/reports"
	"github.com/stockflow-hq/stockflow/internal/sales"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditRecorder := audit.NewRecorder(pool)

	masterRepo := masterdata.NewRepository(pool)
	masterService := masterdata.NewService(masterRepo)
	masterHandler := masterdata.NewHandler(logger, masterService)

	inventoryRepo := inventory.NewRepository(pool)
	ledger := inventory.NewLedger(inventoryRepo, auditRecorder)
	inventoryService := inventory.NewService(inventoryRepo, ledger, masterService)
	importer := inventory.NewImporter(inventoryRepo, masterService)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, importer)

	saleNumbers := numbering.NewGenerator(sales.NumberPrefix, string(inventory.KindSale), inventoryRepo)
	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, ledger, inventoryService, saleNumbers)
	salesHandler := sales.NewHandler(logger, salesService)

	purchaseNumbers := numbering.NewGenerator(purchases.NumberPrefix, string(inventory.KindPurchase), inventoryRepo)
	purchasesRepo := purchases.NewRepository(pool)
	purchasesService := purchases.NewService(purchasesRepo, ledger, inventoryService, purchaseNumbers)
	purchasesHandler := purchases.NewHandler(logger, purchasesService)

	var reportCache *cache.Store
	if redisClient != nil {
		reportCache = cache.NewStore(redisClient, cfg.ReportCacheTTL)
	}
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterHandler,
		InventoryHandler:  inventoryHandler,
		SalesHandler:      salesHandler,
		PurchasesHandler:  purchasesHandler,
		ReportsHandler:    reportsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
