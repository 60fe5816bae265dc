package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"polyscope/internal/aggregate"
	"polyscope/internal/alert"
	"polyscope/internal/anomaly"
	"polyscope/internal/client/datafeed"
	"polyscope/internal/config"
	cronrunner "polyscope/internal/cron"
	"polyscope/internal/db"
	"polyscope/internal/events"
	"polyscope/internal/handler"
	"polyscope/internal/ingest"
	"polyscope/internal/logger"
	"polyscope/internal/realtime"
	gormrepository "polyscope/internal/repository/gorm"
	"polyscope/internal/scoring"
	"polyscope/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("PS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("PS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	feedHTTP := &http.Client{Timeout: cfg.Feed.Timeout}
	feed := datafeed.NewClient(feedHTTP, cfg.Feed.BaseURL)
	bus := events.NewBus(logger)
	agg := aggregate.New(store, logger)

	scoreUpdater := &scoring.Updater{
		Repo:               store,
		Bus:                bus,
		Logger:             logger,
		Params:             scoring.DefaultParams(),
		Interval:           cfg.Scoring.Interval,
		ActiveWindow:       cfg.Scoring.ActiveWindow,
		BatchSize:          cfg.Scoring.BatchSize,
		SuspicionThreshold: cfg.Scoring.SuspicionThreshold,
		HighThreshold:      cfg.Scoring.HighAlertThreshold,
	}
	if cfg.Scoring.MinSettledForWinDim > 0 {
		scoreUpdater.Params.MinSettled = cfg.Scoring.MinSettledForWinDim
	}

	ingestor := &ingest.TradeIngestor{
		Feed:   feed,
		Repo:   store,
		Agg:    agg,
		Bus:    bus,
		Logger: logger,
		Cfg: ingest.Config{
			Interval:       cfg.Ingest.Interval,
			BatchSize:      cfg.Ingest.BatchSize,
			MaxRunDuration: cfg.Ingest.MaxRunDuration,
			RetryMax:       cfg.Ingest.RetryMax,
			RetryBaseDelay: cfg.Ingest.RetryBaseDelay,
			Policy: ingest.NewPolicy(
				cfg.Ingest.WhaleThresholdCents,
				cfg.Ingest.WhaleBandLowCents,
				cfg.Ingest.WhaleBandHighCents,
				cfg.Ingest.ExcludedCategories,
			),
			HighScoreThreshold: cfg.Scoring.HighAlertThreshold,
			PreMoveWindowMin:   time.Duration(cfg.Ingest.PreMoveWindowMinHours) * time.Hour,
			PreMoveWindowMax:   time.Duration(cfg.Ingest.PreMoveWindowMaxHours) * time.Hour,
		},
	}

	detector := &anomaly.PriceSpikeDetector{
		Repo:         store,
		Bus:          bus,
		Logger:       logger,
		ThresholdBps: cfg.Anomaly.ThresholdBps,
		Lookback:     cfg.Anomaly.Lookback,
	}

	marketSync := &service.MarketSyncService{
		Feed:      feed,
		Repo:      store,
		Logger:    logger,
		PageLimit: cfg.MarketSync.PageLimit,
		MaxPages:  cfg.MarketSync.MaxPages,
		Resume:    cfg.MarketSync.Resume,
	}
	settlementSync := &service.SettlementSyncService{
		Feed:      feed,
		Repo:      store,
		Agg:       agg,
		Scores:    scoreUpdater,
		Bus:       bus,
		Logger:    logger,
		BatchSize: cfg.SettlementSync.BatchSize,
	}

	hub := realtime.NewHub(logger, cfg.Realtime.SendBuffer, cfg.Realtime.MaxClients)
	matcher := &alert.Matcher{
		Repo: store,
		Notifier: &alert.Notifier{
			Repo:           store,
			Publisher:      hub,
			Logger:         logger,
			PublishTimeout: cfg.Alerts.PublishTimeout,
		},
		Logger:                   logger,
		LargeTradeThresholdCents: cfg.Alerts.LargeTradeThresholdCents,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	addressHandler := &handler.AddressHandler{Repo: store}
	addressHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Repo: store}
	tradeHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store}
	marketHandler.Register(engine)
	subscriptionHandler := &handler.SubscriptionHandler{Repo: store}
	subscriptionHandler.Register(engine)
	notificationHandler := &handler.NotificationHandler{Repo: store}
	notificationHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Repo: store}
	syncHandler.Register(engine)
	if cfg.Realtime.Enabled {
		engine.GET("/ws/alerts", gin.WrapH(hub))
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Alerts.Enabled {
		go func() {
			if err := matcher.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("alert matcher stopped", zap.Error(err))
			}
		}()
	}
	if cfg.Ingest.Enabled {
		go func() {
			if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("trade ingestor stopped", zap.Error(err))
			}
		}()
	}
	if cfg.Scoring.Enabled {
		go func() {
			if err := scoreUpdater.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("score updater stopped", zap.Error(err))
			}
		}()
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if cfg.MarketSync.Enabled {
			_, err := cronRunner.Add(cfg.Cron.MarketSync, func(ctx context.Context) {
				result, err := marketSync.SyncOnce(ctx)
				if err != nil {
					logger.Warn("cron market sync failed", zap.Error(err))
					return
				}
				logger.Info("cron market sync ok",
					zap.Int("pages", result.Pages),
					zap.Int("markets", result.Markets),
				)
			})
			if err != nil {
				logger.Warn("cron register market sync failed", zap.Error(err))
			}
		}
		if cfg.SettlementSync.Enabled {
			_, err := cronRunner.Add(cfg.Cron.SettlementSync, func(ctx context.Context) {
				result, err := settlementSync.SyncOnce(ctx)
				if err != nil {
					logger.Warn("cron settlement sync failed", zap.Error(err))
					return
				}
				if result.Resolutions > 0 {
					logger.Info("cron settlement sync ok",
						zap.Int("resolutions", result.Resolutions),
						zap.Int("addresses", result.Addresses),
					)
				}
			})
			if err != nil {
				logger.Warn("cron register settlement sync failed", zap.Error(err))
			}
		}
		if cfg.Anomaly.Enabled {
			_, err := cronRunner.Add(cfg.Cron.AnomalyScan, func(ctx context.Context) {
				if err := detector.ScanOnce(ctx); err != nil {
					logger.Warn("cron anomaly scan failed", zap.Error(err))
					return
				}
				since := time.Now().UTC().Add(-cfg.Anomaly.Lookback)
				if err := ingestor.MarkPreMoveTrades(ctx, since); err != nil {
					logger.Warn("cron pre-move flagging failed", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("cron register anomaly scan failed", zap.Error(err))
			}
		}
		_, err := cronRunner.Add("@every 5m", func(context.Context) {
			bus.LogStats()
		})
		if err != nil {
			logger.Warn("cron register bus stats failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
