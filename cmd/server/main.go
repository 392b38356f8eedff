package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"coinflip/internal/audit"
	"coinflip/internal/chain"
	"coinflip/internal/config"
	cronrunner "coinflip/internal/cron"
	"coinflip/internal/db"
	"coinflip/internal/handler"
	"coinflip/internal/logger"
	"coinflip/internal/metrics"
	gormrepository "coinflip/internal/repository/gorm"
	"coinflip/internal/service"
	"coinflip/internal/stream"

	_ "coinflip/docs"
)

func main() {
	cfgPath := os.Getenv("COINFLIP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("COINFLIP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	custodian, err := chain.NewCustodian(cfg.Chain.CustodianKey)
	if err != nil {
		log.Fatal("custodian key invalid", zap.Error(err))
	}
	if custodian == nil {
		log.Warn("custodian key not configured, wins will be deferred to manual payout")
	} else {
		log.Info("custodian loaded", zap.String("address", custodian.Address().Hex()))
	}

	pool := chain.NewPool(cfg.Chain.Endpoints, cfg.Chain.ProbeTimeout, cfg.Chain.MaxFailures, log)
	chainClient := chain.NewClient(pool, custodian, cfg.Chain.ChainID, cfg.Chain.CallTimeout, log)

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaults(context.Background()); err != nil {
		log.Warn("init default switches failed", zap.Error(err))
	}

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.QueueSize, log)
	}

	settleSvc := &service.SettlementService{
		Repo:       store,
		Chain:      chainClient,
		Settings:   settingsSvc,
		Logger:     log,
		Multiplier: decimal.NewFromFloat(cfg.Game.Multiplier),
	}
	if hub != nil {
		settleSvc.Stream = hub
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(audit.WriteAuditMiddleware(log))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	flipHandler := &handler.FlipHandler{Service: settleSvc, Logger: log}
	flipHandler.Register(engine)
	statsHandler := &handler.StatsHandler{
		Repo:         store,
		Logger:       log,
		DefaultLimit: cfg.Game.HistoryLimit,
		MaxLimit:     cfg.Game.MaxHistoryPage,
	}
	statsHandler.Register(engine)
	payoutHandler := &handler.PayoutHandler{Repo: store, Logger: log}
	payoutHandler.Register(engine)
	infoHandler := &handler.InfoHandler{
		Chain:      chainClient,
		Settings:   settingsSvc,
		Multiplier: cfg.Game.Multiplier,
		FeePercent: cfg.Game.FeePercent,
	}
	infoHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)
	if hub != nil {
		streamHandler := &handler.StreamHandler{Hub: hub}
		streamHandler.Register(engine)
	}

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Probe once before serving so the first round doesn't pay the
	// full discovery cost.
	pool.ProbeAll(ctx)

	sweeper := &service.PayoutSweeper{
		Repo:        store,
		Chain:       chainClient,
		Settings:    settingsSvc,
		Logger:      log,
		GracePeriod: cfg.Sweep.GracePeriod,
		MaxAttempts: cfg.Sweep.MaxAttempts,
		BatchSize:   cfg.Sweep.BatchSize,
	}

	cronRunner := cronrunner.New(log, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Sweep.Schedule, func(ctx context.Context) {
			if err := sweeper.Run(ctx); err != nil {
				log.Warn("payout sweep failed", zap.Error(err))
			}
		}); err != nil {
			log.Warn("cron register payout sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.ProbeSpec, func(ctx context.Context) {
			pool.ProbeAll(ctx)
		}); err != nil {
			log.Warn("cron register rpc probe failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
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
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
