package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fxtrade/internal/api"
	"fxtrade/internal/config"
	"fxtrade/internal/repository"
	"fxtrade/internal/service"
	"fxtrade/internal/websocket"
	"fxtrade/pkg/ratelimit"
	"fxtrade/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	accountRepo := repository.NewAccountRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	rateRepo := repository.NewMarketRateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	// Инициализация сервисов
	rateService := service.NewMarketRateService(rateRepo, cfg.Trading.RateSeed)
	auditService := service.NewAuditService(auditRepo)

	// WebSocket hub для рассылки событий исполнения
	hub := websocket.NewHub(logger)
	go hub.Run()

	tradeService := service.NewTradeService(
		db,
		accountRepo,
		tradeRepo,
		rateService,
		auditService,
		hub,
		logger,
		service.TradeServiceConfig{
			LockTimeout:    cfg.Trading.LockTimeout,
			TxMaxAttempts:  cfg.Trading.TxMaxAttempts,
			TxRetryBackoff: cfg.Trading.TxRetryBackoff,
		},
	)

	// Пер-пользовательский лимит торговых запросов
	var tradeLimiter *ratelimit.KeyedLimiter
	if cfg.RateLimit.Enabled {
		tradeLimiter = ratelimit.NewKeyedLimiter(cfg.RateLimit.Rate, float64(cfg.RateLimit.Burst))
	}

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		Trades:        tradeService,
		TradeRepo:     tradeRepo,
		AccountRepo:   accountRepo,
		Rates:         rateService,
		Tokens:        tokenRepo,
		Hub:           hub,
		OriginChecker: websocket.NewOriginChecker(cfg.Server.WSOrigins),
		TradeLimiter:  tradeLimiter,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Останавливаем hub после того, как новые запросы больше не приходят
	hub.Stop()

	logger.Info("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
