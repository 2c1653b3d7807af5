package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-inventory/internal/api"
	"github.com/sanosuguru/go-seat-inventory/internal/api/handler"
	custommiddleware "github.com/sanosuguru/go-seat-inventory/internal/api/middleware"
	"github.com/sanosuguru/go-seat-inventory/internal/application"
	"github.com/sanosuguru/go-seat-inventory/internal/config"
	"github.com/sanosuguru/go-seat-inventory/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-seat-inventory/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-inventory/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-inventory/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-inventory/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(os.Getenv("APP_ENV"))
	logger.Set(log)
	defer logger.Sync()

	// PostgreSQL接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション（パス指定時のみ）
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		if err := postgres.RunMigrations(db.DB, path); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
	}

	// Redis接続（任意：未接続でもキャッシュと通知なしで動作する）
	var (
		cache    *redisinfra.RemainingCache
		notifier *redisinfra.ChangeNotifier
	)
	redisClient := redisinfra.NewClient(&cfg.Redis)
	if err := redisinfra.Ping(context.Background(), redisClient); err != nil {
		logger.Warn("Redis接続エラー：キャッシュと変更通知を無効化します", zap.Error(err))
	} else {
		cache = redisinfra.NewRemainingCache(redisClient)
		notifier = redisinfra.NewChangeNotifier(redisClient)
		defer redisClient.Close()
	}

	// メトリクス
	m := metrics.Init()

	// リポジトリとサービス
	eventRepo := postgres.NewEventRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	txManager := postgres.NewTxManager(db)

	eventService := application.NewEventService(eventRepo, cache, cfg.Inventory.RemainingCacheTTL)
	inventoryService := application.NewInventoryService(
		txManager, eventRepo, reservationRepo, cache, notifier, m, cfg.Inventory,
	)

	// 期限切れ冪等性キーのスイーパー
	workerCtx, workerCancel := context.WithCancel(context.Background())
	sweeper := worker.NewOutcomeSweeper(inventoryService, cfg.Inventory.SweepInterval)
	go sweeper.Start(workerCtx)

	// Echoセットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	// ルーティング
	eventHandler := handler.NewEventHandler(eventService)
	reservationHandler := handler.NewReservationHandler(inventoryService)
	healthHandler := handler.NewHealthHandler()

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)
	v1.GET("/events", eventHandler.List)
	v1.POST("/events", eventHandler.Create)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.GET("/events/:id/remaining", eventHandler.GetRemaining)
	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations/:id", reservationHandler.GetByID)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	// サーバー起動
	go func() {
		if err := e.Start(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	workerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
