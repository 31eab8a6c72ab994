package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "aomail/backend/internal/auth/jwt"
	"aomail/backend/internal/cache"
	"aomail/backend/internal/config"
	"aomail/backend/internal/domain"
	"aomail/backend/internal/llm"
	"aomail/backend/internal/logger"
	"aomail/backend/internal/mail"
	"aomail/backend/internal/middleware"
	"aomail/backend/internal/monitoring"
	"aomail/backend/internal/pool"
	"aomail/backend/internal/provider"
	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
	"aomail/backend/internal/storage/filesystem"
	"aomail/backend/internal/storage/memory"
	"aomail/backend/internal/storage/postgres"
	"aomail/backend/internal/storage/redis"
	httptransport "aomail/backend/internal/transport/http"
)

// main 启动邮件管理后端：HTTP API、webhook 摄取管线与后台任务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.FromConfig(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting aomail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	switch cfg.Database.Type {
	case "postgres":
		store, err = postgres.NewStore(cfg.Database.DSN)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize postgres storage: %v", err))
		}
		log.Info("using postgres storage")
	case "mysql":
		store, err = postgres.NewMySQLStore(cfg.Database.DSN)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize mysql storage: %v", err))
		}
		log.Info("using mysql storage")
	default:
		// 未配置数据库时使用内存存储（开发环境）
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// Redis 可选：不可达时降级为进程内去重，单实例部署仍然正确
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process dedup", zap.Error(err))
			redisClient = nil
		}
	}

	var deduper service.Deduper
	var localDeduper *cache.Deduper
	if redisClient != nil {
		deduper = redis.NewDeduper(redisClient, "ingest", cfg.Ingest.DedupTTL)
	} else {
		localDeduper = cache.NewDeduper(cfg.Ingest.DedupTTL)
		deduper = localDeduper
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	alertManager := monitoring.NewAlertManager(log)
	alertManager.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alertManager.AddRule(monitoring.HighMemoryUsageRule(512.0)) // 512MB
	alertManager.AddRule(monitoring.DatabaseConnectionRule(store))

	var pinger monitoring.Pinger
	if redisClient != nil {
		pinger = redisClient
		alertManager.AddRule(monitoring.RedisConnectionRule(redisClient))
	}
	healthHandler := monitoring.NewHealthHandler(store, pinger)

	log.Info("monitoring system initialized")

	// 内嵌图片落盘目录
	fsStore, err := filesystem.NewStore(cfg.Ingest.PictureDir)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize picture storage: %v", err))
	}
	log.Info("picture storage initialized", zap.String("path", cfg.Ingest.PictureDir))

	// LLM 分类器
	llmClient := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	classifier := llm.NewClassifier(llmClient, log)

	// 服务商客户端（空 baseURL 使用官方端点）
	googleClient := provider.NewGoogleClient("", log)
	microsoftClient := provider.NewMicrosoftClient("", log)

	// 初始化服务层
	emailService := service.NewEmailService(store, log)
	categoryService := service.NewCategoryService(store)
	senderService := service.NewSenderService(store, store)
	statisticsService := service.NewStatisticsService(store)
	searchService := service.NewSearchService(store, map[domain.EmailProvider]service.ProviderSearcher{
		domain.ProviderGoogle:    googleClient,
		domain.ProviderMicrosoft: microsoftClient,
	}, log)
	ingestService := service.NewIngestService(
		store,
		categoryService,
		classifier,
		mail.NewExtractor(fsStore, log),
		map[domain.EmailProvider]service.MessageFetcher{
			domain.ProviderGoogle:    googleClient,
			domain.ProviderMicrosoft: microsoftClient,
		},
		deduper,
		alertManager,
		log,
	)

	classifier.SetMetrics(metrics)
	searchService.SetMetrics(metrics)
	ingestService.SetMetrics(metrics)

	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// 摄取工作池：webhook 立即应答，拉取与分类在池内执行
	workerPool := pool.NewWorkerPool(cfg.Ingest.Workers, cfg.Ingest.QueueSize, log)
	webhooks := httptransport.NewWebhookHandler(ingestService, googleClient, store, workerPool, log)

	// 扇出搜索限流（仅在 Redis 可用时启用）
	var searchLimiter middleware.Limiter
	if redisClient != nil {
		searchLimiter = redis.NewRateLimiter(redisClient, "search", 30, time.Minute)
	}

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		EmailService:      emailService,
		CategoryService:   categoryService,
		SenderService:     senderService,
		SearchService:     searchService,
		StatisticsService: statisticsService,
		Store:             store,
		JWTManager:        jwtManager,
		Webhooks:          webhooks,
		Metrics:           metrics,
		HealthHandler:     healthHandler,
		SearchLimiter:     searchLimiter,
		Logger:            log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerPool.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期已读邮件 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Ingest.SweepInterval)
		defer ticker.Stop()

		log.Info("starting retention sweep task", zap.Duration("interval", cfg.Ingest.SweepInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("retention sweep task stopped")
				return nil
			case <-ticker.C:
				count, err := emailService.SweepReadEmails()
				if err != nil {
					log.Error("retention sweep failed", zap.Error(err))
				} else if count > 0 {
					metrics.EmailsSwept.Add(float64(count))
				}
			}
		}
	})

	// 告警监控 goroutine
	group.Go(func() error {
		log.Info("starting alert monitoring")
		alertManager.StartMonitoring(groupCtx, 1*time.Minute)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 等待在途摄取任务完成
		workerPool.Stop()

		if localDeduper != nil {
			localDeduper.Close()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}
		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
