// Package httptransport 组装 gin 路由与 HTTP 处理器。
package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "aomail/backend/internal/auth/jwt"
	"aomail/backend/internal/config"
	"aomail/backend/internal/middleware"
	"aomail/backend/internal/monitoring"
	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
)

// Handler 聚合面向用户的 HTTP 处理逻辑。
type Handler struct {
	emails     *service.EmailService
	categories *service.CategoryService
	senders    *service.SenderService
	search     *service.SearchService
	stats      *service.StatisticsService
	accounts   storage.AccountRepository
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	EmailService      *service.EmailService
	CategoryService   *service.CategoryService
	SenderService     *service.SenderService
	SearchService     *service.SearchService
	StatisticsService *service.StatisticsService
	Store             storage.Store
	JWTManager        *jwtpkg.Manager
	Webhooks          *WebhookHandler
	Metrics           *monitoring.Metrics
	HealthHandler     http.Handler
	SearchLimiter     middleware.Limiter
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	if !deps.Config.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 使用自定义中间件替代默认中间件
	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		emails:     deps.EmailService,
		categories: deps.CategoryService,
		senders:    deps.SenderService,
		search:     deps.SearchService,
		stats:      deps.StatisticsService,
		accounts:   deps.Store,
	}

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 探针与指标
	if deps.HealthHandler != nil {
		router.GET("/live", gin.WrapH(deps.HealthHandler))
		router.GET("/ready", gin.WrapH(deps.HealthHandler))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// ========== Webhook Routes（服务商推送，无用户认证） ==========
	if deps.Webhooks != nil {
		webhookRoutes := router.Group("/webhook")
		{
			webhookRoutes.POST("/google", deps.Webhooks.HandleGoogle)
			webhookRoutes.POST("/microsoft", deps.Webhooks.HandleMicrosoft)
		}
	}

	// V1 API
	v1 := router.Group("/v1")
	v1.Use(jwtAuth.RequireAuth())
	{
		// ========== Email Routes ==========
		emailRoutes := v1.Group("/emails")
		{
			emailRoutes.GET("", handler.listEmails)
			emailRoutes.GET("/:id", handler.getEmail)
			emailRoutes.POST("/:id/read", handler.markEmailRead)
			emailRoutes.POST("/:id/unread", handler.markEmailUnread)
			emailRoutes.POST("/:id/answer-later", handler.setAnswerLater)
			emailRoutes.POST("/:id/archive", handler.archiveEmail)
			emailRoutes.DELETE("/:id", handler.deleteEmail)
		}

		// ========== Category Routes ==========
		categoryRoutes := v1.Group("/categories")
		{
			categoryRoutes.POST("", handler.createCategory)
			categoryRoutes.GET("", handler.listCategories)
			categoryRoutes.PATCH("/:id", handler.updateCategory)
			categoryRoutes.DELETE("/:id", handler.deleteCategory)
		}

		// ========== Sender / Rule Routes ==========
		v1.GET("/senders", handler.listContacts)
		ruleRoutes := v1.Group("/rules")
		{
			ruleRoutes.POST("", handler.upsertRule)
			ruleRoutes.GET("", handler.listRules)
			ruleRoutes.DELETE("/:id", handler.deleteRule)
		}

		// ========== Search / Statistics / Profile ==========
		// 扇出搜索逐账户调用服务商 API，按用户限流
		v1.POST("/search", middleware.RateLimit(deps.SearchLimiter, deps.Logger), handler.searchProviders)
		v1.GET("/statistics", handler.getStatistics)
		v1.GET("/profile/accounts", handler.listAccounts)
	}

	return router
}

// userID 取出认证中间件写入的用户标识
func userID(c *gin.Context) string {
	value, _ := c.Get("userID")
	id, _ := value.(string)
	return id
}
