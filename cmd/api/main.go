package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "oneflow/api/swagger" // swagger docs
	"oneflow/internal/config"
	"oneflow/internal/database"
	"oneflow/internal/handler"
	"oneflow/internal/middleware"
	"oneflow/internal/repository"
	"oneflow/internal/service"
	"oneflow/internal/websocket"
	"oneflow/pkg/logger"
	"oneflow/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           OneFlow API
// @version         1.0
// @description     Projects, billing documents and the unified project manager approval queue.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/config.yaml", "configs/.env")
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database, zl)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("database migration failed", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zl.Named("ws"))
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	issuer := token.Issuer{Secret: []byte(cfg.Auth.JWTSecret), Expiry: cfg.Auth.JWTExpiry}
	middleware.SetJWTSecret(issuer.Secret)

	userService := service.NewUserService(userRepo, auditRepo, txManager, issuer, zl.Named("users"))
	projectService := service.NewProjectService(projectRepo, userRepo, auditRepo, txManager, zl.Named("projects"))
	expenseService := service.NewExpenseService(expenseRepo, projectRepo, auditRepo, txManager, wsHub, zl.Named("expenses"))
	billingService := service.NewBillingService(billingRepo, expenseRepo, projectRepo, auditRepo, txManager, wsHub, zl.Named("billing"))
	approvalService := service.NewApprovalService(expenseRepo, billingRepo, auditRepo, txManager, wsHub, zl.Named("approvals"))
	financeService := service.NewFinanceService(analyticsRepo, billingRepo, expenseRepo, projectRepo, zl.Named("finance"))
	auditService := service.NewAuditService(auditRepo)

	if err := userService.EnsureAdmin(ctx, service.AdminSeed{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		zl.Fatal("admin seed failed", zap.Error(err))
	}

	if err := handler.RegisterValidators(); err != nil {
		zl.Fatal("validator setup failed", zap.Error(err))
	}

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zl.Named("http")))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Content-Disposition"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API Routing
	api := router.Group("/api")
	handler.NewUserHandler(userService).RegisterRoutes(api)
	handler.NewProjectHandler(projectService).RegisterRoutes(api)
	handler.NewExpenseHandler(expenseService).RegisterRoutes(api)
	handler.NewApprovalHandler(approvalService).RegisterRoutes(api)
	handler.NewBillingHandler(billingService).RegisterRoutes(api)
	handler.NewFinanceHandler(financeService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
