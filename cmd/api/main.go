package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"clinic-portal/signature-backend/internal/auth"
	"clinic-portal/signature-backend/internal/config"
	"clinic-portal/signature-backend/internal/signatures"
	"clinic-portal/signature-backend/pkg/logger"
	"clinic-portal/signature-backend/pkg/security"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Security.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	if err := signatures.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	// Wire the signature subsystem
	keyStore := security.NewFileKeyStore(cfg.Signing.KeyStoreDir)
	keyring := security.NewKeyring(keyStore, security.EnvPassphraseSource{}, cfg.Security.IsProduction(), log)

	repo := signatures.NewRepository(db)
	service := signatures.NewService(repo, keyring, cfg.Security.IsProduction(), log)
	handler := signatures.NewHandler(service, log)

	if cfg.Security.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret, log))
	{
		handler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
