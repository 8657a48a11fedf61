package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/middleware"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/handler"
	"github.com/uthejd-slx/procura-backend/internal/procurement/jobs"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/procurement/sse"
	"github.com/uthejd-slx/procura-backend/internal/shared/mailer"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const usage = `usage: procura [command]

commands:
  serve (default)                  run the HTTP API
  seed-templates                   upsert the global BOM templates
  create-admin <email> <password>  create or promote a superuser
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(entity.All()...); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)
	defer rdb.Close()

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.MinIO, cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to init attachment storage", zap.Error(err))
	}

	hub := sse.NewHub()
	graph := mailer.NewGraphClient(cfg.Graph)
	if !graph.Enabled() {
		zapLogger.Info("Graph mail credentials missing, outgoing mail disabled")
	}
	repos := repository.NewRepositories(db)
	svc := service.NewServices(repos, rdb, cfg, store, graph, hub)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "serve":
		serve(cfg, zapLogger, db, rdb, repos, svc, hub)
	case "seed-templates":
		created, updated, err := svc.Templates.SeedGlobal(ctx)
		if err != nil {
			zapLogger.Fatal("Seeding templates failed", zap.Error(err))
		}
		zapLogger.Info("Global templates seeded", zap.Int("created", created), zap.Int("updated", updated))
	case "create-admin":
		if len(os.Args) != 4 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		user, err := svc.Users.CreateSuperuser(ctx, os.Args[2], os.Args[3])
		if err != nil {
			zapLogger.Fatal("Creating superuser failed", zap.Error(err))
		}
		zapLogger.Info("Superuser ready", zap.String("user_id", user.ID), zap.String("email", user.Email))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(cfg *config.Config, zapLogger *zap.Logger, db *gorm.DB, rdb *redis.Client,
	repos *repository.Repositories, svc *service.Services, hub *sse.Hub) {
	zapLogger.Info("Starting procura service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("Redis is not reachable", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	cancelPing()

	var runner *jobs.Runner
	if cfg.Cron.Enabled {
		runner = jobs.NewRunner(repos, svc.Notifications, rdb)
		if err := runner.Schedule(cfg.Cron); err != nil {
			zapLogger.Fatal("Invalid cron schedule", zap.Error(err))
		}
		runner.Start()
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	handlers := handler.NewHandlers(svc, hub, db, rdb, Version)
	handler.RegisterRoutes(router, handlers, cfg, svc.Auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE streams stay open
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if runner != nil {
		runner.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
		gormConfig.DisableForeignKeyConstraintWhenMigrating = true
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
