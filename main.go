package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/aiclient"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/auth"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/config"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/handlers"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/healthcheck"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/ledger"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/reports"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/storage"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/usecase"
)

var (
	configPath string
	envFile    string
	probeAddr  string
)

var rootCmd = &cobra.Command{
	Use:           "aitrashrank",
	Short:         "AI Trash Rank backend",
	Long:          "Trash reporting, AI photo verification and collector rewards over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return serve(cmd.Context(), cfg, logger)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		repo := repository.NewRepository(db, logger)
		if err := migrate(ctx, repo, cfg.Database.SeedRewards); err != nil {
			return err
		}
		logger.Info("schema migrated", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Query a running server's gRPC health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		probe, conn, err := healthcheck.Dial(ctx, probeAddr, zap.NewNop())
		if err != nil {
			return err
		}
		defer conn.Close()

		status, err := probe.Check(ctx, healthcheck.ServiceName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status.String())
		if status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("service is %s", status)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	healthcheckCmd.Flags().StringVar(&probeAddr, "addr", "localhost:9090", "gRPC health server address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func serve(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	defer initCancel()

	db, err := initDatabase(initCtx, cfg.Database)
	if err != nil {
		return err
	}
	repo := repository.NewRepository(db, logger)
	if err := migrate(initCtx, repo, cfg.Database.SeedRewards); err != nil {
		return err
	}

	checks := []healthcheck.Check{{Name: "database", Probe: repo.Ping}}

	var cache usecase.Cache = usecase.NopCache{}
	if cfg.Redis.Addr != "" {
		redisClient, err := initRedis(initCtx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		redisCache := usecase.NewRedisCache(redisClient, healthcheck.ServiceName)
		cache = redisCache
		checks = append(checks, healthcheck.Check{Name: "redis", Probe: redisCache.Ping})
	} else {
		logger.Warn("redis address not set, results are not cached")
	}

	var generator aiclient.Generator
	if cfg.AI.APIKey != "" {
		client, err := aiclient.NewGenAIClient(initCtx, aiclient.GenAIConfig{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
		}, logger)
		if err != nil {
			return err
		}
		generator = client
	} else {
		logger.Warn("GEMINI_API_KEY not set, verification requests will fail with auth_error")
	}

	var photos storage.Store = storage.NewInlineStore()
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(initCtx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PublicURL: cfg.Storage.PublicURL,
		}, logger)
		if err != nil {
			return err
		}
		photos = s3Store
	}

	uc := usecase.New(usecase.Dependencies{
		Logs:      repo,
		Accounts:  repo,
		Reports:   reports.NewService(repo, photos, logger),
		Ledger:    ledger.New(repo, logger),
		Cache:     cache,
		Generator: generator,
		Logger:    logger,
		AITimeout: cfg.AI.Timeout,
		ResultTTL: cfg.Redis.TTL,
	})

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)
	if err != nil {
		return err
	}

	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize

	var routeOpts []handlers.Option
	if cfg.RateLimit.PerMinute > 0 {
		routeOpts = append(routeOpts, handlers.WithVerifyLimiter(
			handlers.NewUserRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)))
	}
	handlers.RegisterRoutes(r, uc, verifier.Middleware(), routeOpts...)

	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	monitor := healthcheck.NewMonitor(logger, 10*time.Second, checks...)
	monitor.Register(grpcServer)
	go monitor.Run(ctx)
	go func() {
		logger.Info("gRPC health listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	defer grpcServer.GracefulStop()

	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: r,
	}

	logger.Info("AI Trash Rank API listening", zap.String("addr", cfg.Server.HTTPAddr))
	err = serveHTTPServer(server, cfg.Server.ShutdownTimeout, logger)
	cancel()
	return err
}

func migrate(ctx context.Context, repo *repository.Repository, seed bool) error {
	if err := repo.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if seed {
		if err := repo.SeedRewards(ctx, repository.DefaultRewards()); err != nil {
			return fmt.Errorf("seed rewards: %w", err)
		}
	}
	return nil
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = postgres.Open(cfg.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection: %w", err)
	}
	return client, nil
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
