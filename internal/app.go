package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devtransfer/config"
	"devtransfer/internal/application/ports"
	"devtransfer/internal/application/services"
	"devtransfer/internal/domain/transfer"
	"devtransfer/internal/infrastructure/blobstore/filestore"
	"devtransfer/internal/infrastructure/credentials"
	memtransfer "devtransfer/internal/infrastructure/db/memory/transfer"
	"devtransfer/internal/infrastructure/db/postgres"
	pgtransfer "devtransfer/internal/infrastructure/db/postgres/transfer"
	redisdb "devtransfer/internal/infrastructure/db/redis"
	redistransfer "devtransfer/internal/infrastructure/db/redis/transfer"
	"devtransfer/internal/infrastructure/db/sqlite"
	sqlitetransfer "devtransfer/internal/infrastructure/db/sqlite/transfer"
	"devtransfer/internal/infrastructure/jwt"
	"devtransfer/internal/infrastructure/logger"
	"devtransfer/internal/infrastructure/metrics"
	"devtransfer/internal/infrastructure/mq"
	"devtransfer/internal/interface/api/rest"
	"devtransfer/internal/interface/api/rest/middleware"
	"devtransfer/internal/interface/api/ws"
	"devtransfer/pkg/rmqconsumer"
)

const (
	loginRatePerMinute = 10
	shutdownTimeout    = 5 * time.Second
)

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	sqlDB      *sql.DB
	pgPool     *pgxpool.Pool
	rdb        *goredis.Client
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	ledger     *services.LedgerService
	reaper     *services.Reaper
	sweeper    *services.Sweeper
	hub        *ws.Hub
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer
}

func NewApp(ctx context.Context) (*App, error) {
	// config
	envErr := godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize zap logger: %w", err)
	}
	if envErr != nil {
		log.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	a := &App{
		logger:   log,
		cfg:      cfg,
		mCounter: metrics.NewCounter(),
	}
	if err = a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(a.logger, a.mCounter))
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	a.router = r

	// httpServer
	a.httpSrv = &http.Server{
		Addr:              cfg.App.Host + ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// ledger
	repo, err := a.openLedger(ctx)
	if err != nil {
		return err
	}

	// blobs
	store, err := filestore.New(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	a.reaper = services.NewReaper(store, a.logger, services.ReaperOptions{Attempts: cfg.Transfer.ReaperAttempts})

	// events
	a.hub = ws.NewHub(a.logger)
	sinks := []ports.EventSink{a.hub}

	if cfg.MQEnabled() {
		rabbitDsn, err := cfg.AMQPDSN()
		if err != nil {
			return fmt.Errorf("RabbitMQ config error: %w", err)
		}
		rbMQ := mq.New(cfg.MQ, a.logger)
		if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
			return fmt.Errorf("failed to connect to rabbitMQ: %w", err)
		}
		a.mq = rbMQ
		if err = rbMQ.Init(); err != nil {
			return fmt.Errorf("failed init rabbitMQ: %w", err)
		}
		sinks = append(sinks, rbMQ)

		// rmqConsumer shares the publisher's connection
		rmqConsumer := rmqconsumer.New(cfg.MQ, a.logger, rbMQ.GetConn())
		if err = rmqConsumer.Init(); err != nil {
			return fmt.Errorf("failed to init rabbitMQ consumer: %w", err)
		}
		a.mqConsumer = rmqConsumer
	} else {
		a.logger.Info("rabbitMQ disabled, events go to the websocket feed only")
	}

	a.ledger = services.NewLedgerService(
		repo,
		store,
		a.reaper,
		a.mCounter,
		a.logger,
		services.LedgerOptions{MaxTTL: cfg.Transfer.MaxTTL},
		services.WithCodeGenerator(services.NewCodeGenerator(cfg.Transfer.CodeBytes)),
		services.WithEventSinks(sinks...),
	)
	a.sweeper = services.NewSweeper(
		a.ledger,
		cfg.Transfer.SweepInterval,
		cfg.Transfer.OrphanGrace,
		metrics.NewSweeper(prometheus.DefaultRegisterer),
		a.logger,
	)

	return nil
}

func (a *App) openLedger(ctx context.Context) (transfer.Repository, error) {
	cfg := a.cfg

	switch cfg.Ledger.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(ctx, a.logger, cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		a.sqlDB = db
		return sqlitetransfer.NewRepository(db), nil

	case config.DriverPostgres:
		dbDsn, err := cfg.DBDSN()
		if err != nil {
			return nil, fmt.Errorf("DB config error: %w", err)
		}
		if err = postgres.Migrate(a.logger, dbDsn); err != nil {
			return nil, err
		}
		pool, err := postgres.New(ctx, a.logger, dbDsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.pgPool = pool
		return pgtransfer.NewRepository(pool), nil

	case config.DriverRedis:
		rdb, err := redisdb.New(ctx, a.logger, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.rdb = rdb
		return redistransfer.NewRepository(rdb), nil

	case config.DriverMemory:
		a.logger.Warn("in-memory ledger, transfers are lost on restart")
		return memtransfer.NewRepository(), nil
	}

	return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
}

func (a *App) Close() {
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		_ = a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	// background workers stop on their own context so the reaper can
	// finish what the last requests scheduled after the server drained
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()

	g, ctx := errgroup.WithContext(ctx)
	w, workCtx := errgroup.WithContext(workCtx)

	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.httpSrv.Addr))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	w.Go(func() error { return a.reaper.Run(workCtx) })
	w.Go(func() error { return a.sweeper.Run(workCtx) })
	w.Go(func() error { return a.hub.Run(workCtx) })

	if a.mq != nil {
		w.Go(func() error {
			a.mq.PublisherWorker(workCtx)
			return nil
		})
	}
	if a.mqConsumer != nil {
		w.Go(func() error {
			a.mqConsumer.DeliveryWorker(workCtx)
			return nil
		})
	}

	select {
	case <-ctx.Done():
	case <-workCtx.Done():
	}

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
		shutdownErr = err
	}
	stopWork()

	if err := errors.Join(g.Wait(), w.Wait(), shutdownErr); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() error {
	cfg := a.cfg

	// services
	creds, err := credentials.New(cfg.Auth.UploadTokens, cfg.Auth.AdminUsers, cfg.Auth.TokenCacheTTL)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	jwtService := jwt.New(cfg.App.JWTSecret)
	authService := services.NewAuthService(jwtService, creds, cfg.App.AdminTokenTTL)
	authenticator := middleware.NewAuthenticator(creds, jwtService)

	// controllers
	rest.NewTransferController(
		a.router,
		a.ledger,
		a.logger,
		rest.TransferOptions{
			PublicBaseURL:  cfg.App.PublicBaseURL,
			DefaultTTL:     cfg.Transfer.DefaultTTL,
			MaxUploadBytes: cfg.Transfer.MaxUploadBytes,
		},
		authenticator,
		middleware.RateLimitPerIP(cfg.HTTP.DownloadRatePerMinute),
	)
	rest.NewAdminController(a.router, a.ledger, a.sweeper, a.hub, a.logger, cfg.App.PublicBaseURL, authenticator)
	rest.NewAuthController(a.router, a.logger, authService, middleware.RateLimitPerIP(loginRatePerMinute))
	rest.NewCLIController(a.router, cfg.CLI.Version, cfg.CLI.BinaryPath, a.logger)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))

	return nil
}

func (a *App) Logger() *zap.Logger { return a.logger }
