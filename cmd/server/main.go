package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"maternar/config"
	"maternar/controllers"
	"maternar/db"
	"maternar/graph"
	"maternar/internal/events"
	"maternar/internal/ratelimit"
	"maternar/internal/worker"
	"maternar/memstore"
	"maternar/routes"
	"maternar/services"
	"maternar/store"
	"maternar/utils"
	"maternar/websocket"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]controllers.Pinger{}
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	st, err := openStore(ctx, cfg, logger, checks, &cleanup)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	limitCfg := ratelimit.Config{MaxAttempts: cfg.Auth.LoginAttempts, Window: cfg.Auth.LoginWindow}
	var bus events.Bus = events.NewMemoryBus()
	var limiter services.LoginLimiter = ratelimit.NewMemoryLimiter(limitCfg)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = events.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, func() { rdb.Close() })
		bus = events.NewRedisBus(rdb)
		limiter = ratelimit.NewRedisLimiter(rdb, limitCfg)
		checks["redis"] = controllers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	svc, err := services.New(cfg, st, bus, limiter, logger)
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	schema, err := graph.NewSchema(svc, bus, logger)
	if err != nil {
		logger.Error("failed to parse graphql schema", "error", err)
		os.Exit(1)
	}

	hub := websocket.NewHub(bus, logger)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("gamification feed stopped", "error", err)
		}
	}()

	if rdb != nil {
		opts := worker.Options{
			RedisAddr:     cfg.Redis.Addr,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			Schedule:      cfg.Gamification.WeeklyResetSchedule,
			Location:      cfg.Location(),
		}
		stopWorker, err := worker.Start(opts, svc.Gamification, logger)
		if err != nil {
			logger.Error("failed to start worker", "error", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, stopWorker)
		stopScheduler, err := worker.StartScheduler(opts, logger)
		if err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, stopScheduler)
	} else {
		logger.Warn("redis not configured, weekly XP reset is not scheduled")
	}

	router := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		Services: svc,
		Schema:   schema,
		Hub:      hub,
		Checks:   checks,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// openStore opens the configured persistence. The memory driver is seeded
// with demo data; with activity.store set to mongo the activity log moves to
// the document archive.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, checks map[string]controllers.Pinger, cleanup *[]func()) (store.Store, error) {
	var st store.Store
	switch cfg.Database.Driver {
	case "memory":
		mem := memstore.New()
		if err := utils.PopulateDemoData(ctx, mem, cfg.Auth.BcryptCost, cfg.Gamification.XPPerLevel); err != nil {
			return nil, err
		}
		logger.Warn("using in-memory store, data is lost on restart", "demoPassword", utils.DemoPassword)
		st = mem
	default:
		conn, err := db.Open(db.Options{
			URL:             cfg.Database.URL,
			Timezone:        cfg.Database.Timezone,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, func() { db.Close(conn) })
		if cfg.Database.Migrate {
			if err := db.RunMigrations(conn); err != nil {
				return nil, err
			}
		}
		repo := db.NewRepository(conn)
		checks["database"] = repo
		logger.Info("connected to postgres")
		st = repo
	}

	if cfg.Activity.Store == "mongo" {
		archive, err := db.ConnectMongoActivity(ctx, cfg.Mongo.URI, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			archive.Close(ctx)
		})
		checks["mongo"] = archive
		st = store.WithActivities(st, archive)
	}
	return st, nil
}
