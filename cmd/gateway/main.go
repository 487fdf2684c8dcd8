package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"extract-gateway/internal/config"
	"extract-gateway/internal/handlers/extract"
	"extract-gateway/internal/locks"
	"extract-gateway/internal/middleware"
	"extract-gateway/internal/ports"
	"extract-gateway/internal/routers"
	"extract-gateway/internal/runtime"
	"extract-gateway/internal/shared"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Flags / ENV Variables
	cfg := config.Default()
	configPath := flag.String("config", shared.GetEnv("GATEWAY_CONFIG", ""), "Path to a TOML config file")
	cfg.BindFlags(flag.CommandLine)

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			panic(err)
		}
		if err := cfg.Overlay(flag.CommandLine); err != nil {
			panic(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if !cfg.Debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()
	defer func() {
		_ = log.Sync()
	}()

	// Chosen once, before anything listens
	port, err := ports.Allocate(cfg.PortRangeStart, cfg.PortRangeEnd, shared.PortProbeTimeout)
	if err != nil {
		log.Fatalw("Failed to find a free port", "error", err.Error())
	}

	var locker extract.Locker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		locker = locks.NewRedisLocker(redisClient, log, cfg.Provision.LockTTL, shared.ProvisionLockPoll)
		log.Infow("Provisioning lock enabled", "redis_addr", cfg.RedisAddr)
	}

	rt := runtime.NewClient(&runtime.CLI{Binary: cfg.Runtime.Binary}, log, runtime.Timeouts{
		List: cfg.Runtime.ListTimeout,
		Pull: cfg.Runtime.PullTimeout,
		Run:  cfg.Runtime.RunTimeout,
	})
	extractHandler := extract.NewExtractHandler(rt, log, extract.Options{
		DefaultModel:      cfg.Runtime.DefaultModel,
		MaxConcurrentRuns: int64(cfg.Runtime.MaxConcurrentRuns),
		SettleMode:        cfg.Provision.SettleMode,
		SettleDelay:       cfg.Provision.SettleDelay,
		Settle: extract.Backoff{
			Initial:    cfg.Provision.SettleInitialDelay,
			Max:        cfg.Provision.SettleMaxDelay,
			Multiplier: shared.SettleBackoffMultiplier,
			Deadline:   cfg.Provision.SettleDeadline,
		},
		LockWait:     cfg.Provision.LockWait,
		CleanHTML:    cfg.Extract.CleanHTML,
		MaxHTMLChars: cfg.Extract.MaxHTMLChars,
	}, locker)

	e := echo.New()
	e.HideBanner = true
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))

	routers.RegisterExtractRoutes(base, extractHandler, cfg.BodyLimit)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	go func() {
		log.Infow("Starting server", "addr", addr, "runtime", cfg.Runtime.Binary)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("shutting down the server", "error", err.Error())
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("Failed graceful shutdown", "error", err.Error())
	}
}
