package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olla-project/framework/internal/adapter/balancer"
	"github.com/olla-project/framework/internal/adapter/pool"
	"github.com/olla-project/framework/internal/adapter/registry"
	"github.com/olla-project/framework/internal/adapter/resilience"
	"github.com/olla-project/framework/internal/adapter/router"
	"github.com/olla-project/framework/internal/adapter/transport"
	"github.com/olla-project/framework/internal/client"
	"github.com/olla-project/framework/internal/config"
	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
	"github.com/olla-project/framework/internal/version"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	cfg, err := config.Load(nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logInstance, cleanup, err := logger.New(&logger.Config{
		Level:      cfg.Observability.Logging.Level,
		PrettyLogs: cfg.Observability.Logging.PrettyLogs,
		FileOutput: cfg.Observability.Logging.FileOutput,
		LogDir:     cfg.Observability.Logging.LogDir,
		MaxSize:    cfg.Observability.Logging.MaxSizeMB,
		MaxBackups: cfg.Observability.Logging.MaxBackups,
		MaxAge:     cfg.Observability.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger := *logger.NewStyledLogger(logInstance, false)
	styledLogger.Info("initialising", "version", version.Version, "pid", os.Getpid())

	app, err := buildFramework(cfg, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "failed to build framework", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		styledLogger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := app.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "failed to start framework", "error", err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		styledLogger.Error("error during shutdown", "error", err)
	}

	styledLogger.Info("framework has shutdown", "uptime", time.Since(startTime).String())
}

// buildFramework wires the Registry, LoadBalancer, ConnectionManager,
// resilience layer and Router into one client.Client facade, the way
// the teacher's app.New wires its own port services together.
func buildFramework(cfg *config.Config, log logger.StyledLogger) (ports.Client, error) {
	reg, err := registry.New(cfg.Registry, log)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	lb := balancer.NewLoadBalancer(balancer.NewFactory())

	poolCfg := domain.PoolConfig{
		MaxConnections:      cfg.ConnectionPool.Max,
		MinConnections:      cfg.ConnectionPool.Min,
		IdleTimeout:         cfg.ConnectionPool.IdleTimeout,
		MaxLifetime:         cfg.ConnectionPool.MaxLifetime,
		ConnectionTimeout:   cfg.ConnectionPool.ConnectionTimeout,
		HealthCheckInterval: cfg.ConnectionPool.HealthCheckInterval,
		KeepAlive:           cfg.ConnectionPool.KeepAlive,
		TCPNoDelay:          cfg.ConnectionPool.TCPNoDelay,
	}
	if err := poolCfg.Validate(); err != nil {
		return nil, fmt.Errorf("connectionPool config: %w", err)
	}
	connMgr := pool.NewManager(poolCfg, pool.DialerFunc(transport.NewHTTPDialer()), log)

	breakerRegistry := resilience.NewRegistry(func(name string) domain.BreakerConfig {
		c := domain.DefaultBreakerConfig(name)
		c.FailureThreshold = cfg.Resilience.FailureThreshold
		c.SuccessThreshold = cfg.Resilience.SuccessThreshold
		c.Timeout = cfg.Resilience.BreakerTimeout
		return c
	})

	retryPolicy := domain.RetryPolicy{
		MaxAttempts:         cfg.Resilience.MaxAttempts,
		InitialDelay:        cfg.Resilience.InitialDelay,
		MaxDelay:            cfg.Resilience.MaxDelay,
		Multiplier:          cfg.Resilience.Multiplier,
		RetryableErrorKinds: domain.DefaultRetryableKinds(),
	}

	msgRouter := router.NewRouter(reg, lb, cfg.Router.LoadBalancerStrategy, log)

	return client.New(client.Config{
		Registry:           reg,
		Router:             msgRouter,
		ConnectionMgr:      connMgr,
		BreakerRegistry:    breakerRegistry,
		RetryExecutor:      resilience.NewRetryExecutor(),
		Protocol:           transport.NewHTTPProtocolHandler(),
		Serializer:         transport.NewJSONSerializer(),
		RetryPolicy:        retryPolicy,
		Strategy:           cfg.Router.LoadBalancerStrategy,
		Logger:             log,
		CompletionRecorder: lb,
	}), nil
}
