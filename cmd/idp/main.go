package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mockidp/internal/config"
	"github.com/dropDatabas3/mockidp/internal/http/server"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

func main() {
	var (
		flagConfig  = flag.String("config", "configs/config.yaml", "ruta a config.yaml (si no existe se usan defaults + env)")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env (opcional)")
	)
	flag.Parse()

	// .env es opcional
	_ = godotenv.Load(*flagEnvFile)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	if err := run(cfg); err != nil {
		logger.L().Error("server stopped", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	log := logger.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// sin clave de firma no hay IdP: cualquier error acá es fatal
	app, err := server.Build(logger.ToContext(ctx, log), cfg)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("cleanup", logger.Err(err))
		}
	}()

	api := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}
	servers := []*http.Server{api}
	if cfg.Server.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:        cfg.Server.MetricsAddr,
			Handler:     app.Metrics.Handler(),
			ReadTimeout: cfg.ReadTimeout(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Info("listening", zap.String("addr", srv.Addr), zap.String("issuer", cfg.JWT.Issuer))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		log.Info("shutting down")
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
