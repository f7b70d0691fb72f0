// resource-server es una API de ejemplo protegida con tokens del IdP:
// valida firmas contra el JWKS remoto y decide acceso por authorities.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dropDatabas3/mockidp/internal/authz"
	"github.com/dropDatabas3/mockidp/internal/config"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

func main() {
	var (
		flagConfig  = flag.String("config", "configs/config.yaml", "ruta a config.yaml")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env (opcional)")
	)
	flag.Parse()
	_ = godotenv.Load(*flagEnvFile)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "resource-server",
		Version:     cfg.App.Version,
	})
	log := logger.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := authz.ParseRoleCase(cfg.ResourceServer.RealmRoleCase)
	if err != nil {
		log.Fatal("config", logger.Err(err))
	}
	v, err := authz.NewRemoteVerifier(logger.ToContext(ctx, log), authz.RemoteConfig{
		JWKSURL:  cfg.ResourceServer.JWKSURL,
		Issuer:   cfg.ResourceServer.Issuer,
		Audience: cfg.ResourceServer.Audience,
	})
	if err != nil {
		log.Fatal("verifier", logger.Err(err))
	}

	srv := &http.Server{
		Addr:         cfg.ResourceServer.Addr,
		Handler:      newRouter(v, authz.Mapper{ClientID: cfg.ResourceServer.ClientID, RealmRoleCase: rc}),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("resource server listening",
		zap.String("addr", srv.Addr),
		zap.String("jwks_url", cfg.ResourceServer.JWKSURL),
		zap.String("role_case", rc.String()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
