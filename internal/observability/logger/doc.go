// Package logger wraps zap with a process-wide base logger and request-scoped
// loggers carried in the context.
//
// Inicialización (main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "mockidp"})
//	defer logger.Sync()
//
// En services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Token"))
//	log.Info("token issued", logger.ClientID(clientID), logger.GrantType(gt))
//
// Los tokens, secretos y claves privadas nunca se loguean; como mucho el jti o el kid.
package logger
