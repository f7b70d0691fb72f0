package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Route(v string) zap.Field     { return zap.String("route", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// DurationMs registra la latencia en milisegundos (más fácil de agregar que zap.Duration).
func DurationMs(d time.Duration) zap.Field { return zap.Int64("duration_ms", d.Milliseconds()) }

// ---- OAuth / tokens ----

// ClientID identifica el cliente OAuth que hace el request.
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Subject es el "sub" del principal. Nunca loguear el token en sí.
func Subject(v string) zap.Field { return zap.String("sub", v) }

func GrantType(v string) zap.Field    { return zap.String("grant_type", v) }
func ResponseType(v string) zap.Field { return zap.String("response_type", v) }
func Scope(v string) zap.Field        { return zap.String("scope", v) }
func KID(v string) zap.Field          { return zap.String("kid", v) }
func JTI(v string) zap.Field          { return zap.String("jti", v) }

// TokenKind distingue access | id | refresh | code en logs de emisión/revocación.
func TokenKind(v string) zap.Field { return zap.String("token_kind", v) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }

// Layer: controller | service | store.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// ---- Genéricos ----

func Count(v int) zap.Field             { return zap.Int("count", v) }
func Key(v string) zap.Field            { return zap.String("key", v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
