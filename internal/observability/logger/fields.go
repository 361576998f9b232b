package logger

import (
	"time"

	"github.com/dropDatabas3/crowdauth/internal/util"
	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - CROWD
// =================================================================================

// Username identifica al principal. Es la clave primaria en Crowd, no un secreto.
func Username(v string) zap.Field { return zap.String("username", v) }

// Token loguea un token de sesión de Crowd enmascarado.
func Token(v string) zap.Field { return zap.String("token", util.MaskToken(v)) }

// Action es el nombre lógico de la llamada REST a Crowd (ej: "get_session").
func Action(v string) zap.Field { return zap.String("action", v) }

// Attempt es el número de intento (1-based) dentro del loop de reintentos.
func Attempt(v int) zap.Field { return zap.Int("attempt", v) }

// Reason es el código de error máquina devuelto por Crowd.
func Reason(v string) zap.Field { return zap.String("reason", v) }

// Payload es el cuerpo crudo de una respuesta inesperada, para diagnóstico.
func Payload(b []byte) zap.Field { return zap.ByteString("payload", b) }

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
