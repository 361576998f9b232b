// Package logger provides the zap logger shared by crowdauth components.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global, inicializada con Init() desde main.
//   - Context Scoping: los middlewares inyectan un logger con request_id y
//     username; servicios y el cliente de Crowd lo recuperan con From(ctx).
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Secretos: nunca se loguean passwords; los tokens de sesión de Crowd
//     pasan siempre por Token(), que los enmascara.
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("crowd"), logger.Op("UserByToken"))
//	log.Warn("unexpected response", logger.Action("get_session"), logger.Status(502))
package logger
