// Package server arma el handler HTTP completo a partir de la configuración.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	"github.com/dropDatabas3/crowdauth/internal/cache"
	"github.com/dropDatabas3/crowdauth/internal/config"
	"github.com/dropDatabas3/crowdauth/internal/crowd"
	"github.com/dropDatabas3/crowdauth/internal/http/controllers/directory"
	"github.com/dropDatabas3/crowdauth/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/crowdauth/internal/http/controllers/session"
	sessiondto "github.com/dropDatabas3/crowdauth/internal/http/dto/session"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	mw "github.com/dropDatabas3/crowdauth/internal/http/middlewares"
	"github.com/dropDatabas3/crowdauth/internal/http/router"
	"github.com/dropDatabas3/crowdauth/internal/metrics"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/dropDatabas3/crowdauth/internal/rate"
	"github.com/dropDatabas3/crowdauth/internal/rememberme"
	"github.com/dropDatabas3/crowdauth/internal/session"
	"github.com/thejerf/abtime"
)

// Options permite reemplazar piezas en tests.
type Options struct {
	Version string
	Clock   abtime.AbstractTime
	// Client reemplaza el cliente Crowd construido desde la config.
	Client auth.IdentityClient
	// Cache reemplaza el cache construido desde la config.
	Cache cache.Client
}

// NewCrowdClient construye el cliente REST desde la config.
func NewCrowdClient(cfg *config.Config) *crowd.Client {
	return crowd.New(crowd.Config{
		ApplicationName:     cfg.Crowd.ApplicationName,
		ApplicationPassword: cfg.Crowd.ApplicationPassword,
		ServiceURL:          cfg.Crowd.ServiceURL,
		ServiceURI:          cfg.Crowd.ServiceURI,
		ConnectTimeout:      cfg.ConnectTimeout(),
		ConnectionRetries:   cfg.Retries(),
	})
}

// NewEngine construye el motor de autenticación desde la config.
func NewEngine(cfg *config.Config, client auth.IdentityClient, clock abtime.AbstractTime) *auth.Engine {
	interval := cfg.RefreshInterval()
	return auth.NewEngine(auth.Config{
		Client:          client,
		Roles:           principal.NewRoleMapping(cfg.Crowd.RolesToGroups),
		RefreshInterval: &interval,
		Clock:           clock,
	})
}

// NewRememberMe construye el servicio de remember-me desde la config.
func NewRememberMe(cfg *config.Config, clock abtime.AbstractTime) *rememberme.Service {
	httpOnly := true
	if cfg.RememberMe.HTTPOnly != nil {
		httpOnly = *cfg.RememberMe.HTTPOnly
	}
	return rememberme.NewService(rememberme.Options{
		Name:             cfg.RememberMe.Name,
		Lifetime:         cfg.RememberMeLifetime(),
		Path:             cfg.RememberMe.Path,
		Domain:           cfg.RememberMe.Domain,
		SameSite:         cfg.SSO.SameSite,
		Secure:           cfg.RememberMe.Secure,
		HTTPOnly:         httpOnly,
		AlwaysRememberMe: cfg.RememberMe.AlwaysRememberMe,
		Parameter:        cfg.RememberMe.Parameter,
		Secret:           cfg.RememberMe.Signature,
	}, clock)
}

// Build devuelve el handler y un cleanup que cierra el cache.
func Build(ctx context.Context, cfg *config.Config, opts Options) (http.Handler, func() error, error) {
	log := logger.From(ctx).With(logger.Component("wiring"))

	clock := opts.Clock
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	client := opts.Client
	if client == nil {
		cc := NewCrowdClient(cfg)
		log.Info("crowd client ready", logger.String("base_url", cc.BaseURL()))
		client = cc
	}
	engine := NewEngine(cfg, client, clock)

	c := opts.Cache
	if c == nil {
		var err error
		c, err = cache.New(ctx, cache.Config{
			Driver:   cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cache: %w", err)
		}
	}

	sso := mw.NewSSO(mw.SSOConfig{
		Auth:       engine,
		Sessions:   session.NewCacheStore(c, cfg.SessionTTL()),
		RememberMe: NewRememberMe(cfg, clock),
		SSOCookie: helpers.CookieSpec{
			Name:     cfg.SSO.CookieName,
			Domain:   "." + strings.TrimPrefix(cfg.SSO.CookieDomain, "."),
			SameSite: cfg.SSO.SameSite,
			Secure:   cfg.SSO.Secure,
			HTTPOnly: true,
		},
		SessionCookie: helpers.CookieSpec{
			Name:     cfg.Session.CookieName,
			SameSite: cfg.Session.SameSite,
			Secure:   cfg.Session.Secure,
			HTTPOnly: true,
		},
		SessionTTL: cfg.SessionTTL(),
		Clock:      clock,
	})

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rc, ok := cache.Raw(c); ok {
			limiter = rate.NewRedisLimiter(rc, "rl:login:", cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		} else {
			limiter = rate.NewMemoryLimiter("rl:login:", cfg.Rate.Login.Limit, cfg.LoginRateWindow(), clock)
		}
	}

	proxies, err := helpers.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	if err := metrics.Register(nil); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}

	postOnly := true
	if cfg.Login.PostOnly != nil {
		postOnly = *cfg.Login.PostOnly
	}

	h := router.New(router.Deps{
		SSO: sso,
		Session: sessionctrl.NewController(sso, sessiondto.LoginConfig{
			UsernameParameter: cfg.Login.UsernameParameter,
			PasswordParameter: cfg.Login.PasswordParameter,
			PostOnly:          postOnly,
		}),
		Directory:    directory.NewController(engine),
		Health:       &health.Controller{Version: opts.Version},
		AdminRole:    cfg.Directory.AdminRole,
		LoginLimiter: limiter,
		Metrics:      metrics.Handler(),

		TrustedProxies: proxies,
	})
	return h, c.Close, nil
}
