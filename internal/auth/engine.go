package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/crowd"
	"github.com/dropDatabas3/crowdauth/internal/metrics"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/thejerf/abtime"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is how long a principal snapshot is trusted before
// it is re-fetched from Crowd.
const DefaultRefreshInterval = 600 * time.Second

// IdentityClient is the subset of *crowd.Client the engine needs.
type IdentityClient interface {
	CreateSession(ctx context.Context, username, password, remoteAddr string) (string, error)
	CreateSessionWithoutPassword(ctx context.Context, username, remoteAddr string) (string, error)
	UserByToken(ctx context.Context, token string) (*crowd.User, error)
	UserByName(ctx context.Context, username string, expandAttributes bool) (*crowd.User, error)
	GroupsForUser(ctx context.Context, username string) ([]string, error)
	UsersInGroup(ctx context.Context, group string) ([]string, error)
}

// Config configures an Engine.
type Config struct {
	Client          IdentityClient
	Roles           principal.RoleMapping
	// nil => DefaultRefreshInterval; 0 => re-fetch on every request.
	RefreshInterval *time.Duration
	Clock           abtime.AbstractTime
}

// Engine turns a Credential into an authenticated principal and keeps that
// principal fresh. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	client   IdentityClient
	roles    principal.RoleMapping
	interval time.Duration
	clock    abtime.AbstractTime
}

func NewEngine(cfg Config) *Engine {
	interval := DefaultRefreshInterval
	if cfg.RefreshInterval != nil {
		interval = max(*cfg.RefreshInterval, 0)
	}
	if cfg.Clock == nil {
		cfg.Clock = abtime.NewRealTime()
	}
	return &Engine{
		client:   cfg.Client,
		roles:    cfg.Roles,
		interval: interval,
		clock:    cfg.Clock,
	}
}

// RefreshInterval returns the configured staleness window.
func (e *Engine) RefreshInterval() time.Duration { return e.interval }

// Authenticate resolves cred. It returns ErrNoDecision for an empty
// credential and a *Failure for every other error.
//
//	Password   -> CreateSession                -> SSO path
//	RememberMe -> CreateSessionWithoutPassword -> SSO path
//	SSOToken   -> UserByToken -> GroupsForUser -> Principal
func (e *Engine) Authenticate(ctx context.Context, cred Credential, remoteAddr string) (*principal.Principal, error) {
	log := logger.From(ctx).With(logger.Component("auth"), zap.Object("credential", cred))

	if cred.Empty() {
		metrics.AuthDecisions.WithLabelValues(cred.Kind().String(), "no_decision").Inc()
		return nil, ErrNoDecision
	}

	var (
		token string
		err   error
	)
	switch cred.Kind() {
	case KindPassword:
		if cred.password == "" {
			err = &crowd.Error{Kind: crowd.KindInvalidCredentials, Message: "empty password"}
			break
		}
		token, err = e.client.CreateSession(ctx, strings.TrimSpace(cred.username), cred.password, remoteAddr)
	case KindRememberMe:
		token, err = e.client.CreateSessionWithoutPassword(ctx, strings.TrimSpace(cred.username), remoteAddr)
	case KindSSOToken:
		token = cred.token
	}

	var p principal.Principal
	if err == nil {
		p, err = e.load(ctx, token)
	}
	if err != nil {
		f := newFailure(err)
		e.logFailure(log, "authentication failed", f)
		metrics.AuthDecisions.WithLabelValues(cred.Kind().String(), f.Kind.String()).Inc()
		return nil, f
	}

	metrics.AuthDecisions.WithLabelValues(cred.Kind().String(), "ok").Inc()
	log.Debug("authenticated", logger.Username(p.Username), logger.Any("roles", p.Roles))
	return &p, nil
}

// load builds a fresh principal from an SSO token.
func (e *Engine) load(ctx context.Context, token string) (principal.Principal, error) {
	u, err := e.client.UserByToken(ctx, token)
	if err != nil {
		return principal.Principal{}, err
	}
	if !u.Active {
		return principal.Principal{}, inactive(u.Name)
	}

	roles, err := e.rolesFor(ctx, u.Name)
	if err != nil {
		return principal.Principal{}, err
	}

	p := principal.ApplyRemoteData(principal.Principal{}, u).WithRoles(roles)
	p.SessionToken = token
	p.LastRefreshedAt = e.clock.Now()
	return p, nil
}

// RefreshResult is the outcome of Refresh. When Refreshed is false Principal
// is the unchanged input.
type RefreshResult struct {
	Principal principal.Principal
	Refreshed bool
}

// Refresh re-fetches current when it is stale. Any failure yields an error
// wrapping ErrSessionInvalidated and the cause; the caller must then log the
// session out instead of keeping stale data.
func (e *Engine) Refresh(ctx context.Context, current principal.Principal) (RefreshResult, error) {
	now := e.clock.Now()
	if !principal.NeedsRefresh(current, e.interval, now) {
		metrics.PrincipalRefresh.WithLabelValues("skipped").Inc()
		return RefreshResult{Principal: current}, nil
	}

	log := logger.From(ctx).With(
		logger.Component("auth"),
		logger.Op("Refresh"),
		logger.Username(current.Username),
		logger.Token(current.SessionToken),
	)

	p, err := e.refresh(ctx, current)
	if err != nil {
		metrics.PrincipalRefresh.WithLabelValues("invalidated").Inc()
		e.logFailure(log, "principal refresh failed, invalidating session", newFailure(err))
		return RefreshResult{}, fmt.Errorf("%w: %w", ErrSessionInvalidated, err)
	}

	metrics.PrincipalRefresh.WithLabelValues("refreshed").Inc()
	log.Debug("principal refreshed", logger.Any("roles", p.Roles))
	return RefreshResult{Principal: p, Refreshed: true}, nil
}

func (e *Engine) refresh(ctx context.Context, current principal.Principal) (principal.Principal, error) {
	if current.SessionToken == "" {
		return principal.Principal{}, errors.New("principal has no session token")
	}

	u, err := e.client.UserByToken(ctx, current.SessionToken)
	if err != nil {
		return principal.Principal{}, err
	}
	if current.Username != "" && !strings.EqualFold(u.Name, current.Username) {
		return principal.Principal{}, &crowd.Error{
			Kind:    crowd.KindTokenInvalid,
			Action:  "get_session",
			Message: "session token belongs to another user",
		}
	}
	if !u.Active {
		return principal.Principal{}, inactive(u.Name)
	}

	roles, err := e.rolesFor(ctx, current.Username)
	if err != nil {
		return principal.Principal{}, err
	}

	p := principal.ApplyRemoteData(current, u).WithRoles(roles)
	p.LastRefreshedAt = e.clock.Now()
	return p, nil
}

// rolesFor maps the user's nested groups. No mapping means no groups call.
func (e *Engine) rolesFor(ctx context.Context, username string) ([]string, error) {
	if e.roles.Empty() {
		return []string{}, nil
	}
	groups, err := e.client.GroupsForUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return e.roles.MapGroups(groups), nil
}

func (e *Engine) logFailure(log *zap.Logger, msg string, f *Failure) {
	fields := []zap.Field{logger.String("kind", f.Kind.String()), logger.Err(f.Err)}

	var ce *crowd.Error
	if errors.As(f.Err, &ce) {
		fields = append(fields, logger.Action(ce.Action), logger.Status(ce.Status))
		if ce.Reason != "" {
			fields = append(fields, logger.Reason(ce.Reason))
		}
	}

	switch f.Kind {
	case crowd.KindUnexpectedServerResponse, crowd.KindAuthClientMisconfigured:
		if ce != nil {
			fields = append(fields, logger.Payload(ce.Payload))
		}
		log.Warn(msg, fields...)
	case crowd.KindServerUnavailable:
		log.Warn(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

func inactive(username string) error {
	return &crowd.Error{
		Kind:    crowd.KindInactiveAccount,
		Action:  "get_session",
		Message: "account " + username + " is inactive",
	}
}
