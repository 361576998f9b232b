// Package session guarda el principal autenticado del lado del host. El
// browser solo recibe un id opaco (cookie "sid"); el snapshot viaja en el
// cache (memoria o Redis) serializado como JSON.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/cache"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	tokens "github.com/dropDatabas3/crowdauth/internal/security/token"
)

const (
	DefaultCookieName = "sid"
	DefaultTTL        = 12 * time.Hour
	idBytes           = 32
	keyPrefix         = "sid:"
)

var ErrNotFound = errors.New("session: not found")

// Store persists principal snapshots by session id.
type Store interface {
	Get(ctx context.Context, id string) (principal.Principal, error)
	Save(ctx context.Context, id string, p principal.Principal) error
	Delete(ctx context.Context, id string) error
}

// NewID genera un id de sesión opaco (32 bytes, base64url).
func NewID() (string, error) {
	return tokens.GenerateOpaqueToken(idBytes)
}

// CacheStore implementa Store sobre un cache.Client.
type CacheStore struct {
	c   cache.Client
	ttl time.Duration
}

func NewCacheStore(c cache.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheStore{c: c, ttl: ttl}
}

// key nunca contiene el id en claro.
func key(id string) string {
	return keyPrefix + tokens.SHA256Base64URL(id)
}

func (s *CacheStore) Get(ctx context.Context, id string) (principal.Principal, error) {
	if id == "" {
		return principal.Principal{}, ErrNotFound
	}
	b, err := s.c.Get(ctx, key(id))
	if cache.IsNotFound(err) {
		return principal.Principal{}, ErrNotFound
	}
	if err != nil {
		return principal.Principal{}, fmt.Errorf("session: get: %w", err)
	}
	var p principal.Principal
	if err := json.Unmarshal(b, &p); err != nil {
		// snapshot corrupto: se trata como sesión inexistente
		_ = s.c.Delete(ctx, key(id))
		return principal.Principal{}, ErrNotFound
	}
	return p, nil
}

func (s *CacheStore) Save(ctx context.Context, id string, p principal.Principal) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.c.Set(ctx, key(id), b, s.ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.c.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
