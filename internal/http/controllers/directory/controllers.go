// Package directory expone lookups de usuarios y roles contra Crowd.
package directory

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/crowdauth/internal/http/dto/directory"
	sessiondto "github.com/dropDatabas3/crowdauth/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/go-chi/chi/v5"
)

// Directory es el subconjunto de *auth.Engine que usan estos endpoints.
type Directory interface {
	UsernamesByRole(ctx context.Context, role string) ([]string, error)
	UserByUsername(ctx context.Context, username string, expandAttributes bool) (*principal.Principal, error)
}

type Controller struct {
	dir Directory
}

func NewController(dir Directory) *Controller {
	return &Controller{dir: dir}
}

// RoleMembers maneja GET /v1/directory/roles/{role}/users.
func (c *Controller) RoleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role := strings.TrimSpace(chi.URLParam(r, "role"))
	if role == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("role"))
		return
	}

	users, err := c.dir.UsernamesByRole(ctx, role)
	if err != nil {
		logger.From(ctx).Warn("role members lookup failed",
			logger.Op("DirectoryController.RoleMembers"),
			logger.String("role", role),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, directory.RoleMembersResponse{Role: role, Users: users})
}

// User maneja GET /v1/directory/users/{username}?attributes=true.
func (c *Controller) User(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username"))
		return
	}
	expand, _ := strconv.ParseBool(r.URL.Query().Get("attributes"))

	p, err := c.dir.UserByUsername(ctx, username, expand)
	if err != nil {
		logger.From(ctx).Info("user lookup failed",
			logger.Op("DirectoryController.User"),
			logger.Username(username),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sessiondto.FromPrincipal(*p))
}
