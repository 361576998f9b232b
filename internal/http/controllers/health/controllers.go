// Package health contiene el controller de health check.
package health

import (
	"net/http"

	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
)

// Controller responde GET /healthz. No consulta a Crowd.
type Controller struct {
	Version string
}

func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}
	if c.Version != "" {
		w.Header().Set("X-Service-Version", c.Version)
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
