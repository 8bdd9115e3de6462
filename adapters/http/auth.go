package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/pkg/jsonapi"
)

// authorizer is implemented by roots that can check their own token.
type authorizer interface {
	Authorized(token string) bool
}

// AuthMiddleware admits requests bearing the admin token in an
// "Authorization: Bearer <token>" header.
//
// The token is Config.Token. Without one, the running root checks the
// token itself, so nothing is admitted while the system is stopped.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			jsonapi.WriteError(w, jsonapi.ErrUnauthorized("bearer token required"))
			return
		}
		if !h.authorized(token) {
			h.logger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("rejected admin token")
			writeError(w, errs.Forbidden.Errorf("token is invalid"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authorized(token string) bool {
	if h.cfg.Token != "" {
		return subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.Token)) == 1
	}
	root, err := h.root()
	if err != nil {
		return false
	}
	a, ok := root.(authorizer)
	return ok && a.Authorized(token)
}
