package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/web/middleware"
)

// withActor resolves the X-Username header to a staff member and stores it
// in the request context. Requests without the header run anonymously; an
// unknown username is rejected.
func (s *Server) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(middleware.UsernameHeader))
		if username == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := s.store.FindByUsername(r.Context(), username)
		if errors.Is(err, core.ErrStaffNotFound) {
			s.respondError(w, r, err, http.StatusUnauthorized)
			return
		}
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}

		ctx := core.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
