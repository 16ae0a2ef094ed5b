package adminauth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// ActorHeader optionally names the operator behind an admin token.
const ActorHeader = "X-Admin-User"

// Middleware wires admin authorization for HTTP handlers.
type Middleware struct {
	Authorizer Authorizer
	Logger     *slog.Logger
}

// RequireAdmin rejects requests that do not carry a valid admin token.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Authorizer == nil {
			httpx.RespondError(w, ErrInvalidToken)
			return
		}
		actor, err := m.Authorizer.Authorize(r.Context(), bearerToken(r), r.Header.Get(ActorHeader))
		if err != nil {
			if m.Logger != nil && !errors.Is(err, ErrMissingToken) {
				m.Logger.Warn("admin authorization failed",
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
					slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		if !actor.IsAdmin {
			httpx.RespondError(w, ErrInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
