package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/cryptox"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// AuthHandler serves POST /v1/auth/login and POST /v1/auth/signup. Both take
// an AuthRequest whose payload is encrypted under the session secret from a
// prior key exchange, and both return the bound username plus the first
// session token in the x-auth response header.
type AuthHandler struct {
	AuthService *service.AuthService
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.AuthService.Login)
}

func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.AuthService.Signup)
}

func (h *AuthHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, req api.AuthRequest) (string, string, error),
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req api.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.ID == "" || req.IV == "" || req.Data == "" {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	username, token, err := fn(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials),
			errors.Is(err, service.ErrUsernameImmutable),
			errors.Is(err, service.ErrUsernameTaken):
			// These messages are part of the client contract.
			api.Unauthorized(err.Error()).WriteError(w)
		case errors.Is(err, cryptox.ErrDecode):
			api.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrInvalidToken):
			// Unknown session id: the client must redo the key exchange.
			log.Warn("auth attempt without established session", "session", req.ID)
			api.ErrUnauthorized.WriteError(w)
		default:
			log.Error("auth failed", "err", err)
			api.ErrServerError.WriteError(w)
		}
		return
	}

	w.Header().Set(api.HeaderAuthToken, token)
	w.Header().Set(api.HeaderAuthState, service.FreshnessOK)
	httpx.WriteJSON(w, http.StatusOK, api.AuthResponse{Username: username})
}
