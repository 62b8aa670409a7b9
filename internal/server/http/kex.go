package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/cryptox"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// KexHandler serves POST /v1/kex: X25519 key exchange establishing a shared
// secret for a client-chosen session id.
type KexHandler struct {
	KeyExchangeService *service.KeyExchangeService
}

func (h *KexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req api.KeyExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.ID == "" || req.PubKey == "" {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	clientPublic, err := base64.StdEncoding.DecodeString(req.PubKey)
	if err != nil || len(clientPublic) != cryptox.KeySize {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	serverPublic, err := h.KeyExchangeService.Exchange(req.ID, clientPublic)
	if err != nil {
		log.Error("key exchange failed", "err", err)
		api.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, api.KeyExchangeResponse{
		PubKey: base64.StdEncoding.EncodeToString(serverPublic),
	})
}
