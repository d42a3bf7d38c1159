package http

import (
	"context"
	"net"
	"net/http"

	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/services"
)

// Authenticator is the auth flow surface. *services.AuthService satisfies it.
type Authenticator interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.AuthResponse, error)
	Login(ctx context.Context, req services.LoginRequest, clientIP string) (*services.AuthResponse, error)
	Refresh(ctx context.Context, req services.RefreshRequest) (*services.AuthResponse, error)
}

type authHandler struct {
	auth Authenticator
	log  logging.Logger
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.Login(r.Context(), req, clientIP(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req services.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.Refresh(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
