package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bodega/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Log      *zap.Logger
	Sessions *Sessions
	Password *PasswordVerifier

	// LoginLimiter throttles /login per client IP when set.
	LoginLimiter *kit.IPRateLimiter
}

func (s *Server) Register(r chi.Router) {
	if s.LoginLimiter != nil {
		r.With(s.LoginLimiter.Middleware).Post("/login", s.handleLogin)
		return
	}
	r.Post("/login", s.handleLogin)
}

// Gate is the middleware guarding mutating routes.
func (s *Server) Gate() func(http.Handler) http.Handler {
	return RequireToken(s.Sessions)
}

type loginReq struct {
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "json inválido", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Password.Verify(req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			kit.WriteError(w, r, http.StatusUnauthorized, "contraseña incorrecta", nil)
			return
		}
		s.logger().Error("password verify", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "error interno", nil)
		return
	}

	tok, err := s.Sessions.Issue()
	if err != nil {
		s.logger().Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "error interno", nil)
		return
	}

	s.logger().Info("admin session issued", zap.Int("sessions", s.Sessions.Len()))
	kit.WriteJSON(w, http.StatusOK, loginResp{Token: tok})
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
