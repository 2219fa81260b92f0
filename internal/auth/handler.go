package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	responder      httpx.Responder
	validate       *validator.Validate
	rbac           rbac.Middleware
	superAdminRole string
	loginLimiter   func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. loginLimiter may be nil.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac rbac.Middleware, superAdminRole string, loginLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		responder:      responder,
		validate:       httpx.NewValidator(),
		rbac:           rbac,
		superAdminRole: superAdminRole,
		loginLimiter:   loginLimiter,
	}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimiter != nil {
			r.Use(h.loginLimiter)
		}
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Post("/logout", h.handleLogout)
		r.Post("/change-password", h.handleChangePassword)
		r.Get("/me", h.handleMe)
		r.With(h.rbac.RequireRole(h.superAdminRole)).Post("/signup", h.handleSignup)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			h.logger.Info("login failed", slog.String("email", shared.NormalizeEmail(req.Email)))
		}
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("login succeeded", slog.Int64("user_id", result.User.ID))
	h.responder.OK(w, "login successful", result)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "token refreshed", result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.Unauthenticatedf("authentication required"))
		return
	}
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Logout(r.Context(), identity.UserID, req.RefreshToken); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "logged out", nil)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("user signed up", slog.Int64("user_id", user.ID))
	h.responder.Created(w, "user created", user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.Unauthenticatedf("authentication required"))
		return
	}
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), identity.UserID, req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("password changed", slog.Int64("user_id", identity.UserID))
	h.responder.OK(w, "password changed", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, shared.Unauthenticatedf("authentication required"))
		return
	}
	profile, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "profile retrieved", profile)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.responder.Error(w, r, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		h.responder.Error(w, r, httpx.ValidationError(err))
		return false
	}
	return true
}
