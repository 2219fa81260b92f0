package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	responder      httpx.Responder
	validate       *validator.Validate
	rbac           rbac.Middleware
	superAdminRole string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac rbac.Middleware, superAdminRole string) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		responder:      responder,
		validate:       httpx.NewValidator(),
		rbac:           rbac,
		superAdminRole: superAdminRole,
	}
}

// MountRoutes registers user routes. Callers must mount them behind Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.ResourceUser, shared.ActionRead))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.With(h.rbac.RequireRole(h.superAdminRole)).Post("/", h.createUser)
	r.With(h.rbac.RequirePermission(shared.ResourceUser, shared.ActionUpdate)).Put("/{id}", h.updateUser)
	r.With(h.rbac.RequirePermission(shared.ResourceUser, shared.ActionDelete)).Delete("/{id}", h.deleteUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListUsers(r.Context(), httpx.PageQuery(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "users retrieved", page)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "user retrieved", user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.Error(w, r, httpx.ValidationError(err))
		return
	}
	user, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", user.ID))
	h.responder.Created(w, "user created", user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.Error(w, r, httpx.ValidationError(err))
		return
	}
	user, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "user updated", user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id))
	h.responder.OK(w, "user deleted", nil)
}
