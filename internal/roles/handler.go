package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder httpx.Responder
	validate  *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, responder: responder, validate: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers role routes. Callers must mount them behind Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.ResourceRole, shared.ActionRead))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
		r.Get("/{id}/permissions", h.rolePermissions)
	})
	r.With(h.rbac.RequirePermission(shared.ResourceRole, shared.ActionCreate)).Post("/", h.createRole)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.ResourceRole, shared.ActionUpdate))
		r.Put("/{id}", h.updateRole)
		r.Post("/{id}/permissions", h.grantPermissions)
		r.Delete("/{id}/permissions", h.revokePermissions)
	})
	r.With(h.rbac.RequirePermission(shared.ResourceRole, shared.ActionDelete)).Delete("/{id}", h.deleteRole)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListRoles(r.Context(), httpx.PageQuery(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "roles retrieved", page)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "role retrieved", role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("role created", slog.Int64("role_id", role.ID), slog.String("name", role.Name))
	h.responder.Created(w, "role created", role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var req UpdateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "role updated", role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("role deleted", slog.Int64("role_id", id))
	h.responder.OK(w, "role deleted", nil)
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	view, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "role permissions retrieved", view)
}

func (h *Handler) grantPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var req PermissionIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.GrantPermissions(r.Context(), id, req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("permissions granted", slog.Int64("role_id", id), slog.Any("permission_ids", req.PermissionIDs))
	h.responder.OK(w, "permissions granted", view)
}

func (h *Handler) revokePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var req PermissionIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.RevokePermissions(r.Context(), id, req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("permissions revoked", slog.Int64("role_id", id), slog.Any("permission_ids", req.PermissionIDs))
	h.responder.OK(w, "permissions revoked", view)
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
