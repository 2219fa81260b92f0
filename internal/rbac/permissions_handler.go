package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// PermissionsHandler manages permission endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	responder httpx.Responder
	validate  *validator.Validate
	rbac      Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, responder httpx.Responder, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, responder: responder, validate: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers permission routes. Callers must mount them behind Authenticate.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.ResourcePermission, shared.ActionRead))
		r.Get("/", h.listPermissions)
		r.Get("/{id}", h.getPermission)
	})
	r.With(h.rbac.RequirePermission(shared.ResourcePermission, shared.ActionCreate)).Post("/", h.createPermission)
	r.With(h.rbac.RequirePermission(shared.ResourcePermission, shared.ActionUpdate)).Put("/{id}", h.updatePermission)
	r.With(h.rbac.RequirePermission(shared.ResourcePermission, shared.ActionDelete)).Delete("/{id}", h.deletePermission)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPermissions(r.Context(), httpx.PageQuery(r))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "permissions retrieved", page)
}

func (h *PermissionsHandler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "permission retrieved", perm)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.Error(w, r, httpx.ValidationError(err))
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("permission created", slog.Int64("permission_id", perm.ID), slog.String("name", perm.Name))
	h.responder.Created(w, "permission created", perm)
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var req UpdatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.Error(w, r, httpx.ValidationError(err))
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, "permission updated", perm)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("permission deleted", slog.Int64("permission_id", id))
	h.responder.OK(w, "permission deleted", nil)
}
