package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse/gatehouse/internal/platform/httpx"
)

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAny("roles.index")).Get("/", h.listRoles)
	r.With(h.guard.RequireAny("roles.show")).Get("/{roleID}", h.getRole)
	r.With(h.guard.RequireAny("roles.store")).Post("/", h.createRole)
	r.With(h.guard.RequireAny("roles.update")).Put("/{roleID}", h.updateRole)
	r.With(h.guard.RequireAny("roles.assign")).Post("/assign", h.assignRole)
}

// MountPermissionRoutes registers the permission catalog route.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.With(h.guard.RequireAny("permissions.index")).Get("/", h.listPermissions)
}

type roleRequest struct {
	Name          string  `json:"name" validate:"required"`
	PermissionIDs []int64 `json:"permissionIds"`
}

type assignRoleRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type permissionResponse struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	RouteName string `json:"routeName"`
}

type roleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Permissions []permissionResponse `json:"permissions"`
}

func toRoleResponse(role Role) roleResponse {
	resp := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: make([]permissionResponse, 0, len(role.Permissions)),
	}
	for _, perm := range role.Permissions {
		resp.Permissions = append(resp.Permissions, permissionResponse{
			Name:      perm.Name,
			Category:  perm.Category,
			RouteName: perm.RouteName,
		})
	}
	return resp
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.OK(w, http.StatusOK, "roles fetched successfully", out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid role id")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get role", err)
		return
	}
	httpx.OK(w, http.StatusOK, "role fetched successfully", toRoleResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "name is required")
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.PermissionIDs)
	if err != nil {
		h.fail(w, r, "create role", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "role created successfully", toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid role id")
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "name is required")
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.PermissionIDs)
	if err != nil {
		h.fail(w, r, "update role", err)
		return
	}
	httpx.OK(w, http.StatusOK, "role updated successfully", toRoleResponse(role))
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "userId and roleId are required")
		return
	}
	if err := h.service.AssignRole(r.Context(), req.UserID, req.RoleID); err != nil {
		h.fail(w, r, "assign role", err)
		return
	}
	httpx.OK(w, http.StatusOK, "role assigned to user successfully", nil)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, "list permissions", err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, perm := range perms {
		out = append(out, permissionResponse{Name: perm.Name, Category: perm.Category, RouteName: perm.RouteName})
	}
	httpx.OK(w, http.StatusOK, "permissions fetched successfully", out)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
