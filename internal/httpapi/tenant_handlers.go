package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cerbero.org/internal/audit"
	"cerbero.org/internal/auth"
)

const adminRole = "Admin"

type createTenantRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Domain      string `json:"domain"`
}

type updateTenantRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Domain      *string `json:"domain"`
}

func (a *API) handleTenants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tenants, err := a.tenants.List(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
	case http.MethodPost:
		if !a.ensureRole(w, r, adminRole) {
			return
		}
		var req createTenantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		actor, _ := auth.UserIDFromContext(r.Context())
		tenant, err := a.tenants.Create(r.Context(), auth.NewTenant{
			Name:        req.Name,
			Description: req.Description,
			Domain:      req.Domain,
			CreatedBy:   actor,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "tenant.create", map[string]any{
			"tenant_id": tenant.ID,
			"name":      tenant.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/tenants/%s", tenant.ID))
		writeJSON(w, http.StatusCreated, tenant)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTenantResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/tenants/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.handleTenantByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "users":
		a.handleTenantUsers(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleTenantByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		tenant, err := a.tenants.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	case http.MethodPut:
		if !a.ensureRole(w, r, adminRole) {
			return
		}
		var req updateTenantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		actor, _ := auth.UserIDFromContext(r.Context())
		tenant, err := a.tenants.Update(r.Context(), id, auth.TenantUpdate{
			Name:        req.Name,
			Description: req.Description,
			Domain:      req.Domain,
			UpdatedBy:   actor,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "tenant.update", map[string]any{
			"tenant_id": tenant.ID,
		})
		writeJSON(w, http.StatusOK, tenant)
	case http.MethodDelete:
		if !a.ensureRole(w, r, adminRole) {
			return
		}
		if err := a.tenants.Delete(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "tenant.delete", map[string]any{
			"tenant_id": id,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleTenantUsers(w http.ResponseWriter, r *http.Request, tenantID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.users.ListByTenant(r.Context(), tenantID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
