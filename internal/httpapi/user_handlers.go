package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cerbero.org/internal/audit"
	"cerbero.org/internal/auth"
)

type createUserRequest struct {
	TenantID       string   `json:"tenant_id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	Picture        string   `json:"picture"`
	ExternalID     string   `json:"external_id"`
	SignInProvider string   `json:"sign_in_provider"`
	EmailVerified  bool     `json:"email_verified"`
	Roles          []string `json:"roles"`
}

type updateUserRequest struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Password       *string  `json:"password"`
	Picture        *string  `json:"picture"`
	ExternalID     *string  `json:"external_id"`
	SignInProvider *string  `json:"sign_in_provider"`
	EmailVerified  *bool    `json:"email_verified"`
	Roles          []string `json:"roles"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.users.List(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.Create(r.Context(), auth.NewUser{
			TenantID:       req.TenantID,
			Name:           req.Name,
			Email:          req.Email,
			Password:       req.Password,
			Picture:        req.Picture,
			ExternalID:     req.ExternalID,
			SignInProvider: req.SignInProvider,
			EmailVerified:  req.EmailVerified,
			Roles:          req.Roles,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
			"tenant_id": user.TenantID,
			"user_id":   user.ID,
			"email":     user.Email,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := a.users.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.Update(r.Context(), id, auth.UserUpdate{
			Name:           req.Name,
			Email:          req.Email,
			Password:       req.Password,
			Picture:        req.Picture,
			ExternalID:     req.ExternalID,
			SignInProvider: req.SignInProvider,
			EmailVerified:  req.EmailVerified,
			Roles:          req.Roles,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.update", map[string]any{
			"tenant_id": user.TenantID,
			"user_id":   user.ID,
		})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.users.Delete(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{
			"user_id": id,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
