// Package handler provides the HTTP handlers over the tenant registry store.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/apierrors"
	"github.com/jacobparis/registry-registry/internal/model"
	"github.com/jacobparis/registry-registry/internal/registry"
	"github.com/jacobparis/registry-registry/internal/resolver"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	store        *registry.Store
	resolver     *resolver.Resolver
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	store *registry.Store,
	res *resolver.Resolver,
	errorHandler *apierrors.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		store:        store,
		resolver:     res,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

type createTenantRequest struct {
	Subdomain   string `json:"subdomain"`
	Icon        string `json:"icon"`
	Registry    string `json:"registry"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type importTenantRequest struct {
	Subdomain   string `json:"subdomain"`
	Icon        string `json:"icon"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createTenantResponse struct {
	Status   string `json:"status"`
	Redirect string `json:"redirect"`
}

type ackResponse struct {
	Status string `json:"status"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// CreateTenant handles POST /api/tenants requests: tenant creation from an
// inline registry JSON document.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid JSON body", requestID)
		return
	}

	redirect, err := h.store.CreateTenant(r.Context(), registry.CreateTenantParams{
		ID:           req.Subdomain,
		Icon:         req.Icon,
		RegistryJSON: req.Registry,
		Name:         req.Name,
		Description:  req.Description,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", redirect)
	h.writeJSONResponse(w, http.StatusCreated, createTenantResponse{
		Status:   "ok",
		Redirect: redirect,
	})
}

// ImportTenant handles POST /api/tenants/import requests: tenant creation
// from a remote registry URL.
func (h *Handlers) ImportTenant(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req importTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid JSON body", requestID)
		return
	}

	redirect, err := h.store.CreateTenantFromURL(r.Context(), registry.CreateTenantFromURLParams{
		ID:          req.Subdomain,
		Icon:        req.Icon,
		URL:         req.URL,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", redirect)
	h.writeJSONResponse(w, http.StatusCreated, createTenantResponse{
		Status:   "ok",
		Redirect: redirect,
	})
}

// ListTenants handles GET /api/tenants requests: the administrative
// directory listing.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListTenants(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, summaries)
}

// GetTenant handles GET /api/tenants/{tenant} requests.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	tenantID := mux.Vars(r)["tenant"]

	tenant, err := h.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if tenant == nil {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeTenantNotFound, "registry not found", requestID)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, tenant)
}

// DeleteTenant handles DELETE /api/tenants/{tenant} requests. Deleting a
// nonexistent tenant is a success.
func (h *Handlers) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant"]

	if err := h.store.DeleteTenant(r.Context(), tenantID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, ackResponse{Status: "ok"})
}

// CreateComponent handles POST /api/tenants/{tenant}/components requests:
// a new component with no previous name.
func (h *Handlers) CreateComponent(w http.ResponseWriter, r *http.Request) {
	h.updateComponent(w, r, "")
}

// UpdateComponent handles PUT /api/tenants/{tenant}/components/{name}
// requests. The path segment is the component's current name; a different
// name in the body is a rename.
func (h *Handlers) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	h.updateComponent(w, r, mux.Vars(r)["name"])
}

func (h *Handlers) updateComponent(w http.ResponseWriter, r *http.Request, oldName string) {
	requestID := r.Header.Get("X-Request-ID")
	tenantID := mux.Vars(r)["tenant"]

	var component model.Component
	if err := json.NewDecoder(r.Body).Decode(&component); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid component JSON", requestID)
		return
	}

	if err := h.store.UpdateComponent(r.Context(), tenantID, oldName, component); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, ackResponse{Status: "ok"})
}

// GetComponent handles GET /api/tenants/{tenant}/components/{name} requests.
func (h *Handlers) GetComponent(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	vars := mux.Vars(r)

	component, err := h.store.GetComponent(r.Context(), vars["tenant"], vars["name"])
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if component == nil {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeComponentNotFound, "component not found", requestID)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, component)
}

// ComponentExists handles GET /api/tenants/{tenant}/components/{name}/exists
// requests: the existence probe callers use before renames.
func (h *Handlers) ComponentExists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	exists, err := h.store.ComponentExists(r.Context(), vars["tenant"], vars["name"])
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, existsResponse{Exists: exists})
}

// TenantRegistry handles GET /r on tenant subdomains: the full registry
// array, the document installer CLIs consume.
func (h *Handlers) TenantRegistry(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	tenantID := h.resolver.TenantFromRequest(r)
	if tenantID == "" {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeTenantNotFound, "no registry for this host", requestID)
		return
	}

	tenant, err := h.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if tenant == nil {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeTenantNotFound, "registry not found", requestID)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, tenant.Registry)
}

// TenantComponent handles GET /r/{item} on tenant subdomains: one
// component document, preferring the dedicated key with an aggregate
// fallback.
func (h *Handlers) TenantComponent(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	item := mux.Vars(r)["item"]

	tenantID := h.resolver.TenantFromRequest(r)
	if tenantID == "" {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeTenantNotFound, "no registry for this host", requestID)
		return
	}

	component, err := h.store.GetComponent(r.Context(), tenantID, item)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if component == nil {
		h.errorHandler.WriteNotFound(w, apierrors.ErrorCodeComponentNotFound, "component not found", requestID)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, component)
}

func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
