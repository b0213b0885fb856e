package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erdemdnmz2/WebQuery/internal/registry"
	"github.com/erdemdnmz2/WebQuery/internal/service"
)

type AdminHandler struct {
	workflow *service.ApprovalWorkflow
	registry *registry.Registry
}

func NewAdminHandler(workflow *service.ApprovalWorkflow, reg *registry.Registry) *AdminHandler {
	return &AdminHandler{workflow: workflow, registry: reg}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/approvals", h.PendingApprovals)
	r.Get("/admin/approvals/{id}/preview", h.Preview)
	r.Post("/admin/approvals/{id}/approve", h.Approve)
	r.Post("/admin/approvals/{id}/reject", h.Reject)
	r.Post("/admin/databases", h.AddDatabase)
}

func (h *AdminHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	items, err := h.workflow.Pending()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Preview runs the pending query under the admin's own credentials so the
// decision can be made against real output. The workspace status is untouched.
func (h *AdminHandler) Preview(w http.ResponseWriter, r *http.Request) {
	admin := UserFromContext(r.Context())
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	result, err := h.workflow.Preview(r.Context(), id, admin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type approveRequest struct {
	ShowResults bool `json:"show_results"`
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	var req approveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
			return
		}
	}

	if err := h.workflow.Approve(r.Context(), id, req.ShowResults); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Reject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type addDatabaseRequest struct {
	Server     string `json:"servername"`
	Database   string `json:"database_name"`
	Technology string `json:"technology"`
}

func (h *AdminHandler) AddDatabase(w http.ResponseWriter, r *http.Request) {
	var req addDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
		return
	}
	if req.Server == "" || req.Database == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "servername and database_name are required", Reason: "bad_request"})
		return
	}

	if err := h.registry.AddDatabase(req.Server, req.Database, req.Technology); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}
