package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erdemdnmz2/WebQuery/internal/service"
)

type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
	workflow   *service.ApprovalWorkflow
}

func NewWorkspaceHandler(workspaces *service.WorkspaceService, workflow *service.ApprovalWorkflow) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, workflow: workflow}
}

func (h *WorkspaceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/workspaces", h.Create)
	r.Get("/workspaces", h.List)
	r.Get("/workspaces/{id}", h.Get)
	r.Put("/workspaces/{id}", h.Update)
	r.Delete("/workspaces/{id}", h.Delete)
	r.Post("/workspaces/{id}/execute", h.Execute)
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req service.WorkspaceCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
		return
	}
	if req.Name == "" || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and query are required", Reason: "bad_request"})
		return
	}

	workspace, err := h.workspaces.Create(user.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "workspace_id": workspace.ID})
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	list, err := h.workspaces.ListForUser(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	detail, err := h.workspaces.Get(id, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type workspaceUpdateRequest struct {
	Query string `json:"query"`
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	var req workspaceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required", Reason: "bad_request"})
		return
	}

	if err := h.workspaces.UpdateQuery(id, user.ID, req.Query); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	if err := h.workspaces.Delete(id, user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Execute runs an admin-approved workspace query as its owner.
func (h *WorkspaceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}

	result, err := h.workflow.ExecuteApproved(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func workspaceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid workspace id", Reason: "bad_request"})
		return 0, false
	}
	return id, true
}
