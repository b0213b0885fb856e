package api

import (
	"encoding/json"
	"net/http"

	"github.com/erdemdnmz2/WebQuery/internal/registry"
	"github.com/erdemdnmz2/WebQuery/internal/service"
)

// QueryHandler exposes the server list and ad-hoc query submission.
type QueryHandler struct {
	workflow *service.ApprovalWorkflow
	registry *registry.Registry
}

func NewQueryHandler(workflow *service.ApprovalWorkflow, reg *registry.Registry) *QueryHandler {
	return &QueryHandler{workflow: workflow, registry: reg}
}

func (h *QueryHandler) ListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ListServers())
}

type executeRequest struct {
	Server   string `json:"servername"`
	Database string `json:"database_name"`
	Query    string `json:"query"`
}

// Execute submits a query. A risky query is not an error: the response says
// it was routed for approval and where it landed.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required", Reason: "bad_request"})
		return
	}

	result, err := h.workflow.Submit(r.Context(), user, req.Server, req.Database, req.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Executed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}
