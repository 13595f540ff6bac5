package main

import (
	"net/http"
)

type builderExecuteRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// handleBuilderExecute starts a standard block in the background and
// returns its execution id immediately; the caller polls
// GET /host/builder/execution/{id}/status for the outcome. Use this
// over POST /execute/blocks when a block may run long enough that the
// caller would rather not hold the connection open.
func (h *hostServer) handleBuilderExecute(w http.ResponseWriter, r *http.Request) {
	var req builderExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := h.asyncBlocks.StartAsync(r.Context(), req.Command, req.Params)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"execution_id": id, "status": "running"})
}

func (h *hostServer) handleBuilderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec := h.asyncBlocks.Status(id)
	if rec == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}
