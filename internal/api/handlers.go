package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/loader"
	"github.com/starford/modeltree/internal/treeservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *treeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *treeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// nameParam returns the required ?name= query value, answering 400 itself
// when it is absent.
func nameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return "", false
	}
	return name, true
}

// Root handles GET /api/root.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{Root: h.svc.RootName(r.Context())})
}

// Snapshot handles GET /api/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, SnapshotResponse{Root: snap.Root, Models: snap.Models})
}

// GetNode handles GET /api/nodes?name=.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	node, err := h.svc.GetNode(r.Context(), name)
	if err != nil {
		writeError(w, "get_node", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Children handles GET /api/nodes/children?name=.
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	children, err := h.svc.Children(r.Context(), name)
	if err != nil {
		writeError(w, "get_children", err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{Name: name, Children: children})
}

// Algorithm handles GET /api/nodes/algorithm?name=.
func (h *Handler) Algorithm(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	alg, err := h.svc.Algorithm(r.Context(), name)
	if err != nil {
		writeError(w, "get_algorithm", err)
		return
	}
	writeJSON(w, http.StatusOK, AlgorithmResponse{Name: name, Algorithm: alg})
}

// RefCount handles GET /api/nodes/refcount?name=. A missing model answers 0.
func (h *Handler) RefCount(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RefCountResponse{Name: name, RefCount: h.svc.RefCount(r.Context(), name)})
}

// Rename handles POST /api/nodes/rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OldName == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("old_name and new_name are required"))
		return
	}
	res, err := h.svc.Rename(r.Context(), req.OldName, req.NewName)
	if err != nil {
		writeError(w, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AddNode handles POST /api/nodes/add.
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Parent == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("parent is required"))
		return
	}
	name, err := h.svc.AddNode(r.Context(), req.Parent)
	if err != nil {
		writeError(w, "add_node", err)
		return
	}
	writeJSON(w, http.StatusCreated, AddNodeResponse{Name: name})
}

// DeleteNode handles POST /api/nodes/delete.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	var req DeleteNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Parent == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("parent and name are required"))
		return
	}
	res, err := h.svc.DeleteNode(r.Context(), req.Parent, req.Name)
	if err != nil {
		writeError(w, "delete_node", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ToggleKind handles POST /api/nodes/toggle.
func (h *Handler) ToggleKind(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	res, err := h.svc.ToggleKind(r.Context(), req.Name)
	if err != nil {
		writeError(w, "toggle_node_kind", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateAlgorithm handles PUT /api/nodes/algorithm.
func (h *Handler) UpdateAlgorithm(w http.ResponseWriter, r *http.Request) {
	var req AlgorithmRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.svc.UpdateAlgorithm(r.Context(), req.Name, req.Algorithm); err != nil {
		writeError(w, "update_algorithm", err)
		return
	}
	writeJSON(w, http.StatusOK, AlgorithmResponse{Name: req.Name, Algorithm: req.Algorithm})
}

// Log handles POST /api/log.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.LogMessage(r.Context(), req.Level, req.Message); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Journal handles GET /api/journal.
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, err := h.svc.Journal(r.Context(), journal.Query{
		Op:     q.Get("op"),
		Target: q.Get("target"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("list journal failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Reload handles POST /api/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reload(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, treeservice.ErrNoSource):
		writeJSON(w, http.StatusNotImplemented, errorBody(err.Error()))
	case errors.Is(err, loader.ErrInvalidModel), errors.Is(err, loader.ErrNoRoot):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error("reload failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Mermaid handles GET /api/graph/mermaid.
func (h *Handler) Mermaid(w http.ResponseWriter, r *http.Request) {
	writeText(w, "text/plain; charset=utf-8", h.svc.Mermaid(r.Context()))
}

// Outline handles GET /api/outline.
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	writeText(w, "text/markdown; charset=utf-8", h.svc.Outline(r.Context()))
}
