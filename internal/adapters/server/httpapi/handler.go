// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/kanmap/internal/adapters/server/common"
	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// ActorHeader names the request header that attributes mutations to a user.
const ActorHeader = "X-Kanmap-Actor"

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	board common.BoardService
	saver common.BoardSaver
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter. saver may be nil when no host bridge is configured.
func NewHandler(board common.BoardService, saver common.BoardSaver) *Handler {
	return &Handler{
		board: board,
		saver: saver,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    string(common.CodeUnavailable),
			Message: "board service is not configured",
		})
		return
	}
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		r = r.WithContext(app.WithActor(r.Context(), actor))
	}

	parts := splitPath(r.URL.Path)
	switch {
	case len(parts) == 1 && parts[0] == "board":
		h.only(w, r, http.MethodGet, h.handleBoard)
	case len(parts) == 1 && parts[0] == "nodes":
		h.only(w, r, http.MethodGet, h.handleNodes)
	case len(parts) == 1 && parts[0] == "mindmap":
		h.only(w, r, http.MethodGet, h.handleMindMap)
	case len(parts) == 1 && parts[0] == "columns":
		h.only(w, r, http.MethodPost, h.handleCreateColumn)
	case len(parts) == 2 && parts[0] == "columns":
		switch r.Method {
		case http.MethodPatch:
			h.handlePatchColumn(w, r, parts[1])
		case http.MethodDelete:
			h.handleDeleteColumn(w, r, parts[1])
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 3 && parts[0] == "columns" && parts[2] == "done":
		h.only(w, r, http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
			h.handleSetDoneColumn(w, r, parts[1])
		})
	case len(parts) == 1 && parts[0] == "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleListTasks(w, r)
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case len(parts) == 2 && parts[0] == "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleGetTask(w, r, parts[1])
		case http.MethodPut:
			h.handleReplaceTask(w, r, parts[1])
		case http.MethodPatch:
			h.handlePatchTask(w, r, parts[1])
		case http.MethodDelete:
			h.handleDeleteTask(w, r, parts[1])
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 3 && parts[0] == "tasks" && parts[2] == "drop":
		h.only(w, r, http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
			h.handleDropTask(w, r, parts[1])
		})
	case len(parts) == 3 && parts[0] == "tasks" && parts[2] == "parents":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			h.handleAvailableParents(w, r, parts[1])
		})
	case len(parts) == 2 && parts[0] == "sync" && parts[1] == "toggle":
		h.only(w, r, http.MethodPost, h.handleToggleSync)
	case len(parts) == 2 && parts[0] == "mindmap" && parts[1] == "visible":
		h.only(w, r, http.MethodPost, h.handleMindMapVisible)
	case len(parts) == 2 && parts[0] == "host" && parts[1] == "config":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.board.ExportConfig())
		case http.MethodPost:
			h.handleHostEvent(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case len(parts) == 1 && parts[0] == "save":
		h.only(w, r, http.MethodPost, h.handleSave)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    string(common.CodeNotFound),
			Message: "endpoint not found",
		})
	}
}

// only dispatches fn when the request uses method.
func (h *Handler) only(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		writeMethodNotAllowed(w, method)
		return
	}
	fn(w, r)
}

// handleBoard serves GET `/board?view=`.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, common.Board(h.board, view))
}

// handleNodes serves GET `/nodes?view=`.
func (h *Handler) handleNodes(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":  view,
		"nodes": h.board.Nodes(view, nil),
	})
}

// handleMindMap serves GET `/mindmap`.
func (h *Handler) handleMindMap(w http.ResponseWriter, _ *http.Request) {
	nodes, edges := h.board.MindMapNodes()
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"edges": edges,
	})
}

// handleCreateColumn serves POST `/columns`.
func (h *Handler) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	col, err := h.board.CreateColumn(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, common.MapColumn(col))
}

// handlePatchColumn serves PATCH `/columns/{id}`.
func (h *Handler) handlePatchColumn(w http.ResponseWriter, r *http.Request, id string) {
	var req common.ColumnPatchRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	col, err := common.PatchColumn(r.Context(), h.board, id, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

// handleSetDoneColumn serves POST `/columns/{id}/done`.
func (h *Handler) handleSetDoneColumn(w http.ResponseWriter, r *http.Request, id string) {
	cols, err := h.board.SetDoneColumn(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": common.MapColumns(cols),
	})
}

// handleDeleteColumn serves DELETE `/columns/{id}`.
func (h *Handler) handleDeleteColumn(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.board.DeleteColumn(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTasks serves GET `/tasks?view=`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":  view,
		"tasks": common.MapTasks(h.board.Tasks(view)),
	})
}

// handleGetTask serves GET `/tasks/{id}?view=`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, id string) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	task, err := h.board.Task(view, id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.MapTask(task))
}

// handleCreateTask serves POST `/tasks?view=`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	h.saveTask(w, r, "", http.StatusCreated)
}

// handleReplaceTask serves PUT `/tasks/{id}?view=` with the full task form.
func (h *Handler) handleReplaceTask(w http.ResponseWriter, r *http.Request, id string) {
	h.saveTask(w, r, id, http.StatusOK)
}

func (h *Handler) saveTask(w http.ResponseWriter, r *http.Request, editingID string, status int) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	var req common.TaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := common.SaveTask(r.Context(), h.board, view, req, editingID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, status, task)
}

// handlePatchTask serves PATCH `/tasks/{id}?view=`.
func (h *Handler) handlePatchTask(w http.ResponseWriter, r *http.Request, id string) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	var req common.TaskPatchRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := common.PatchTask(r.Context(), h.board, view, id, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleDeleteTask serves DELETE `/tasks/{id}?view=&cascade=`.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, id string) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	cascade := false
	if raw := strings.TrimSpace(r.URL.Query().Get("cascade")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorFrom(w, fmt.Errorf("cascade must be a boolean: %w", common.ErrInvalidRequest))
			return
		}
		cascade = parsed
	}
	if err := h.board.DeleteTask(r.Context(), view, id, cascade); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDropTask serves POST `/tasks/{id}/drop?view=`.
func (h *Handler) handleDropTask(w http.ResponseWriter, r *http.Request, id string) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	var req common.DropRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	res, err := common.DropTask(r.Context(), h.board, view, id, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAvailableParents serves GET `/tasks/{id}/parents?view=`.
func (h *Handler) handleAvailableParents(w http.ResponseWriter, r *http.Request, id string) {
	view, ok := viewFrom(w, r)
	if !ok {
		return
	}
	if _, err := h.board.Task(view, id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parents": common.MapTasks(h.board.AvailableParents(view, id)),
	})
}

// handleToggleSync serves POST `/sync/toggle`.
func (h *Handler) handleToggleSync(w http.ResponseWriter, r *http.Request) {
	synced := h.board.ToggleSync(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"is_synced": synced,
	})
}

// handleMindMapVisible serves POST `/mindmap/visible`.
func (h *Handler) handleMindMapVisible(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible bool `json:"visible"`
	}
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.board.SetMindMapVisible(r.Context(), req.Visible)
	writeJSON(w, http.StatusOK, map[string]any{
		"mindmap_visible": req.Visible,
	})
}

// handleHostEvent serves POST `/host/config` with one host event payload.
func (h *Handler) handleHostEvent(w http.ResponseWriter, r *http.Request) {
	var ev app.HostEvent
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()
	if err := json.NewDecoder(reader).Decode(&ev); err != nil {
		writeErrorFrom(w, fmt.Errorf("decode host event: %w", errors.Join(common.ErrInvalidRequest, err)))
		return
	}
	applied, err := h.board.ApplyHostEvent(r.Context(), ev)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
	})
}

// handleSave serves POST `/save`.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	if h.saver == nil {
		writeErrorFrom(w, fmt.Errorf("host bridge is not configured: %w", common.ErrUnavailable))
		return
	}
	if err := h.saver.SaveNow(r.Context()); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved": true,
	})
}

// viewFrom parses the `view` query parameter, writing a 400 when it is invalid.
func viewFrom(w http.ResponseWriter, r *http.Request) (app.View, bool) {
	view, err := common.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeErrorFrom(w, err)
		return "", false
	}
	return view, true
}

// splitPath canonicalizes one request path into route segments.
func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	code := common.Classify(err)
	apiErr := APIError{Code: string(code), Message: "unknown error"}
	if err != nil {
		apiErr.Message = err.Error()
	}
	status := http.StatusInternalServerError
	switch code {
	case common.CodeValidation:
		status = http.StatusBadRequest
	case common.CodeNotFound:
		status = http.StatusNotFound
	case common.CodeCyclicParent:
		status = http.StatusConflict
		apiErr.Hint = "Choose a parent that is not the task itself or one of its descendants."
	case common.CodeColumnNotEmpty:
		status = http.StatusConflict
		var notEmpty *domain.ColumnNotEmptyError
		if errors.As(err, &notEmpty) {
			apiErr.Context = map[string]any{
				"column_id":  notEmpty.ColumnID,
				"task_count": notEmpty.Count,
			}
		}
		apiErr.Hint = "Move or delete the column's tasks first."
	case common.CodePersistence:
		status = http.StatusBadGateway
	case common.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSONError(w, status, apiErr)
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
