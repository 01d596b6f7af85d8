package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListFiles handles GET /api/files.
//
//	@Summary		List or search indexed content files
//	@Tags			files
//	@Produce		json
//	@Param			q		query		string	false	"Search query"
//	@Param			kind	query		string	false	"File kind"	Enums(markdown, json)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	files, total, err := h.svc.ListFiles(r.Context(), q.Get("q"), q.Get("kind"), limit, offset)
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: total})
}

// RecentProjects handles GET /api/projects/recent.
//
//	@Summary		List recently opened projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects/recent [get]
func (h *Handler) RecentProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.RecentProjects(r.Context())
	if err != nil {
		writeError(w, "recent projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: list})
}

// TouchProject handles POST /api/projects/recent.
//
//	@Summary		Record a project as opened
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		index.Project	false	"Project, defaults to the served one"
//	@Success		200		{object}	index.Project
//	@Security		BearerAuth
//	@Router			/projects/recent [post]
func (h *Handler) TouchProject(w http.ResponseWriter, r *http.Request) {
	var p index.Project
	if !readJSON(w, r, &p, true) {
		return
	}
	p, err := h.svc.TouchProject(r.Context(), p)
	if err != nil {
		writeError(w, "touch project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open a content file for editing
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"File to open"
//	@Success		201		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !readJSON(w, r, &req, false) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if _, ok := document.KindOf(req.Path); !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported file type"))
		return
	}
	s, err := h.svc.Sessions().Open(req.Path)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List open sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{array}	session.Summary
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions().List())
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Sessions().Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateField handles POST /api/sessions/{id}/update.
//
//	@Summary		Replace the value of a field
//	@Tags			fields
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session id"
//	@Param			body	body		UpdateFieldRequest	true	"Field update"
//	@Success		200		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/update [post]
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateFieldRequest
	if !readJSON(w, r, &req, false) {
		return
	}
	v, err := s.Update(&req.Field, req.Path)
	h.respond(w, "update field", v, err)
}

// DuplicateField handles POST /api/sessions/{id}/duplicate.
//
//	@Summary		Duplicate a field or array item
//	@Tags			fields
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ElementRequest	true	"Element to duplicate"
//	@Success		200		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/duplicate [post]
func (h *Handler) DuplicateField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ElementRequest
	if !readJSON(w, r, &req, false) {
		return
	}
	v, err := s.Duplicate(req.Parent, req.Index)
	h.respond(w, "duplicate field", v, err)
}

// DeleteField handles POST /api/sessions/{id}/delete.
//
//	@Summary		Delete a field or array item
//	@Tags			fields
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ElementRequest	true	"Element to delete"
//	@Success		200		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/delete [post]
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ElementRequest
	if !readJSON(w, r, &req, false) {
		return
	}
	v, err := s.Delete(req.Parent, req.Index)
	h.respond(w, "delete field", v, err)
}

// MoveField handles POST /api/sessions/{id}/move.
//
//	@Summary		Reorder a container
//	@Tags			fields
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		MoveRequest	true	"Move"
//	@Success		200		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/move [post]
func (h *Handler) MoveField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !readJSON(w, r, &req, false) {
		return
	}
	v, err := s.Move(req.Parent, req.From, req.To)
	h.respond(w, "move field", v, err)
}

// Undo handles POST /api/sessions/{id}/undo.
//
//	@Summary		Step back one history entry
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionView
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := s.Undo()
	h.respond(w, "undo", v, err)
}

// Redo handles POST /api/sessions/{id}/redo.
//
//	@Summary		Step forward one history entry
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionView
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := s.Redo()
	h.respond(w, "redo", v, err)
}

// CreateSnapshot handles POST /api/sessions/{id}/snapshots.
//
//	@Summary		Bookmark the current tree
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		201	{object}	SnapshotInfo
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/snapshots [post]
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	info, err := s.CreateSnapshot()
	if err != nil {
		writeError(w, "create snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListSnapshots handles GET /api/sessions/{id}/snapshots.
//
//	@Summary		List snapshots
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SnapshotListResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/snapshots [get]
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SnapshotListResponse{Snapshots: s.Snapshots()})
}

// RestoreSnapshot handles POST /api/sessions/{id}/snapshots/{index}/restore.
//
//	@Summary		Restore a snapshot
//	@Tags			history
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Param			index	path		int		true	"Snapshot index"
//	@Success		200		{object}	SessionView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/snapshots/{index}/restore [post]
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return
	}
	v, restored, err := s.RestoreSnapshot(index)
	if err != nil {
		writeError(w, "restore snapshot", err)
		return
	}
	if !restored {
		writeJSON(w, http.StatusNotFound, errorBody("snapshot not found"))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Submit handles POST /api/sessions/{id}/submit.
//
//	@Summary		Validate the form and write the file
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		SubmitRequest	false	"Form elements"
//	@Success		200		{object}	session.SubmitResult
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SubmitRequest
	if !readJSON(w, r, &req, true) {
		return
	}
	res, err := s.Submit(req.Elements)
	if errors.Is(err, apperr.ErrValidation) {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "validation failed",
			Errors: res.Errors,
		})
		return
	}
	if err != nil {
		writeError(w, "submit", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Notices handles GET /api/notices.
//
//	@Summary		List visible notices
//	@Tags			notices
//	@Produce		json
//	@Success		200	{array}	notice.Notice
//	@Security		BearerAuth
//	@Router			/notices [get]
func (h *Handler) Notices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions().Notices().List())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.svc.Sessions().Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

// respond writes the view of a successful edit, or the error of a refused
// one.
func (h *Handler) respond(w http.ResponseWriter, op string, v session.View, err error) {
	if err != nil {
		if errors.Is(err, apperr.ErrProtected) {
			slog.Info(op+" refused", slog.String("session", v.ID))
		}
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
