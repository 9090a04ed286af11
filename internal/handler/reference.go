package handler

import (
	"errors"
	"log/slog"
	"net/http"

	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/httputil"
)

// ReferenceHandler handles reference HTTP requests
type ReferenceHandler struct {
	refService     librarySvc.ReferenceService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(refService librarySvc.ReferenceService, maxUploadBytes int64, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		refService:     refService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// CreateReference stores a reference from a query, metadata fields or an uploaded file
// POST /api/references
// Accepts multipart/form-data (file or pdf, query, title, authors, journal, year, project_ids)
// or a JSON body with the same fields minus the file.
func (h *ReferenceHandler) CreateReference(w http.ResponseWriter, r *http.Request) {
	actorID := httputil.GetActorID(r)

	var req librarySvc.CreateReferenceRequest
	if httputil.IsMultipart(r) {
		if err := httputil.ParseMultipart(w, r, h.maxUploadBytes); err != nil {
			handleError(w, asRequestError(err))
			return
		}

		req = librarySvc.CreateReferenceRequest{
			Query:      r.FormValue("query"),
			Title:      r.FormValue("title"),
			Authors:    r.FormValue("authors"),
			Journal:    r.FormValue("journal"),
			Year:       r.FormValue("year"),
			ProjectIDs: httputil.FormList(r, "project_ids"),
		}

		upload, err := httputil.FormFile(r, "file", "pdf")
		if err != nil && !errors.Is(err, httputil.ErrNoFile) {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid file upload")
			return
		}
		if upload != nil {
			req.File = fileFromUpload(upload)
		}
	} else if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ActorID = actorID

	result, err := h.refService.CreateReference(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome != librarySvc.OutcomeCreated {
		status = http.StatusOK
	}
	httputil.RespondJSON(w, status, result)
}

// ImportReference creates, shares or enriches a reference from an external record
// POST /api/references/import
func (h *ReferenceHandler) ImportReference(w http.ResponseWriter, r *http.Request) {
	var req librarySvc.ImportReferenceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ActorID = httputil.GetActorID(r)

	result, err := h.refService.ImportReference(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == librarySvc.OutcomeCreated {
		status = http.StatusCreated
	}
	httputil.RespondJSON(w, status, result)
}

// ListReferences lists the actor's references
// GET /api/references?search=&sort=&project_id=
func (h *ReferenceHandler) ListReferences(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	refs, err := h.refService.ListReferences(r.Context(), httputil.GetActorID(r), &librarySvc.ListReferencesRequest{
		Search:    query.Get("search"),
		Sort:      query.Get("sort"),
		ProjectID: query.Get("project_id"),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nonNil(refs))
}

// GetReference retrieves a reference
// GET /api/references/{id}
func (h *ReferenceHandler) GetReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ref, err := h.refService.GetReference(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ref)
}

// UpdateReference edits reference metadata
// PATCH /api/references/{id}
func (h *ReferenceHandler) UpdateReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req librarySvc.UpdateReferenceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ref, err := h.refService.UpdateReference(r.Context(), id, httputil.GetActorID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ref)
}

// DeleteReference removes the reference from the actor's library
// DELETE /api/references/{id}
func (h *ReferenceHandler) DeleteReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.refService.DeleteReference(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "deleted",
		"reference_deleted": result.Outcome == librarySvc.OutcomeDeleted,
	})
}

// GetReferenceFile serves the stored payload inline
// GET /api/references/{id}/file
func (h *ReferenceHandler) GetReferenceFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	file, err := h.refService.GetReferenceFile(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondFile(w, file.Name, file.MediaType, file.Data)
}

// fileFromUpload keeps the client media type only when it says something;
// browsers send application/octet-stream for unknown types
func fileFromUpload(upload *httputil.UploadedFile) *models.File {
	mediaType := upload.ContentType
	if mediaType == "application/octet-stream" {
		mediaType = ""
	}
	return &models.File{
		Name:      upload.Name,
		MediaType: mediaType,
		Data:      upload.Data,
	}
}

// asRequestError keeps oversized bodies distinguishable and maps
// everything else to a validation error
func asRequestError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return validationError(err)
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
