package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService     librarySvc.DocumentService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService librarySvc.DocumentService, maxUploadBytes int64, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService:     docService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// updateDocumentBody is the wire form of a document update; text and
// project_id distinguish absent from null
type updateDocumentBody struct {
	Text        httputil.OptionalString `json:"text"`
	Label       *string                 `json:"label"`
	Description *string                 `json:"description"`
	Notes       *string                 `json:"notes"`
	Position    *int                    `json:"position"`
	ProjectID   httputil.OptionalString `json:"project_id"`
}

type patchDocumentBody struct {
	Patch string `json:"patch"`
}

// CreateDocument creates a new document
// POST /api/documents
// Accepts JSON, or multipart/form-data when pdf or image payloads are attached.
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req librarySvc.CreateDocumentRequest
	if httputil.IsMultipart(r) {
		if err := httputil.ParseMultipart(w, r, h.maxUploadBytes); err != nil {
			handleError(w, asRequestError(err))
			return
		}
		if err := documentFromForm(r, &req); err != nil {
			handleError(w, err)
			return
		}
	} else if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.OwnerID = httputil.GetActorID(r)

	doc, err := h.docService.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments lists the actor's documents
// GET /api/documents?project_id=
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var projectID *string
	if v := r.URL.Query().Get("project_id"); v != "" {
		projectID = &v
	}

	docs, err := h.docService.ListDocuments(r.Context(), httputil.GetActorID(r), projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nonNil(docs))
}

// GetDocument retrieves a document
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument updates a document; text changes are recorded in its history
// PUT /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body updateDocumentBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.docService.UpdateDocument(r.Context(), id, httputil.GetActorID(r), &librarySvc.UpdateDocumentRequest{
		Text:        librarySvc.OptionalText{Present: body.Text.Present, Value: body.Text.Value},
		Label:       body.Label,
		Description: body.Description,
		Notes:       body.Notes,
		Position:    body.Position,
		ProjectID:   librarySvc.OptionalText{Present: body.ProjectID.Present, Value: body.ProjectID.Value},
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// PatchDocument applies a diff-match-patch patch to the document text
// PATCH /api/documents/{id}
func (h *DocumentHandler) PatchDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body patchDocumentBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.docService.PatchDocument(r.Context(), id, httputil.GetActorID(r), body.Patch)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// DeleteDocument deletes a document and its history
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.docService.DeleteDocument(r.Context(), id, httputil.GetActorID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRevisions lists the document's revisions, oldest first
// GET /api/documents/{id}/revisions
func (h *DocumentHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	revisions, err := h.docService.ListRevisions(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nonNil(revisions))
}

// RestoreRevision sets the document text back to a revision
// POST /api/documents/{id}/restore/{revisionID}
func (h *DocumentHandler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	revisionID, ok := pathID(w, r, "revisionID")
	if !ok {
		return
	}

	doc, err := h.docService.RestoreRevision(r.Context(), id, revisionID, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// GetPDF serves the document's PDF attachment
// GET /api/documents/{id}/pdf
func (h *DocumentHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	h.serveAttachment(w, r, models.AttachmentPDF)
}

// GetImage serves the document's image attachment
// GET /api/documents/{id}/image
func (h *DocumentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	h.serveAttachment(w, r, models.AttachmentImage)
}

func (h *DocumentHandler) serveAttachment(w http.ResponseWriter, r *http.Request, kind models.AttachmentKind) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	file, err := h.docService.GetAttachment(r.Context(), id, httputil.GetActorID(r), kind)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondFile(w, file.Name, file.MediaType, file.Data)
}

// documentFromForm fills req from a parsed multipart form
func documentFromForm(r *http.Request, req *librarySvc.CreateDocumentRequest) error {
	req.Text = formString(r, "text")
	req.Label = formString(r, "label")
	req.Description = formString(r, "description")
	req.Notes = formString(r, "notes")
	req.ProjectID = formString(r, "project_id")

	if v := r.FormValue("position"); v != "" {
		position, err := strconv.Atoi(v)
		if err != nil {
			return validationError(fmt.Errorf("position: must be an integer"))
		}
		req.Position = position
	}

	for name, dest := range map[string]*[]byte{"pdf": &req.PDF, "image": &req.Image} {
		upload, err := httputil.FormFile(r, name)
		if errors.Is(err, httputil.ErrNoFile) {
			continue
		}
		if err != nil {
			return validationError(err)
		}
		*dest = upload.Data
	}
	return nil
}

// formString returns a pointer to a form value, or nil when the field was not sent
func formString(r *http.Request, name string) *string {
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
