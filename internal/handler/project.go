package handler

import (
	"log/slog"
	"net/http"

	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/httputil"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	projectService librarySvc.ProjectService
	refService     librarySvc.ReferenceService
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService librarySvc.ProjectService, refService librarySvc.ReferenceService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		refService:     refService,
		logger:         logger,
	}
}

// CreateProject creates a new project
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req librarySvc.CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID := httputil.GetActorID(r)
	req.OwnerID = actorID

	project, err := h.projectService.CreateProject(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Project, error) {
			return h.projectService.GetProject(r.Context(), id, actorID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// ListProjects lists the actor's projects
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.ListProjects(r.Context(), httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nonNil(projects))
}

// GetProject retrieves a project
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), id, httputil.GetActorID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject updates a project
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req librarySvc.UpdateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), id, httputil.GetActorID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project; its references stay in the library
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(r.Context(), id, httputil.GetActorID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListProjectReferences lists the actor's references tagged with a project
// GET /api/projects/{id}/references?search=&sort=
func (h *ProjectHandler) ListProjectReferences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID := httputil.GetActorID(r)

	if _, err := h.projectService.GetProject(r.Context(), id, actorID); err != nil {
		handleError(w, err)
		return
	}

	refs, err := h.refService.ListReferences(r.Context(), actorID, &librarySvc.ListReferencesRequest{
		Search:    r.URL.Query().Get("search"),
		Sort:      r.URL.Query().Get("sort"),
		ProjectID: id,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nonNil(refs))
}
