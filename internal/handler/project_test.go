package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectFixture() (*ProjectHandler, *stubProjectService, *stubReferenceService) {
	projects := &stubProjectService{projects: map[string]*models.Project{
		projectID: {ID: projectID, OwnerID: testActor, Name: "Thesis"},
	}}
	refs := &stubReferenceService{}
	return NewProjectHandler(projects, refs, discardLogger()), projects, refs
}

func TestCreateProject(t *testing.T) {
	h, _, _ := newProjectFixture()

	w := serve("POST /api/projects", h.CreateProject,
		jsonRequest(http.MethodPost, "/api/projects", `{"name":"Survey"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	var body models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testActor, body.OwnerID)
	assert.Equal(t, "Survey", body.Name)
}

func TestCreateProject_ConflictReturnsExisting(t *testing.T) {
	h, projects, _ := newProjectFixture()
	projects.createErr = domain.NewConflictError("project", projectID, "project already exists")

	w := serve("POST /api/projects", h.CreateProject,
		jsonRequest(http.MethodPost, "/api/projects", `{"name":"Thesis"}`))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, projectID, body.ID)
}

func TestListProjects_EmptyIsArray(t *testing.T) {
	h, _, _ := newProjectFixture()

	w := serve("GET /api/projects", h.ListProjects, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUpdateAndDeleteProject(t *testing.T) {
	h, projects, _ := newProjectFixture()

	w := serve("PATCH /api/projects/{id}", h.UpdateProject,
		jsonRequest(http.MethodPatch, "/api/projects/"+projectID, `{"name":"Dissertation"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dissertation", projects.projects[projectID].Name)

	w = serve("DELETE /api/projects/{id}", h.DeleteProject,
		httptest.NewRequest(http.MethodDelete, "/api/projects/"+projectID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{projectID}, projects.deleted)

	w = serve("DELETE /api/projects/{id}", h.DeleteProject,
		httptest.NewRequest(http.MethodDelete, "/api/projects/"+refID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProjectReferences(t *testing.T) {
	h, _, refs := newProjectFixture()

	w := serve("GET /api/projects/{id}/references", h.ListProjectReferences,
		httptest.NewRequest(http.MethodGet, "/api/projects/"+projectID+"/references?sort=title", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, refs.listReq)
	assert.Equal(t, projectID, refs.listReq.ProjectID)
	assert.Equal(t, "title", refs.listReq.Sort)

	refs.listReq = nil
	w = serve("GET /api/projects/{id}/references", h.ListProjectReferences,
		httptest.NewRequest(http.MethodGet, "/api/projects/"+refID+"/references", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, refs.listReq, "unknown projects are not listed")
}
