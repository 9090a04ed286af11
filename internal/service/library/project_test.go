package library

import (
	"context"
	"strings"
	"testing"

	"scriptorium/internal/config"
	"scriptorium/internal/domain"
	librarySvc "scriptorium/internal/domain/services/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	project, err := env.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{
		OwnerID:   "A",
		Name:      "  Survey  ",
		Coauthors: []string{" Ada ", "", "Grace"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Survey", project.Name)
	assert.Equal(t, []string{"Ada", "Grace"}, project.Coauthors)

	_, err = env.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{OwnerID: "A", Name: "Survey"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, project.ID, conflict.ResourceID)
}

func TestCreateProject_Validation(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	for _, name := range []string{"", "   ", strings.Repeat("x", config.MaxProjectNameLength+1)} {
		_, err := env.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{OwnerID: "A", Name: name})
		assert.ErrorIs(t, err, domain.ErrValidation, "name %q", name)
	}
}

func TestUpdateProject(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	project, err := env.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{OwnerID: "A", Name: "Draft"})
	require.NoError(t, err)

	coauthors := []string{"Linus"}
	updated, err := env.projects.UpdateProject(ctx, project.ID, "A", &librarySvc.UpdateProjectRequest{
		Description: strPtr("notes"),
		Coauthors:   &coauthors,
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Name)
	assert.Equal(t, "notes", *updated.Description)
	assert.Equal(t, []string{"Linus"}, updated.Coauthors)

	_, err = env.projects.UpdateProject(ctx, project.ID, "A", &librarySvc.UpdateProjectRequest{Name: strPtr("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.projects.UpdateProject(ctx, project.ID, "B", &librarySvc.UpdateProjectRequest{Name: strPtr("Mine")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProject_KeepsReferences(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	project, err := env.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{OwnerID: "A", Name: "Temp"})
	require.NoError(t, err)
	created, err := env.refs.CreateReference(ctx, &librarySvc.CreateReferenceRequest{
		ActorID: "A", Title: "Kept", ProjectIDs: []string{project.ID},
	})
	require.NoError(t, err)

	require.NoError(t, env.projects.DeleteProject(ctx, project.ID, "A"))
	assert.ErrorIs(t, env.projects.DeleteProject(ctx, project.ID, "A"), domain.ErrNotFound)

	_, err = env.refs.GetReference(ctx, created.Reference.ID, "A")
	assert.NoError(t, err)

	projects, err := env.projects.ListProjects(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, projects)
}
