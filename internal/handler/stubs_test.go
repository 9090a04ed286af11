package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/httputil"
)

const (
	testActor = "actor-1"
	refID     = "0b7d2d4e-8f51-4f0a-9d55-2f3b3c1f9a10"
	projectID = "5f2c8a91-3c1e-4d8b-a0f6-7e9d1b2c3a44"
	docID     = "c3a1e2f4-5b6d-4e7f-8a9b-0c1d2e3f4a5b"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serve routes one request through a mux with the actor already authenticated
func serve(pattern string, h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httputil.WithActorID(r, testActor))
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

type stubReferenceService struct {
	createReq *librarySvc.CreateReferenceRequest
	createRes *librarySvc.CreateReferenceResult
	createErr error
	importReq *librarySvc.ImportReferenceRequest
	importRes *librarySvc.CreateReferenceResult
	listReq   *librarySvc.ListReferencesRequest
	refs      map[string]*models.Reference
	revokeRes *librarySvc.RevokeResult
	file      *models.File
	updateReq *librarySvc.UpdateReferenceRequest
	lastActor string
}

func (s *stubReferenceService) CreateReference(_ context.Context, req *librarySvc.CreateReferenceRequest) (*librarySvc.CreateReferenceResult, error) {
	s.createReq = req
	return s.createRes, s.createErr
}

func (s *stubReferenceService) ImportReference(_ context.Context, req *librarySvc.ImportReferenceRequest) (*librarySvc.CreateReferenceResult, error) {
	s.importReq = req
	return s.importRes, nil
}

func (s *stubReferenceService) GetReference(_ context.Context, id, actorID string) (*models.Reference, error) {
	s.lastActor = actorID
	if ref, ok := s.refs[id]; ok {
		return ref, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubReferenceService) ListReferences(_ context.Context, actorID string, req *librarySvc.ListReferencesRequest) ([]models.Reference, error) {
	s.lastActor = actorID
	s.listReq = req
	var out []models.Reference
	for _, ref := range s.refs {
		out = append(out, *ref)
	}
	return out, nil
}

func (s *stubReferenceService) UpdateReference(_ context.Context, id, actorID string, req *librarySvc.UpdateReferenceRequest) (*models.Reference, error) {
	s.updateReq = req
	ref, ok := s.refs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Title != nil {
		ref.Title = *req.Title
	}
	return ref, nil
}

func (s *stubReferenceService) DeleteReference(_ context.Context, id, actorID string) (*librarySvc.RevokeResult, error) {
	if s.revokeRes == nil {
		return nil, domain.ErrNotFound
	}
	return s.revokeRes, nil
}

func (s *stubReferenceService) GetReferenceFile(_ context.Context, id, actorID string) (*models.File, error) {
	if s.file == nil {
		return nil, domain.ErrNotFound
	}
	return s.file, nil
}

type stubProjectService struct {
	projects  map[string]*models.Project
	createErr error
	deleted   []string
}

func (s *stubProjectService) CreateProject(_ context.Context, req *librarySvc.CreateProjectRequest) (*models.Project, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Project{ID: projectID, OwnerID: req.OwnerID, Name: req.Name}, nil
}

func (s *stubProjectService) GetProject(_ context.Context, id, ownerID string) (*models.Project, error) {
	if p, ok := s.projects[id]; ok && p.OwnerID == ownerID {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProjectService) ListProjects(_ context.Context, ownerID string) ([]models.Project, error) {
	return nil, nil
}

func (s *stubProjectService) UpdateProject(_ context.Context, id, ownerID string, req *librarySvc.UpdateProjectRequest) (*models.Project, error) {
	p, err := s.GetProject(context.Background(), id, ownerID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	return p, nil
}

func (s *stubProjectService) DeleteProject(_ context.Context, id, ownerID string) error {
	if _, err := s.GetProject(context.Background(), id, ownerID); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubDocumentService struct {
	createReq  *librarySvc.CreateDocumentRequest
	updateReq  *librarySvc.UpdateDocumentRequest
	patchText  string
	patchErr   error
	listProj   *string
	restored   [2]string
	attachment map[models.AttachmentKind]*models.File
}

func (s *stubDocumentService) CreateDocument(_ context.Context, req *librarySvc.CreateDocumentRequest) (*models.Document, error) {
	s.createReq = req
	return &models.Document{ID: docID, OwnerID: req.OwnerID, Text: req.Text, HasPDF: len(req.PDF) > 0}, nil
}

func (s *stubDocumentService) GetDocument(_ context.Context, id, ownerID string) (*models.Document, error) {
	return &models.Document{ID: id, OwnerID: ownerID}, nil
}

func (s *stubDocumentService) ListDocuments(_ context.Context, ownerID string, projectID *string) ([]models.Document, error) {
	s.listProj = projectID
	return nil, nil
}

func (s *stubDocumentService) UpdateDocument(_ context.Context, id, ownerID string, req *librarySvc.UpdateDocumentRequest) (*models.Document, error) {
	s.updateReq = req
	return &models.Document{ID: id, OwnerID: ownerID}, nil
}

func (s *stubDocumentService) PatchDocument(_ context.Context, id, ownerID, patchText string) (*librarySvc.PatchResult, error) {
	s.patchText = patchText
	if s.patchErr != nil {
		return nil, s.patchErr
	}
	return &librarySvc.PatchResult{Document: &models.Document{ID: id}, FailedHunks: []int{}}, nil
}

func (s *stubDocumentService) DeleteDocument(_ context.Context, id, ownerID string) error {
	return nil
}

func (s *stubDocumentService) ListRevisions(_ context.Context, id, ownerID string) ([]models.Revision, error) {
	return []models.Revision{{ID: "r1", DocumentID: id, Text: "v1"}}, nil
}

func (s *stubDocumentService) RestoreRevision(_ context.Context, id, revisionID, ownerID string) (*models.Document, error) {
	s.restored = [2]string{id, revisionID}
	return &models.Document{ID: id}, nil
}

func (s *stubDocumentService) GetAttachment(_ context.Context, id, ownerID string, kind models.AttachmentKind) (*models.File, error) {
	if f, ok := s.attachment[kind]; ok {
		return f, nil
	}
	return nil, domain.ErrNotFound
}
