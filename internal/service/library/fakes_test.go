package library

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	"scriptorium/internal/domain/repositories"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/mediatypes"
	"scriptorium/internal/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memStore backs every in-memory repository. It enforces digest uniqueness
// the way the database's unique index does.
type memStore struct {
	mu sync.Mutex

	refs     map[string]*models.Reference
	refOrder []string
	owners   map[string]map[string]bool
	tags     map[string]map[string]bool

	docs      map[string]*models.Document
	docOrder  []string
	revisions map[string]*models.Revision
	seq       int64

	projects map[string]*models.Project
}

func newMemStore() *memStore {
	return &memStore{
		refs:      map[string]*models.Reference{},
		owners:    map[string]map[string]bool{},
		tags:      map[string]map[string]bool{},
		docs:      map[string]*models.Document{},
		revisions: map[string]*models.Revision{},
		projects:  map[string]*models.Project{},
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// --- references ---

type memReferences struct{ *memStore }

func (m memReferences) Create(_ context.Context, ref *models.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref.Digest != nil {
		for _, existing := range m.refs {
			if existing.Digest != nil && *existing.Digest == *ref.Digest {
				return domain.NewConflictError("reference", existing.ID, "reference with identical content already exists")
			}
		}
	}

	ref.ID = uuid.NewString()
	ref.Size = int64(len(ref.Payload))
	stored := *ref
	m.refs[ref.ID] = &stored
	m.refOrder = append(m.refOrder, ref.ID)
	return nil
}

func (m memReferences) copyOf(ref *models.Reference) *models.Reference {
	c := *ref
	c.Payload = nil
	return &c
}

func (m memReferences) GetByID(_ context.Context, id string) (*models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.refs[id]
	if !ok {
		return nil, notFound("reference", id)
	}
	return m.copyOf(ref), nil
}

func (m memReferences) GetByDigest(_ context.Context, digest string) (*models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ref := range m.refs {
		if ref.Digest != nil && *ref.Digest == digest {
			return m.copyOf(ref), nil
		}
	}
	return nil, notFound("reference with digest", digest)
}

func (m memReferences) GetByExternalID(_ context.Context, externalID string) (*models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.refOrder {
		ref, ok := m.refs[id]
		if ok && ref.ExternalID != nil && *ref.ExternalID == externalID {
			return m.copyOf(ref), nil
		}
	}
	return nil, notFound("reference with external id", externalID)
}

func (m memReferences) GetOwnedByExternalID(_ context.Context, ownerID, externalID string) (*models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.refOrder {
		ref, ok := m.refs[id]
		if ok && m.owners[id][ownerID] && ref.ExternalID != nil && *ref.ExternalID == externalID {
			return m.copyOf(ref), nil
		}
	}
	return nil, notFound("owned reference with external id", externalID)
}

func (m memReferences) Lock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refs[id]; !ok {
		return notFound("reference", id)
	}
	return nil
}

func (m memReferences) Update(_ context.Context, ref *models.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.refs[ref.ID]
	if !ok {
		return notFound("reference", ref.ID)
	}
	payload := stored.Payload
	updated := *ref
	updated.Payload = payload
	updated.Digest = stored.Digest
	updated.Filename = stored.Filename
	updated.MediaType = stored.MediaType
	m.refs[ref.ID] = &updated
	return nil
}

func (m memReferences) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refs[id]; !ok {
		return notFound("reference", id)
	}
	delete(m.refs, id)
	delete(m.owners, id)
	delete(m.tags, id)
	return nil
}

func (m memReferences) GetFile(_ context.Context, id string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.refs[id]
	if !ok {
		return nil, notFound("reference", id)
	}
	if ref.Payload == nil {
		return nil, fmt.Errorf("no file content available: %w", domain.ErrNotFound)
	}

	file := &models.File{Data: ref.Payload}
	if ref.Filename != nil {
		file.Name = *ref.Filename
	}
	if ref.MediaType != nil {
		file.MediaType = *ref.MediaType
	}
	return file, nil
}

func (m memReferences) ListByOwner(_ context.Context, ownerID string, filter *libraryRepo.ReferenceFilter) ([]models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(filter.Search)
	refs := []models.Reference{}
	for _, id := range m.refOrder {
		ref, ok := m.refs[id]
		if !ok || !m.owners[id][ownerID] {
			continue
		}
		if filter.ProjectID != "" && !m.tags[id][filter.ProjectID] {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(strings.Join([]string{ref.Title, ref.Authors, ref.Journal, ref.Year}, "\n"))
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		refs = append(refs, *m.copyOf(ref))
	}
	return refs, nil
}

func (m memReferences) LinkProjects(_ context.Context, referenceID string, projectIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, projectID := range projectIDs {
		if m.tags[referenceID] == nil {
			m.tags[referenceID] = map[string]bool{}
		}
		m.tags[referenceID][projectID] = true
	}
	return nil
}

// --- ownership ---

type memOwners struct{ *memStore }

func (m memOwners) Add(_ context.Context, referenceID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refs[referenceID]; !ok {
		return notFound("reference", referenceID)
	}
	if m.owners[referenceID] == nil {
		m.owners[referenceID] = map[string]bool{}
	}
	m.owners[referenceID][ownerID] = true
	return nil
}

func (m memOwners) Exists(_ context.Context, referenceID, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.owners[referenceID][ownerID], nil
}

func (m memOwners) Remove(_ context.Context, referenceID, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owners[referenceID][ownerID] {
		return false, nil
	}
	delete(m.owners[referenceID], ownerID)
	return true, nil
}

func (m memOwners) Count(_ context.Context, referenceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.owners[referenceID]), nil
}

// --- documents ---

type memDocuments struct{ *memStore }

func (m memDocuments) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc.ID = uuid.NewString()
	doc.HasPDF = doc.PDF != nil
	doc.HasImage = doc.Image != nil
	stored := *doc
	m.docs[doc.ID] = &stored
	m.docOrder = append(m.docOrder, doc.ID)
	return nil
}

func (m memDocuments) get(id, ownerID string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, notFound("document", id)
	}
	return doc, nil
}

func (m memDocuments) GetByID(_ context.Context, id, ownerID string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	c := *doc
	c.PDF, c.Image = nil, nil
	return &c, nil
}

func (m memDocuments) Lock(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.get(id, ownerID)
	return err
}

func (m memDocuments) List(_ context.Context, ownerID string, projectID *string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := []models.Document{}
	for _, id := range m.docOrder {
		doc, ok := m.docs[id]
		if !ok || doc.OwnerID != ownerID {
			continue
		}
		if projectID != nil && (doc.ProjectID == nil || *doc.ProjectID != *projectID) {
			continue
		}
		c := *doc
		c.PDF, c.Image = nil, nil
		docs = append(docs, c)
	}
	slices.SortStableFunc(docs, func(a, b models.Document) int { return cmp.Compare(a.Position, b.Position) })
	return docs, nil
}

func (m memDocuments) Update(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.get(doc.ID, doc.OwnerID)
	if err != nil {
		return err
	}
	stored.Label = doc.Label
	stored.Description = doc.Description
	stored.Notes = doc.Notes
	stored.Position = doc.Position
	stored.ProjectID = doc.ProjectID
	stored.UpdatedAt = doc.UpdatedAt
	return nil
}

func (m memDocuments) UpdateText(_ context.Context, id string, text *string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.docs[id]
	if !ok {
		return notFound("document", id)
	}
	stored.Text = text
	stored.UpdatedAt = updatedAt
	return nil
}

func (m memDocuments) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.get(id, ownerID); err != nil {
		return err
	}
	delete(m.docs, id)
	for revID, rev := range m.revisions {
		if rev.DocumentID == id {
			delete(m.revisions, revID)
		}
	}
	return nil
}

func (m memDocuments) GetAttachment(_ context.Context, id, ownerID string, kind models.AttachmentKind) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.get(id, ownerID)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch kind {
	case models.AttachmentPDF:
		data = doc.PDF
	case models.AttachmentImage:
		data = doc.Image
	}
	if data == nil {
		return nil, notFound("document attachment", string(kind))
	}
	return data, nil
}

// --- revisions ---

type memRevisions struct{ *memStore }

func (m memRevisions) Create(_ context.Context, rev *models.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rev.ID = uuid.NewString()
	rev.Seq = m.seq
	stored := *rev
	m.revisions[rev.ID] = &stored
	return nil
}

func (m memRevisions) ordered(documentID string) []models.Revision {
	revs := []models.Revision{}
	for _, rev := range m.revisions {
		if rev.DocumentID == documentID {
			revs = append(revs, *rev)
		}
	}
	slices.SortFunc(revs, func(a, b models.Revision) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return revs
}

func (m memRevisions) ListByDocument(_ context.Context, documentID string) ([]models.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ordered(documentID), nil
}

func (m memRevisions) GetByID(_ context.Context, id, documentID string) (*models.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rev, ok := m.revisions[id]
	if !ok || rev.DocumentID != documentID {
		return nil, notFound("revision", id)
	}
	c := *rev
	return &c, nil
}

func (m memRevisions) Trim(_ context.Context, documentID string, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	revs := m.ordered(documentID)
	var removed int64
	for i := 0; i < len(revs)-keep; i++ {
		delete(m.revisions, revs[i].ID)
		removed++
	}
	return removed, nil
}

// --- projects ---

type memProjects struct{ *memStore }

func (m memProjects) Create(_ context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.projects {
		if p.OwnerID == project.OwnerID && p.Name == project.Name {
			return domain.NewConflictError("project", p.ID, fmt.Sprintf("project '%s' already exists", p.Name))
		}
	}
	project.ID = uuid.NewString()
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m memProjects) GetByID(_ context.Context, id, ownerID string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return nil, notFound("project", id)
	}
	c := *p
	return &c, nil
}

func (m memProjects) List(_ context.Context, ownerID string) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	projects := []models.Project{}
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

func (m memProjects) Update(_ context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[project.ID]
	if !ok || p.OwnerID != project.OwnerID {
		return notFound("project", project.ID)
	}
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m memProjects) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok || p.OwnerID != ownerID {
		return notFound("project", id)
	}
	delete(m.projects, id)
	for _, tags := range m.tags {
		delete(tags, id)
	}
	for _, doc := range m.docs {
		if doc.ProjectID != nil && *doc.ProjectID == id {
			doc.ProjectID = nil
		}
	}
	return nil
}

// --- lookup ---

type stubLookup struct {
	mu      sync.Mutex
	records map[string]*models.LookupRecord
	err     error
	calls   int
}

func (l *stubLookup) FetchMetadata(_ context.Context, query string) (*models.LookupRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	if record, ok := l.records[query]; ok {
		c := *record
		return &c, nil
	}
	return models.DegradedRecord(query), nil
}

// --- wiring ---

type testEnv struct {
	store     *memStore
	metrics   *metrics.Collector
	registry  *OwnershipRegistry
	ledger    *RevisionLedger
	lookup    *stubLookup
	refs      librarySvc.ReferenceService
	documents librarySvc.DocumentService
	projects  librarySvc.ProjectService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, revisionLimit int) *testEnv {
	t.Helper()

	store := newMemStore()
	collector := metrics.NewCollector("test")
	logger := discardLogger()
	tx := fakeTxManager{}

	mediaTypes, err := mediatypes.NewRegistry()
	require.NoError(t, err)

	refs := memReferences{store}
	registry := NewOwnershipRegistry(refs, memOwners{store}, tx, collector, logger)
	ledger := NewRevisionLedger(memRevisions{store}, memDocuments{store}, tx, revisionLimit, collector, logger)
	lookup := &stubLookup{records: map[string]*models.LookupRecord{}}
	validator := NewProjectValidator(memProjects{store})

	return &testEnv{
		store:     store,
		metrics:   collector,
		registry:  registry,
		ledger:    ledger,
		lookup:    lookup,
		refs:      NewReferenceService(refs, registry, lookup, validator, mediaTypes, tx, logger),
		documents: NewDocumentService(memDocuments{store}, ledger, tx, validator, collector, logger),
		projects:  NewProjectService(memProjects{store}, logger),
	}
}

func strPtr(s string) *string {
	return &s
}
