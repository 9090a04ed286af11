package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scriptorium/internal/config"
	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	"scriptorium/internal/domain/repositories"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/metrics"
	"scriptorium/internal/patch"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// attachmentMediaTypes is the Content-Type served for each side payload.
// Images are sniffed since their format is not recorded.
var attachmentMediaTypes = map[models.AttachmentKind]string{
	models.AttachmentPDF:   "application/pdf",
	models.AttachmentImage: "",
}

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   libraryRepo.DocumentRepository
	ledger    *RevisionLedger
	txManager repositories.TransactionManager
	validator *ProjectValidator
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo libraryRepo.DocumentRepository,
	ledger *RevisionLedger,
	txManager repositories.TransactionManager,
	validator *ProjectValidator,
	collector *metrics.Collector,
	logger *slog.Logger,
) librarySvc.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		ledger:    ledger,
		txManager: txManager,
		validator: validator,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateDocument creates a new document. Initial text is not a revision.
func (s *documentService) CreateDocument(ctx context.Context, req *librarySvc.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.ProjectID != nil {
		if err := s.validator.ValidateProject(ctx, *req.ProjectID, req.OwnerID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	doc := &models.Document{
		OwnerID:     req.OwnerID,
		ProjectID:   req.ProjectID,
		Text:        req.Text,
		Label:       req.Label,
		Description: req.Description,
		Notes:       req.Notes,
		Position:    req.Position,
		PDF:         nonEmpty(req.PDF),
		Image:       nonEmpty(req.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"owner_id", doc.OwnerID,
		"has_pdf", doc.HasPDF,
		"has_image", doc.HasImage,
	)

	return doc, nil
}

// GetDocument retrieves a document the owner holds
func (s *documentService) GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, id, ownerID)
}

// ListDocuments retrieves the owner's documents
func (s *documentService) ListDocuments(ctx context.Context, ownerID string, projectID *string) ([]models.Document, error) {
	if projectID != nil {
		if err := validation.Validate(*projectID, is.UUID); err != nil {
			return nil, fmt.Errorf("%w: project_id: %v", domain.ErrValidation, err)
		}
	}
	return s.docRepo.List(ctx, ownerID, projectID)
}

// UpdateDocument updates metadata fields and, when present, the text. Text
// changes are recorded by the revision ledger; an unchanged text records nothing.
func (s *documentService) UpdateDocument(ctx context.Context, id, ownerID string, req *librarySvc.UpdateDocumentRequest) (*models.Document, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.ProjectID.Present && req.ProjectID.Value != nil {
		if err := s.validator.ValidateProject(ctx, *req.ProjectID.Value, ownerID); err != nil {
			return nil, err
		}
	}

	var (
		doc         *models.Document
		textChanged bool
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.lockDocument(txCtx, id, ownerID)
		if err != nil {
			return err
		}

		if applyDocumentFields(doc, req) {
			doc.UpdatedAt = s.now()
			if err := s.docRepo.Update(txCtx, doc); err != nil {
				return err
			}
		}

		if req.Text.Present {
			textChanged, err = s.ledger.SnapshotIfChanged(txCtx, doc, req.Text.Value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"owner_id", ownerID,
		"text_changed", textChanged,
	)

	return doc, nil
}

// PatchDocument applies a patch to the document text. Hunks that cannot be
// placed are reported back; the rest still apply.
func (s *documentService) PatchDocument(ctx context.Context, id, ownerID, patchText string) (*librarySvc.PatchResult, error) {
	if err := validation.Validate(patchText, validation.Required, validation.Length(1, config.MaxPatchLength)); err != nil {
		return nil, fmt.Errorf("%w: patch: %v", domain.ErrValidation, err)
	}

	hunks, err := patch.Parse(patchText)
	if err != nil {
		if errors.Is(err, patch.ErrMalformed) {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return nil, err
	}

	var (
		doc     *models.Document
		applied patch.Result
	)
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.lockDocument(txCtx, id, ownerID)
		if err != nil {
			return err
		}

		applied = patch.Apply(doc.CurrentText(), hunks, patch.DefaultOptions())
		_, err = s.ledger.SnapshotIfChanged(txCtx, doc, &applied.Text)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(applied.Failed) > 0 {
		s.metrics.HunksFailed(len(applied.Failed))
		s.logger.Warn("patch hunks failed",
			"id", id,
			"failed", applied.Failed,
			"applied", applied.Applied,
		)
	}

	failed := applied.Failed
	if failed == nil {
		failed = []int{}
	}
	return &librarySvc.PatchResult{Document: doc, FailedHunks: failed}, nil
}

// DeleteDocument deletes a document and its revisions
func (s *documentService) DeleteDocument(ctx context.Context, id, ownerID string) error {
	if err := s.docRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", id,
		"owner_id", ownerID,
	)

	return nil
}

// ListRevisions returns the document's revisions, oldest first
func (s *documentService) ListRevisions(ctx context.Context, id, ownerID string) ([]models.Revision, error) {
	if _, err := s.docRepo.GetByID(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, id)
}

// RestoreRevision sets the document text back to a revision's text
func (s *documentService) RestoreRevision(ctx context.Context, id, revisionID, ownerID string) (*models.Document, error) {
	var (
		doc     *models.Document
		changed bool
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.lockDocument(txCtx, id, ownerID)
		if err != nil {
			return err
		}

		changed, err = s.ledger.Restore(txCtx, doc, revisionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document restored",
		"id", id,
		"revision_id", revisionID,
		"changed", changed,
	)

	return doc, nil
}

// GetAttachment returns a side payload of the document
func (s *documentService) GetAttachment(ctx context.Context, id, ownerID string, kind models.AttachmentKind) (*models.File, error) {
	mediaType, ok := attachmentMediaTypes[kind]
	if !ok {
		return nil, fmt.Errorf("attachment kind %q: %w", kind, domain.ErrNotFound)
	}

	data, err := s.docRepo.GetAttachment(ctx, id, ownerID, kind)
	if err != nil {
		return nil, err
	}

	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	return &models.File{
		Name:      fmt.Sprintf("document-%s-%s", id, kind),
		MediaType: mediaType,
		Data:      data,
	}, nil
}

func (s *documentService) lockDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	if err := s.docRepo.Lock(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, id, ownerID)
}

// applyDocumentFields copies the non-text fields of req onto doc and reports
// whether any were present
func applyDocumentFields(doc *models.Document, req *librarySvc.UpdateDocumentRequest) bool {
	changed := false
	if req.Label != nil {
		doc.Label = req.Label
		changed = true
	}
	if req.Description != nil {
		doc.Description = req.Description
		changed = true
	}
	if req.Notes != nil {
		doc.Notes = req.Notes
		changed = true
	}
	if req.Position != nil {
		doc.Position = *req.Position
		changed = true
	}
	if req.ProjectID.Present {
		doc.ProjectID = req.ProjectID.Value
		changed = true
	}
	return changed
}

func nonEmpty(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return data
}

// validateCreateRequest validates a create document request
func (s *documentService) validateCreateRequest(req *librarySvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.ProjectID, validation.NilOrNotEmpty, is.UUID),
		validation.Field(&req.Label, validation.Length(0, config.MaxProjectNameLength)),
	)
}

// validateUpdateRequest validates an update document request
func (s *documentService) validateUpdateRequest(req *librarySvc.UpdateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Label, validation.Length(0, config.MaxProjectNameLength)),
		validation.Field(&req.ProjectID, validation.By(func(value interface{}) error {
			opt, _ := value.(librarySvc.OptionalText)
			if !opt.Present || opt.Value == nil {
				return nil
			}
			return validation.Validate(*opt.Value, validation.Required, is.UUID)
		})),
	)
}
