package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scriptorium/internal/config"
	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	"scriptorium/internal/domain/repositories"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/mediatypes"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// referenceService implements the ReferenceService interface
type referenceService struct {
	refs       libraryRepo.ReferenceRepository
	registry   *OwnershipRegistry
	lookup     librarySvc.MetadataLookup
	validator  *ProjectValidator
	mediaTypes *mediatypes.Registry
	txManager  repositories.TransactionManager
	logger     *slog.Logger
	now        func() time.Time
}

// NewReferenceService creates a new reference service
func NewReferenceService(
	refs libraryRepo.ReferenceRepository,
	registry *OwnershipRegistry,
	lookup librarySvc.MetadataLookup,
	validator *ProjectValidator,
	mediaTypes *mediatypes.Registry,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) librarySvc.ReferenceService {
	return &referenceService{
		refs:       refs,
		registry:   registry,
		lookup:     lookup,
		validator:  validator,
		mediaTypes: mediaTypes,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateReference stores a reference from a lookup query, explicit metadata,
// an uploaded file, or any combination. Identical files resolve to one shared
// reference.
func (s *referenceService) CreateReference(ctx context.Context, req *librarySvc.CreateReferenceRequest) (*librarySvc.CreateReferenceResult, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.validator.ValidateProjects(ctx, req.ProjectIDs, req.ActorID); err != nil {
		return nil, err
	}

	file := req.File
	if file != nil && file.MediaType == "" {
		file.MediaType = s.mediaTypes.Detect(file.Name)
	}

	// Lookup runs before the transaction; it may touch the network
	var record *models.LookupRecord
	if query := strings.TrimSpace(req.Query); query != "" {
		var err error
		record, err = s.lookup.FetchMetadata(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	meta := models.Metadata{}
	if record != nil {
		meta = record.Metadata()
	}
	meta = meta.Merge(models.Metadata{
		Title:   strings.TrimSpace(req.Title),
		Authors: strings.TrimSpace(req.Authors),
		Journal: strings.TrimSpace(req.Journal),
		Year:    strings.TrimSpace(req.Year),
	})
	if meta.Title == "" && file != nil {
		meta.Title = file.Name
	}

	var result *librarySvc.CreateReferenceResult
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var (
			ref     *models.Reference
			outcome librarySvc.CreateOutcome
			err     error
		)
		if file != nil {
			ref, outcome, err = s.registry.CreateOrAttach(txCtx, req.ActorID, file, meta)
			if err != nil {
				return err
			}
			if outcome == librarySvc.OutcomeCreated && record != nil && !record.Degraded {
				if ref, err = s.registry.GrantFromExternalImport(txCtx, req.ActorID, ref.ID, record); err != nil {
					return err
				}
			}
		} else {
			ref = s.referenceFromRecord(record, "")
			meta.Apply(ref)
			if ref, err = s.registry.CreateText(txCtx, req.ActorID, ref); err != nil {
				return err
			}
			outcome = librarySvc.OutcomeCreated
		}

		if err := s.refs.LinkProjects(txCtx, ref.ID, req.ProjectIDs); err != nil {
			return err
		}
		result = &librarySvc.CreateReferenceResult{Reference: ref, Outcome: outcome}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ImportReference imports an external record. With LinkToReferenceID the
// record enriches that reference; otherwise a reference already linked to the
// external ID is shared with the actor, and only an unknown ID creates a new one.
func (s *referenceService) ImportReference(ctx context.Context, req *librarySvc.ImportReferenceRequest) (*librarySvc.CreateReferenceResult, error) {
	if err := s.validateImportRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.validator.ValidateProjects(ctx, req.ProjectIDs, req.ActorID); err != nil {
		return nil, err
	}

	externalID := strings.TrimSpace(req.ExternalID)

	if req.LinkToReferenceID != nil {
		// Ownership is checked before the lookup is spent
		if _, err := s.registry.ReadFor(ctx, req.ActorID, *req.LinkToReferenceID); err != nil {
			return nil, err
		}
		record, err := s.fetchForImport(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return s.importTx(ctx, req, func(txCtx context.Context) (*models.Reference, librarySvc.CreateOutcome, error) {
			ref, err := s.registry.GrantFromExternalImport(txCtx, req.ActorID, *req.LinkToReferenceID, record)
			return ref, librarySvc.OutcomeEnriched, err
		})
	}

	// Enrichment can link several references to one external ID
	owned, err := s.refs.GetOwnedByExternalID(ctx, req.ActorID, externalID)
	if err == nil {
		return nil, domain.NewConflictError("reference", owned.ID, "reference already imported")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	existing, err := s.refs.GetByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.importTx(ctx, req, func(txCtx context.Context) (*models.Reference, librarySvc.CreateOutcome, error) {
			ref, err := s.registry.Attach(txCtx, req.ActorID, existing.ID)
			return ref, librarySvc.OutcomeShared, err
		})
	}

	record, err := s.fetchForImport(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return s.importTx(ctx, req, func(txCtx context.Context) (*models.Reference, librarySvc.CreateOutcome, error) {
		ref, err := s.registry.CreateText(txCtx, req.ActorID, s.referenceFromRecord(record, externalID))
		return ref, librarySvc.OutcomeCreated, err
	})
}

// GetReference retrieves a reference the actor owns
func (s *referenceService) GetReference(ctx context.Context, id, actorID string) (*models.Reference, error) {
	return s.registry.ReadFor(ctx, actorID, id)
}

// ListReferences retrieves the actor's references
func (s *referenceService) ListReferences(ctx context.Context, actorID string, req *librarySvc.ListReferencesRequest) ([]models.Reference, error) {
	if req == nil {
		req = &librarySvc.ListReferencesRequest{}
	}
	if req.ProjectID != "" {
		if err := validation.Validate(req.ProjectID, is.UUID); err != nil {
			return nil, fmt.Errorf("%w: project_id: %v", domain.ErrValidation, err)
		}
	}

	return s.registry.ListFor(ctx, actorID, ListOptions{
		Search:    strings.TrimSpace(req.Search),
		Sort:      req.Sort,
		ProjectID: req.ProjectID,
	})
}

// UpdateReference edits reference metadata for every owner
func (s *referenceService) UpdateReference(ctx context.Context, id, actorID string, req *librarySvc.UpdateReferenceRequest) (*models.Reference, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var ref *models.Reference
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		ref, err = s.registry.ReadFor(txCtx, actorID, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			ref.Title = strings.TrimSpace(*req.Title)
		}
		if req.Authors != nil {
			ref.Authors = strings.TrimSpace(*req.Authors)
		}
		if req.Journal != nil {
			ref.Journal = strings.TrimSpace(*req.Journal)
		}
		if req.Year != nil {
			ref.Year = strings.TrimSpace(*req.Year)
		}
		ref.UpdatedAt = s.now()

		return s.refs.Update(txCtx, ref)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reference updated",
		"id", ref.ID,
		"title", ref.Title,
		"actor_id", actorID,
	)

	return ref, nil
}

// DeleteReference revokes the actor's access
func (s *referenceService) DeleteReference(ctx context.Context, id, actorID string) (*librarySvc.RevokeResult, error) {
	outcome, err := s.registry.Revoke(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return &librarySvc.RevokeResult{Outcome: outcome}, nil
}

// GetReferenceFile returns the payload with its Content-Type and a filename,
// synthesizing "reference-<id><ext>" when none was stored
func (s *referenceService) GetReferenceFile(ctx context.Context, id, actorID string) (*models.File, error) {
	if _, err := s.registry.ReadFor(ctx, actorID, id); err != nil {
		return nil, err
	}

	file, err := s.refs.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	if file.Name == "" {
		file.Name = "reference-" + id + s.mediaTypes.Extension(file.MediaType)
	}
	file.MediaType = s.mediaTypes.ContentType(file.MediaType)

	return file, nil
}

// fetchForImport looks an external ID up; the stored external ID falls back
// to the requested one when the lookup does not return it
func (s *referenceService) fetchForImport(ctx context.Context, externalID string) (*models.LookupRecord, error) {
	record, err := s.lookup.FetchMetadata(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if record.ExternalID == nil {
		record.ExternalID = &externalID
	}
	return record, nil
}

func (s *referenceService) importTx(
	ctx context.Context,
	req *librarySvc.ImportReferenceRequest,
	fn func(txCtx context.Context) (*models.Reference, librarySvc.CreateOutcome, error),
) (*librarySvc.CreateReferenceResult, error) {
	var result *librarySvc.CreateReferenceResult
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		ref, outcome, err := fn(txCtx)
		if err != nil {
			return err
		}
		if err := s.refs.LinkProjects(txCtx, ref.ID, req.ProjectIDs); err != nil {
			return err
		}
		result = &librarySvc.CreateReferenceResult{Reference: ref, Outcome: outcome}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reference imported",
		"id", result.Reference.ID,
		"external_id", req.ExternalID,
		"outcome", result.Outcome,
		"actor_id", req.ActorID,
	)

	return result, nil
}

// referenceFromRecord builds a digest-less reference carrying a lookup record
func (s *referenceService) referenceFromRecord(record *models.LookupRecord, externalID string) *models.Reference {
	now := s.now()
	ref := &models.Reference{
		Keywords:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record == nil {
		return ref
	}

	record.Metadata().Apply(ref)
	ref.ExternalID = record.ExternalID
	ref.DOI = record.DOI
	ref.Abstract = record.Abstract
	ref.PublicationDate = record.PublicationDate
	ref.URL = record.URL
	ref.Citation = record.Citation
	if record.Keywords != nil {
		ref.Keywords = record.Keywords
	}
	if ref.ExternalID == nil && externalID != "" {
		ref.ExternalID = &externalID
	}
	return ref
}

// validateCreateRequest validates a create reference request
func (s *referenceService) validateCreateRequest(req *librarySvc.CreateReferenceRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.Query, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.ProjectIDs, validation.Each(is.UUID)),
	)
	if err != nil {
		return err
	}

	if req.File != nil && len(req.File.Data) == 0 {
		return errors.New("file: cannot be empty")
	}
	if req.File == nil && strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.Title) == "" {
		return errors.New("one of query, title or file is required")
	}
	return nil
}

// validateImportRequest validates an import request
func (s *referenceService) validateImportRequest(req *librarySvc.ImportReferenceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ActorID, validation.Required),
		validation.Field(&req.ExternalID, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.LinkToReferenceID, validation.NilOrNotEmpty, is.UUID),
		validation.Field(&req.ProjectIDs, validation.Each(is.UUID)),
	)
}

// validateUpdateRequest validates an update reference request
func (s *referenceService) validateUpdateRequest(req *librarySvc.UpdateReferenceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.Year, validation.Length(0, 32)),
	)
}
