package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	"scriptorium/internal/domain/repositories"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/metrics"
)

// maxAttachAttempts bounds how often a create that lost a digest race is
// retried through the attach path
const maxAttachAttempts = 3

// ListOptions filters and orders the references an actor can see
type ListOptions struct {
	Search    string
	Sort      string
	ProjectID string
}

// OwnershipRegistry manages which actors hold references. It is the only
// component that creates or deletes references.
type OwnershipRegistry struct {
	refs      libraryRepo.ReferenceRepository
	owners    libraryRepo.OwnershipRepository
	store     *ContentAddressStore
	txManager repositories.TransactionManager
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// NewOwnershipRegistry creates an ownership registry
func NewOwnershipRegistry(
	refs libraryRepo.ReferenceRepository,
	owners libraryRepo.OwnershipRepository,
	txManager repositories.TransactionManager,
	collector *metrics.Collector,
	logger *slog.Logger,
) *OwnershipRegistry {
	return &OwnershipRegistry{
		refs:      refs,
		owners:    owners,
		store:     NewContentAddressStore(refs),
		txManager: txManager,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrAttach stores a new reference for the actor, or attaches the actor
// to the reference already holding the same payload.
// Returns *domain.ConflictError if the actor already owns that payload.
func (r *OwnershipRegistry) CreateOrAttach(
	ctx context.Context,
	actorID string,
	file *models.File,
	meta models.Metadata,
) (*models.Reference, librarySvc.CreateOutcome, error) {
	if file == nil {
		ref, err := r.create(ctx, actorID, r.newReference(meta))
		if err != nil {
			return nil, "", err
		}
		return ref, librarySvc.OutcomeCreated, nil
	}

	digest := r.store.DigestOf(file.Data)

	var (
		result  *models.Reference
		outcome librarySvc.CreateOutcome
	)
	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		for attempt := 1; attempt <= maxAttachAttempts; attempt++ {
			existing, err := r.store.FindByDigest(txCtx, digest)
			if err != nil {
				return err
			}

			if existing != nil {
				ref, err := r.attach(txCtx, actorID, existing)
				if errors.Is(err, domain.ErrNotFound) {
					// Deleted by its last owner since we looked it up
					continue
				}
				if err != nil {
					return err
				}
				result, outcome = ref, librarySvc.OutcomeShared
				return nil
			}

			ref := r.newReference(meta)
			ref.Filename = optionalString(file.Name)
			ref.MediaType = optionalString(file.MediaType)
			ref.Digest = &digest
			ref.Payload = file.Data

			if err := r.insert(txCtx, actorID, ref); err != nil {
				var conflict *domain.ConflictError
				if errors.As(err, &conflict) {
					r.logger.Debug("digest race lost, attaching",
						"digest", digest,
						"existing_id", conflict.ResourceID,
						"attempt", attempt,
					)
					continue
				}
				return err
			}
			result, outcome = ref, librarySvc.OutcomeCreated
			return nil
		}
		return fmt.Errorf("store reference with digest %s: gave up after %d attempts", digest, maxAttachAttempts)
	})
	if err != nil {
		return nil, "", err
	}

	r.metrics.ReferenceStored(string(outcome))
	r.logger.Info("reference stored",
		"id", result.ID,
		"digest", digest,
		"outcome", outcome,
		"actor_id", actorID,
	)

	return result, outcome, nil
}

// CreateText stores a digest-less reference owned by the actor
func (r *OwnershipRegistry) CreateText(ctx context.Context, actorID string, ref *models.Reference) (*models.Reference, error) {
	return r.create(ctx, actorID, ref)
}

// Attach gives the actor an edge to an existing reference.
// Returns *domain.ConflictError if the actor already owns it.
func (r *OwnershipRegistry) Attach(ctx context.Context, actorID, referenceID string) (*models.Reference, error) {
	var result *models.Reference
	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		ref, err := r.refs.GetByID(txCtx, referenceID)
		if err != nil {
			return err
		}
		result, err = r.attach(txCtx, actorID, ref)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.metrics.ReferenceStored(string(librarySvc.OutcomeShared))
	r.logger.Info("reference shared", "id", result.ID, "actor_id", actorID)

	return result, nil
}

// GrantFromExternalImport enriches a reference the actor owns with an
// external record. Empty descriptive fields are filled; bibliographic
// identifiers are always overwritten.
func (r *OwnershipRegistry) GrantFromExternalImport(
	ctx context.Context,
	actorID, referenceID string,
	record *models.LookupRecord,
) (*models.Reference, error) {
	var result *models.Reference
	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		ref, err := r.ReadFor(txCtx, actorID, referenceID)
		if err != nil {
			return err
		}

		if ref.Title == "" || (ref.Filename != nil && ref.Title == *ref.Filename) {
			ref.Title = record.Title
		}
		if ref.Authors == "" {
			ref.Authors = record.Authors
		}
		if ref.Journal == "" {
			ref.Journal = record.Journal
		}
		if ref.Year == "" {
			ref.Year = record.YearOrPublished()
		}

		ref.ExternalID = record.ExternalID
		ref.DOI = record.DOI
		ref.Abstract = record.Abstract
		ref.Keywords = record.Keywords
		ref.PublicationDate = record.PublicationDate
		ref.URL = record.URL
		ref.Citation = record.Citation
		ref.UpdatedAt = r.now()

		if err := r.refs.Update(txCtx, ref); err != nil {
			return err
		}
		result = ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("reference enriched from import",
		"id", result.ID,
		"external_id", derefOr(result.ExternalID, ""),
		"actor_id", actorID,
	)

	return result, nil
}

// ListFor returns the references the actor owns, filtered and sorted
func (r *OwnershipRegistry) ListFor(ctx context.Context, actorID string, opts ListOptions) ([]models.Reference, error) {
	refs, err := r.refs.ListByOwner(ctx, actorID, &libraryRepo.ReferenceFilter{
		Search:    opts.Search,
		ProjectID: opts.ProjectID,
	})
	if err != nil {
		return nil, err
	}

	sortReferences(refs, opts.Sort)
	return refs, nil
}

// Revoke removes the actor's edge and deletes the reference once no owner remains
func (r *OwnershipRegistry) Revoke(ctx context.Context, actorID, referenceID string) (librarySvc.RevokeOutcome, error) {
	var outcome librarySvc.RevokeOutcome
	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := r.refs.Lock(txCtx, referenceID); err != nil {
			return err
		}

		removed, err := r.owners.Remove(txCtx, referenceID, actorID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("reference %s: %w", referenceID, domain.ErrNotFound)
		}

		remaining, err := r.owners.Count(txCtx, referenceID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			outcome = librarySvc.OutcomeUnshared
			return nil
		}

		if err := r.refs.Delete(txCtx, referenceID); err != nil {
			return err
		}
		outcome = librarySvc.OutcomeDeleted
		return nil
	})
	if err != nil {
		return "", err
	}

	r.metrics.ReferenceRevoked(string(outcome))
	r.logger.Info("reference access revoked",
		"id", referenceID,
		"outcome", outcome,
		"actor_id", actorID,
	)

	return outcome, nil
}

// ReadFor returns the reference if the actor owns it
func (r *OwnershipRegistry) ReadFor(ctx context.Context, actorID, referenceID string) (*models.Reference, error) {
	owned, err := r.owners.Exists(ctx, referenceID, actorID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, fmt.Errorf("reference %s: %w", referenceID, domain.ErrNotFound)
	}

	return r.refs.GetByID(ctx, referenceID)
}

func (r *OwnershipRegistry) newReference(meta models.Metadata) *models.Reference {
	now := r.now()
	ref := &models.Reference{
		Keywords:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	meta.Apply(ref)
	return ref
}

// create stores a digest-less reference with the actor as its first owner
func (r *OwnershipRegistry) create(ctx context.Context, actorID string, ref *models.Reference) (*models.Reference, error) {
	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return r.insert(txCtx, actorID, ref)
	})
	if err != nil {
		return nil, err
	}

	r.metrics.ReferenceStored(string(librarySvc.OutcomeCreated))
	r.logger.Info("reference created",
		"id", ref.ID,
		"title", ref.Title,
		"actor_id", actorID,
	)

	return ref, nil
}

func (r *OwnershipRegistry) insert(ctx context.Context, actorID string, ref *models.Reference) error {
	if err := r.refs.Create(ctx, ref); err != nil {
		return err
	}
	return r.owners.Add(ctx, ref.ID, actorID)
}

// attach locks the reference and adds the actor's edge.
// Returns domain.ErrNotFound if the reference vanished.
func (r *OwnershipRegistry) attach(ctx context.Context, actorID string, ref *models.Reference) (*models.Reference, error) {
	if err := r.refs.Lock(ctx, ref.ID); err != nil {
		return nil, err
	}

	owned, err := r.owners.Exists(ctx, ref.ID, actorID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domain.NewConflictError("reference", ref.ID, "reference already exists in your library")
	}

	if err := r.owners.Add(ctx, ref.ID, actorID); err != nil {
		return nil, err
	}
	return ref, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
