package library

import (
	"context"
	"log/slog"
	"time"

	"scriptorium/internal/config"
	models "scriptorium/internal/domain/models/library"
	"scriptorium/internal/domain/repositories"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	"scriptorium/internal/metrics"
)

// RevisionLedger keeps a bounded history of a document's text. Every text
// change goes through SnapshotIfChanged, which records the text being
// replaced and trims the history in the same transaction.
type RevisionLedger struct {
	revisions libraryRepo.RevisionRepository
	documents libraryRepo.DocumentRepository
	txManager repositories.TransactionManager
	limit     int
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// NewRevisionLedger creates a ledger retaining at most limit revisions per
// document. A limit below one falls back to config.DefaultRevisionLimit.
func NewRevisionLedger(
	revisions libraryRepo.RevisionRepository,
	documents libraryRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	limit int,
	collector *metrics.Collector,
	logger *slog.Logger,
) *RevisionLedger {
	if limit < 1 {
		limit = config.DefaultRevisionLimit
	}
	return &RevisionLedger{
		revisions: revisions,
		documents: documents,
		txManager: txManager,
		limit:     limit,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Limit returns the number of revisions retained per document
func (l *RevisionLedger) Limit() int {
	return l.limit
}

// SnapshotIfChanged replaces the document text with proposed, first recording
// the current text as a revision. Absent text compares equal to "". Reports
// whether anything changed; doc is updated in place when it did.
func (l *RevisionLedger) SnapshotIfChanged(ctx context.Context, doc *models.Document, proposed *string) (bool, error) {
	if doc.CurrentText() == textOf(proposed) {
		return false, nil
	}

	now := l.now()
	err := l.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		rev := &models.Revision{
			DocumentID: doc.ID,
			Text:       doc.CurrentText(),
			CreatedAt:  now,
		}
		if err := l.revisions.Create(txCtx, rev); err != nil {
			return err
		}
		if err := l.documents.UpdateText(txCtx, doc.ID, proposed, now); err != nil {
			return err
		}
		_, err := l.Trim(txCtx, doc.ID)
		return err
	})
	if err != nil {
		return false, err
	}

	doc.Text = proposed
	doc.UpdatedAt = now

	l.metrics.RevisionRecorded()
	l.logger.Debug("revision recorded", "document_id", doc.ID)

	return true, nil
}

// Trim deletes the document's revisions beyond the retention limit, oldest first
func (l *RevisionLedger) Trim(ctx context.Context, documentID string) (int64, error) {
	removed, err := l.revisions.Trim(ctx, documentID, l.limit)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		l.metrics.RevisionsRemoved(removed)
		l.logger.Debug("revisions trimmed",
			"document_id", documentID,
			"removed", removed,
			"limit", l.limit,
		)
	}

	return removed, nil
}

// List returns the document's revisions, oldest first
func (l *RevisionLedger) List(ctx context.Context, documentID string) ([]models.Revision, error) {
	return l.revisions.ListByDocument(ctx, documentID)
}

// Restore sets the document text back to a revision's text. Restoring to the
// current text is a no-op. Returns domain.ErrNotFound if the revision belongs
// to another document.
func (l *RevisionLedger) Restore(ctx context.Context, doc *models.Document, revisionID string) (bool, error) {
	rev, err := l.revisions.GetByID(ctx, revisionID, doc.ID)
	if err != nil {
		return false, err
	}

	text := rev.Text
	return l.SnapshotIfChanged(ctx, doc, &text)
}

func textOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
