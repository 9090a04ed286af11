package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	libraryRepo "scriptorium/internal/domain/repositories/library"
)

// DigestOf returns the lowercase hex SHA-256 of a payload
func DigestOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ContentAddressStore maps payload digests to the single reference holding them
type ContentAddressStore struct {
	refs libraryRepo.ReferenceRepository
}

// NewContentAddressStore creates a content address store
func NewContentAddressStore(refs libraryRepo.ReferenceRepository) *ContentAddressStore {
	return &ContentAddressStore{refs: refs}
}

// DigestOf returns the digest a payload is stored under
func (s *ContentAddressStore) DigestOf(payload []byte) string {
	return DigestOf(payload)
}

// FindByDigest returns the reference holding the digest, or nil if none does
func (s *ContentAddressStore) FindByDigest(ctx context.Context, digest string) (*models.Reference, error) {
	ref, err := s.refs.GetByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}
