package repositories

import (
	"context"
	"encoding/json"
	"time"

	"treelof-api/internal/cache"
	"treelof-api/internal/logger"
	"treelof-api/internal/models"
)

type revisionBackend interface {
	InsertBatch(ctx context.Context, revs []*models.Revision) error
	ListByReference(ctx context.Context, reference, referenceID string) ([]*models.Revision, error)
}

// CachedRevisionStore serves ListByReference from Redis when possible.
// Every cached list is tagged with the reference's generation at read time;
// inserts and database change notifications bump the generation, so a list
// read before a change is never served after it.
type CachedRevisionStore struct {
	next revisionBackend
	ttl  time.Duration
	log  *logger.Logger
}

func NewCachedRevisionStore(next revisionBackend, ttl time.Duration, log *logger.Logger) *CachedRevisionStore {
	return &CachedRevisionStore{next: next, ttl: ttl, log: log}
}

func (s *CachedRevisionStore) InsertBatch(ctx context.Context, revs []*models.Revision) error {
	if err := s.next.InsertBatch(ctx, revs); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, rev := range revs {
		key := cache.RevisionListKey(rev.Reference, rev.ReferenceID)
		if seen[key] {
			continue
		}
		seen[key] = true
		s.Invalidate(ctx, rev.Reference, rev.ReferenceID)
	}
	return nil
}

// Invalidate makes every list cached so far for the reference stale.
func (s *CachedRevisionStore) Invalidate(ctx context.Context, reference, referenceID string) {
	if err := cache.InvalidateRevisionCaches(ctx, reference, referenceID); err != nil {
		s.log.Warn("revision cache invalidation failed", "reference", reference, "reference_id", referenceID, "error", err)
	}
}

func (s *CachedRevisionStore) ListByReference(ctx context.Context, reference, referenceID string) ([]*models.Revision, error) {
	if data, ok := cache.GetRevisionList(ctx, reference, referenceID); ok {
		var revs []*models.Revision
		if err := json.Unmarshal(data, &revs); err == nil {
			return revs, nil
		}
		s.log.Warn("discarding undecodable cache entry", "reference", reference, "reference_id", referenceID)
	}

	// the generation must be read before the rows
	gen, genOK := cache.RevisionGeneration(ctx, reference, referenceID)

	revs, err := s.next.ListByReference(ctx, reference, referenceID)
	if err != nil {
		return nil, err
	}

	if genOK {
		if data, err := json.Marshal(revs); err == nil {
			cache.SetRevisionList(ctx, reference, referenceID, gen, data, s.ttl)
		}
	}
	return revs, nil
}
