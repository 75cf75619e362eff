package services

import (
	"context"
	"errors"
	"strings"

	"treelof-api/internal/logger"
	"treelof-api/internal/metrics"
	"treelof-api/internal/models"
	"treelof-api/internal/references"
	"treelof-api/internal/revisions"

	"github.com/google/uuid"
)

type RevisionStore interface {
	InsertBatch(ctx context.Context, revs []*models.Revision) error
	ListByReference(ctx context.Context, reference, referenceID string) ([]*models.Revision, error)
}

type EntityResolver interface {
	Resolve(ctx context.Context, reference, id string) (models.Record, error)
}

type ProfileResolver interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error)
}

// RevisionPublisher receives every batch of revisions after it is stored.
type RevisionPublisher interface {
	Publish(revs []*models.Revision)
}

// RevisionService proposes field level edits against referenced entities and
// reads them back. It holds no per-request state.
type RevisionService struct {
	store     RevisionStore
	entities  EntityResolver
	profiles  ProfileResolver
	publisher RevisionPublisher
	log       *logger.Logger
}

func NewRevisionService(store RevisionStore, entities EntityResolver, profiles ProfileResolver, log *logger.Logger) *RevisionService {
	return &RevisionService{
		store:    store,
		entities: entities,
		profiles: profiles,
		log:      log.With("component", "revisions"),
	}
}

// SetPublisher wires the live revision feed. Optional.
func (s *RevisionService) SetPublisher(p RevisionPublisher) {
	s.publisher = p
}

// Propose stores one pending revision per entry of req.Changes. trusted must
// be the caller's origin trust; untrusted callers are refused before any
// other work happens.
func (s *RevisionService) Propose(ctx context.Context, trusted bool, req *models.CreateRevisionRequest) ([]*models.Revision, error) {
	revs, err := s.propose(ctx, trusted, req)
	if err != nil {
		metrics.RevisionErrorsTotal.WithLabelValues("propose", string(KindOf(err))).Inc()
		return nil, err
	}
	return revs, nil
}

func (s *RevisionService) propose(ctx context.Context, trusted bool, req *models.CreateRevisionRequest) ([]*models.Revision, error) {
	if !trusted {
		return nil, &RevisionError{Kind: KindUnauthorized, Message: "revisions can only be proposed from a trusted origin"}
	}
	if req == nil {
		return nil, validationError("request body is required")
	}

	reference := strings.TrimSpace(req.Reference)
	referenceID := strings.TrimSpace(req.ReferenceID)
	if reference == "" || referenceID == "" {
		return nil, validationError("reference and reference_id are required")
	}
	if len(req.Changes) == 0 {
		return nil, validationError("changes must contain at least one field")
	}
	owner, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return nil, validationError("owner_id must be a UUID")
	}
	// braced and urn forms parse too; rows always carry the canonical form
	ownerID := owner.String()
	for _, ch := range req.Changes {
		if strings.TrimSpace(ch.Field) == "" {
			return nil, validationError("change field names must not be empty")
		}
	}

	entity, err := s.entities.Resolve(ctx, reference, referenceID)
	switch {
	case errors.Is(err, references.ErrUnknownReference):
		return nil, validationError("unsupported reference " + reference)
	case errors.Is(err, references.ErrEntityNotFound):
		return nil, &RevisionError{Kind: KindNotFound, Message: reference + " " + referenceID + " not found"}
	case err != nil:
		s.log.Error("reference lookup failed", "reference", reference, "reference_id", referenceID, "error", err)
		return nil, storageError("failed to load "+reference, err)
	}

	revs := BuildRevisions(entity, ownerID, reference, referenceID, req.Changes)

	if err := s.store.InsertBatch(ctx, revs); err != nil {
		s.log.Error("revision insert failed", "reference", reference, "reference_id", referenceID, "count", len(revs), "error", err)
		return nil, storageError("failed to save revisions", err)
	}

	metrics.RevisionsProposedTotal.WithLabelValues(reference).Add(float64(len(revs)))
	s.log.Info("revisions proposed", "reference", reference, "reference_id", referenceID, "count", len(revs))

	if s.publisher != nil {
		s.publisher.Publish(revs)
	}
	return revs, nil
}

// BuildRevisions turns changes into pending revisions, snapshotting each
// field's current value from entity. Fields missing from entity get no
// old_value.
func BuildRevisions(entity models.Record, ownerID, reference, referenceID string, changes models.Changes) []*models.Revision {
	revs := make([]*models.Revision, 0, len(changes))
	for _, ch := range changes {
		revs = append(revs, &models.Revision{
			Field:       ch.Field,
			OldValue:    entity.Value(ch.Field),
			NewValue:    ch.Value,
			OwnerID:     ownerID,
			Status:      models.RevisionStatusPending,
			Reference:   reference,
			ReferenceID: referenceID,
		})
	}
	return revs
}

// List returns every revision of (reference, referenceID). Untrusted callers
// get *models.PublicRevision views; trusted callers get *models.RevisionDetail
// with owner profiles attached. An empty history is an empty slice, not an
// error.
func (s *RevisionService) List(ctx context.Context, trusted bool, reference, referenceID string) ([]models.RevisionView, error) {
	views, err := s.list(ctx, trusted, reference, referenceID)
	if err != nil {
		metrics.RevisionErrorsTotal.WithLabelValues("list", string(KindOf(err))).Inc()
		return nil, err
	}
	return views, nil
}

func (s *RevisionService) list(ctx context.Context, trusted bool, reference, referenceID string) ([]models.RevisionView, error) {
	reference = strings.TrimSpace(reference)
	referenceID = strings.TrimSpace(referenceID)
	if reference == "" || referenceID == "" {
		return nil, validationError("reference and reference_id are required")
	}

	revs, err := s.store.ListByReference(ctx, reference, referenceID)
	if err != nil {
		s.log.Error("revision query failed", "reference", reference, "reference_id", referenceID, "error", err)
		return nil, storageError("failed to load revisions", err)
	}

	if !trusted {
		return Project(revs), nil
	}

	owners, err := s.profiles.GetByIDs(ctx, ownerIDs(revs))
	if err != nil {
		s.log.Error("profile lookup failed", "reference", reference, "reference_id", referenceID, "error", err)
		return nil, storageError("failed to load revision owners", err)
	}

	views := make([]models.RevisionView, 0, len(revs))
	for _, rev := range revs {
		views = append(views, &models.RevisionDetail{Revision: rev, Owner: owners[rev.OwnerID]})
	}
	return views, nil
}

// History is List grouped by calendar day.
func (s *RevisionService) History(ctx context.Context, trusted bool, reference, referenceID string) ([]revisions.DateGroup[models.RevisionView], error) {
	views, err := s.List(ctx, trusted, reference, referenceID)
	if err != nil {
		return nil, err
	}
	return revisions.GroupByDate(views), nil
}

// Project maps revs to the public projection.
func Project(revs []*models.Revision) []models.RevisionView {
	views := make([]models.RevisionView, 0, len(revs))
	for _, rev := range revs {
		views = append(views, rev.Public())
	}
	return views
}

func ownerIDs(revs []*models.Revision) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, rev := range revs {
		if rev.OwnerID == "" || seen[rev.OwnerID] {
			continue
		}
		seen[rev.OwnerID] = true
		ids = append(ids, rev.OwnerID)
	}
	return ids
}
