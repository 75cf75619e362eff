package models

import (
	"encoding/json"
	"time"
)

type RevisionStatus string

const (
	RevisionStatusPending  RevisionStatus = "pending"
	RevisionStatusApproved RevisionStatus = "approved"
	RevisionStatusRejected RevisionStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RevisionStatus) Valid() bool {
	switch s {
	case RevisionStatusPending, RevisionStatusApproved, RevisionStatusRejected:
		return true
	}
	return false
}

// Revision is a proposed change to a single field of a referenced entity.
// OldValue is nil when the field did not exist on the entity at proposal time.
type Revision struct {
	ID          int64           `json:"id"`
	Field       string          `json:"field"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value"`
	OwnerID     string          `json:"owner_id"`
	Status      RevisionStatus  `json:"status"`
	Reference   string          `json:"reference"`
	ReferenceID string          `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at"`
	ApprovedOn  *time.Time      `json:"approved_on,omitempty"`
	RejectedOn  *time.Time      `json:"rejected_on,omitempty"`
}

// BucketTime is the timestamp a revision is grouped under in the history view.
func (r *Revision) BucketTime() time.Time {
	if r.ApprovedOn != nil {
		return *r.ApprovedOn
	}
	if r.RejectedOn != nil {
		return *r.RejectedOn
	}
	return r.CreatedAt
}

// PublicRevision is the projection handed to untrusted callers. Owner identity
// and moderation timestamps are withheld.
type PublicRevision struct {
	ID          int64           `json:"id"`
	Field       string          `json:"field"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value"`
	Status      RevisionStatus  `json:"status"`
	Reference   string          `json:"reference"`
	ReferenceID string          `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *PublicRevision) BucketTime() time.Time {
	return p.CreatedAt
}

// Public returns the restricted projection of r.
func (r *Revision) Public() *PublicRevision {
	return &PublicRevision{
		ID:          r.ID,
		Field:       r.Field,
		OldValue:    r.OldValue,
		NewValue:    r.NewValue,
		Status:      r.Status,
		Reference:   r.Reference,
		ReferenceID: r.ReferenceID,
		CreatedAt:   r.CreatedAt,
	}
}

// RevisionDetail is the full record returned to trusted callers, joined with
// the owner's profile when one exists.
type RevisionDetail struct {
	*Revision
	Owner *Profile `json:"owner,omitempty"`
}

// RevisionView is either a *PublicRevision or a *RevisionDetail.
type RevisionView interface {
	BucketTime() time.Time
}

// CreateRevisionRequest is the body of POST /revisions
type CreateRevisionRequest struct {
	OwnerID     string  `json:"owner_id"`
	Reference   string  `json:"reference"`
	ReferenceID string  `json:"reference_id"`
	Changes     Changes `json:"changes"`
}
