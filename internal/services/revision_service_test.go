package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"treelof-api/internal/logger"
	"treelof-api/internal/metrics"
	"treelof-api/internal/models"
	"treelof-api/internal/references"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID = "23504e74-b9e7-4a69-8003-843bad54a207"

type memoryStore struct {
	rows      []*models.Revision
	nextID    int64
	insertErr error
	listErr   error
	inserts   int
}

func (m *memoryStore) InsertBatch(ctx context.Context, revs []*models.Revision) error {
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, rev := range revs {
		m.nextID++
		rev.ID = m.nextID
		rev.CreatedAt = created
		cp := *rev
		m.rows = append(m.rows, &cp)
	}
	return nil
}

func (m *memoryStore) ListByReference(ctx context.Context, reference, referenceID string) ([]*models.Revision, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*models.Revision{}
	for _, rev := range m.rows {
		if rev.Reference == reference && rev.ReferenceID == referenceID {
			cp := *rev
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	profiles map[string]*models.Profile
	err      error
	asked    [][]string
}

func (f *fakeProfiles) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	f.asked = append(f.asked, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]*models.Profile{}
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type recordingPublisher struct {
	batches [][]*models.Revision
}

func (r *recordingPublisher) Publish(revs []*models.Revision) {
	r.batches = append(r.batches, revs)
}

type fixture struct {
	svc       *RevisionService
	store     *memoryStore
	profiles  *fakeProfiles
	publisher *recordingPublisher
	lookups   int
	lookupErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &memoryStore{},
		profiles: &fakeProfiles{profiles: map[string]*models.Profile{
			ownerID: {ID: ownerID, Username: "fern"},
		}},
		publisher: &recordingPublisher{},
	}

	reg := references.NewRegistry()
	reg.Register("plants", references.ResolverFunc(func(ctx context.Context, id string) (models.Record, error) {
		f.lookups++
		if f.lookupErr != nil {
			return nil, f.lookupErr
		}
		if id != "42" {
			return nil, references.ErrEntityNotFound
		}
		return models.Record{
			"id":          json.RawMessage(`42`),
			"color":       json.RawMessage(`"green"`),
			"edibilities": json.RawMessage(`["fruit"]`),
		}, nil
	}))

	f.svc = NewRevisionService(f.store, reg, f.profiles, logger.Nop())
	f.svc.SetPublisher(f.publisher)
	return f
}

func changes(t *testing.T, body string) models.Changes {
	t.Helper()
	var c models.Changes
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	return c
}

func TestProposeCreatesOneRevisionPerField(t *testing.T) {
	f := newFixture(t)

	revs, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"color":"red","height":"10cm"}`),
	})
	require.NoError(t, err)
	require.Len(t, revs, 2)

	assert.Equal(t, "color", revs[0].Field)
	assert.JSONEq(t, `"green"`, string(revs[0].OldValue))
	assert.JSONEq(t, `"red"`, string(revs[0].NewValue))

	assert.Equal(t, "height", revs[1].Field)
	assert.Nil(t, revs[1].OldValue)
	assert.JSONEq(t, `"10cm"`, string(revs[1].NewValue))

	for _, rev := range revs {
		assert.Equal(t, models.RevisionStatusPending, rev.Status)
		assert.Equal(t, ownerID, rev.OwnerID)
		assert.Equal(t, "plants", rev.Reference)
		assert.Equal(t, "42", rev.ReferenceID)
		assert.NotZero(t, rev.ID)
		assert.False(t, rev.CreatedAt.IsZero())
	}

	assert.Equal(t, 1, f.store.inserts)
	require.Len(t, f.publisher.batches, 1)
	assert.Len(t, f.publisher.batches[0], 2)
}

func TestProposeArrayValues(t *testing.T) {
	f := newFixture(t)

	revs, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"edibilities":["roots","leaves"],"sun_preferences":["full_shade"]}`),
	})
	require.NoError(t, err)
	require.Len(t, revs, 2)

	assert.JSONEq(t, `["fruit"]`, string(revs[0].OldValue))
	assert.JSONEq(t, `["roots","leaves"]`, string(revs[0].NewValue))
	assert.Nil(t, revs[1].OldValue)
}

func TestProposeUntrustedShortCircuits(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Propose(context.Background(), false, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"color":"red"}`),
	})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, f.lookups)
	assert.Equal(t, 0, f.store.inserts)
}

func TestProposeUntrustedIsCounted(t *testing.T) {
	f := newFixture(t)
	counter := metrics.RevisionErrorsTotal.WithLabelValues("propose", "unauthorized")
	before := testutil.ToFloat64(counter)

	_, err := f.svc.Propose(context.Background(), false, nil)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestProposeStoresCanonicalOwnerID(t *testing.T) {
	for _, raw := range []string{
		"urn:uuid:" + ownerID,
		"{" + ownerID + "}",
		"23504E74-B9E7-4A69-8003-843BAD54A207",
	} {
		f := newFixture(t)

		revs, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
			OwnerID:     raw,
			Reference:   "plants",
			ReferenceID: "42",
			Changes:     changes(t, `{"color":"red"}`),
		})
		require.NoError(t, err, raw)
		require.Len(t, revs, 1)
		assert.Equal(t, ownerID, revs[0].OwnerID, raw)
		require.Len(t, f.store.rows, 1)
		assert.Equal(t, ownerID, f.store.rows[0].OwnerID, raw)
	}
}

func TestProposeValidation(t *testing.T) {
	cases := map[string]*models.CreateRevisionRequest{
		"nil request":       nil,
		"missing reference": {OwnerID: ownerID, ReferenceID: "42", Changes: models.Changes{{Field: "a", Value: json.RawMessage(`1`)}}},
		"missing id":        {OwnerID: ownerID, Reference: "plants", Changes: models.Changes{{Field: "a", Value: json.RawMessage(`1`)}}},
		"blank id":          {OwnerID: ownerID, Reference: "plants", ReferenceID: "  ", Changes: models.Changes{{Field: "a", Value: json.RawMessage(`1`)}}},
		"no changes":        {OwnerID: ownerID, Reference: "plants", ReferenceID: "42"},
		"bad owner":         {OwnerID: "someone", Reference: "plants", ReferenceID: "42", Changes: models.Changes{{Field: "a", Value: json.RawMessage(`1`)}}},
		"empty field":       {OwnerID: ownerID, Reference: "plants", ReferenceID: "42", Changes: models.Changes{{Field: "", Value: json.RawMessage(`1`)}}},
		"unknown reference": {OwnerID: ownerID, Reference: "animals", ReferenceID: "42", Changes: models.Changes{{Field: "a", Value: json.RawMessage(`1`)}}},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Propose(context.Background(), true, req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, 0, f.store.inserts)
		})
	}
}

func TestProposeMissingEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "999",
		Changes:     changes(t, `{"color":"red"}`),
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.store.inserts)
	assert.Empty(t, f.store.rows)
}

func TestProposeLookupFailureIsStorageError(t *testing.T) {
	f := newFixture(t)
	f.lookupErr = errors.New("connection refused")

	_, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"color":"red"}`),
	})

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, f.lookupErr)
}

func TestProposeInsertFailureReturnsNothing(t *testing.T) {
	f := newFixture(t)
	f.store.insertErr = errors.New("deadlock detected")

	revs, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"color":"red","height":"1m"}`),
	})

	assert.Nil(t, revs)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, f.publisher.batches)
}

func TestListRequiresKeys(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), false, "plants", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.List(context.Background(), true, "", "42")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListEmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)

	views, err := f.svc.List(context.Background(), false, "plants", "42")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestListQueryFailureIsStorageError(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("timeout")

	_, err := f.svc.List(context.Background(), false, "plants", "42")
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func proposeTwo(t *testing.T, f *fixture) []*models.Revision {
	t.Helper()
	revs, err := f.svc.Propose(context.Background(), true, &models.CreateRevisionRequest{
		OwnerID:     ownerID,
		Reference:   "plants",
		ReferenceID: "42",
		Changes:     changes(t, `{"color":"red","height":"10cm"}`),
	})
	require.NoError(t, err)
	return revs
}

func TestListUntrustedProjection(t *testing.T) {
	f := newFixture(t)
	approved := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	proposeTwo(t, f)
	f.store.rows[0].ApprovedOn = &approved

	views, err := f.svc.List(context.Background(), false, "plants", "42")
	require.NoError(t, err)
	require.Len(t, views, 2)

	for _, v := range views {
		pub, ok := v.(*models.PublicRevision)
		require.True(t, ok, "untrusted callers get public views, got %T", v)

		body, err := json.Marshal(pub)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(body, &fields))
		assert.NotContains(t, fields, "owner_id")
		assert.NotContains(t, fields, "approved_on")
		assert.NotContains(t, fields, "rejected_on")
		assert.Contains(t, fields, "created_at")
	}
	assert.Empty(t, f.profiles.asked)
}

func TestListTrustedRoundTrip(t *testing.T) {
	f := newFixture(t)
	written := proposeTwo(t, f)

	views, err := f.svc.List(context.Background(), true, "plants", "42")
	require.NoError(t, err)
	require.Len(t, views, len(written))

	for i, v := range views {
		detail, ok := v.(*models.RevisionDetail)
		require.True(t, ok, "trusted callers get full records, got %T", v)
		assert.Equal(t, written[i].ID, detail.ID)
		assert.Equal(t, written[i].Field, detail.Field)
		assert.Equal(t, written[i].OwnerID, detail.OwnerID)
		assert.JSONEq(t, string(written[i].NewValue), string(detail.NewValue))
		require.NotNil(t, detail.Owner)
		assert.Equal(t, "fern", detail.Owner.Username)
	}
	require.Len(t, f.profiles.asked, 1)
	assert.Equal(t, []string{ownerID}, f.profiles.asked[0])
}

func TestListTrustedProfileFailure(t *testing.T) {
	f := newFixture(t)
	proposeTwo(t, f)
	f.profiles.err = errors.New("profiles unavailable")

	_, err := f.svc.List(context.Background(), true, "plants", "42")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestHistoryGroupsByDay(t *testing.T) {
	f := newFixture(t)
	proposeTwo(t, f)

	groups, err := f.svc.History(context.Background(), false, "plants", "42")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-05-01", groups[0].Date)
	assert.Len(t, groups[0].Revisions, 2)
}

func TestConcurrentProposalsAreIndependent(t *testing.T) {
	f := newFixture(t)
	proposeTwo(t, f)
	proposeTwo(t, f)

	views, err := f.svc.List(context.Background(), true, "plants", "42")
	require.NoError(t, err)
	assert.Len(t, views, 4)
	for _, v := range views {
		assert.Equal(t, models.RevisionStatusPending, v.(*models.RevisionDetail).Status)
	}
}
