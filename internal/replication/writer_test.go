package replication

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newStore(w *Writer) *store.Store {
	return store.New(cache.NewMemoryCache(),
		store.WithClock(func() time.Time { return fixedNow }),
		store.WithReplicator(w))
}

func raise(t *testing.T, st *store.Store) (types.Requirement, error) {
	t.Helper()
	return st.InsertRequirement(context.Background(), types.Requirement{
		ID:       "REQ-1",
		JobRole:  "Accountant",
		Status:   types.RequirementRaised,
		RaisedBy: "ea@example.com",
	}, store.Mutation{
		Action: "raiseRequirement",
		Actor:  types.Actor{Email: "ea@example.com", Role: types.RoleEA},
	})
}

func TestWriter_OptimisticHidesTransportFailures(t *testing.T) {
	sink := &recordingSink{fails: -1}
	outbox := NewOutbox(sink, WithRetryPolicy(noDelay(1)))
	st := newStore(NewWriter(config.WriteOptimistic, outbox, sink))

	r, err := raise(t, st)
	require.NoError(t, err)
	assert.Equal(t, "REQ-1", r.ID)

	pending := outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "raiseRequirement", pending[0].Action)
	assert.Equal(t, "REQ-1", pending[0].RecordID)
	assert.Equal(t, "ea@example.com", pending[0].Actor)
	assert.JSONEq(t, string(pending[0].Record), string(pending[0].Payload), "record is the payload when no fields are given")

	require.NoError(t, outbox.Flush(context.Background()))
	assert.Len(t, outbox.DeadLetters(), 1)

	_, err = st.Requirement("REQ-1")
	assert.NoError(t, err, "local state keeps the write")
}

func TestWriter_StrictLeavesLocalStateOnFailure(t *testing.T) {
	sink := &recordingSink{fails: 1}
	outbox := NewOutbox(sink)
	st := newStore(NewWriter(config.WriteStrict, outbox, sink))

	_, err := raise(t, st)
	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "raiseRequirement", te.Action)

	_, err = st.Requirement("REQ-1")
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Empty(t, slices.Collect(st.Requirements()))
	assert.Empty(t, st.Audit())

	_, err = raise(t, st)
	require.NoError(t, err)
	assert.Len(t, sink.requests(), 1)
	assert.Zero(t, outbox.Len(), "strict writes bypass the outbox")
}

func TestWriter_StrictKeepsTransportError(t *testing.T) {
	want := &types.TransportError{Action: "raiseRequirement", Message: "quota exceeded"}
	sink := SinkFunc(func(context.Context, Request) error { return want })
	st := newStore(NewWriter(config.WriteStrict, nil, sink))

	_, err := raise(t, st)
	assert.True(t, errors.Is(err, want))
}

func TestFromChange_UsesFields(t *testing.T) {
	req, err := FromChange(store.Change{
		Action:   "shortlistCandidate",
		Kind:     store.KindCandidate,
		RecordID: "CAND-1",
		Fields:   map[string]any{"candidateId": "CAND-1", "decision": "Approved"},
		Record:   types.Candidate{ID: "CAND-1"},
		At:       fixedNow,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidateId":"CAND-1","decision":"Approved"}`, string(req.Payload))
	assert.Contains(t, string(req.Record), `"id":"CAND-1"`)
	assert.Equal(t, fixedNow, req.EnqueuedAt)
	assert.NotEmpty(t, req.ID)
}

func TestWriter_FailedSendDoesNotRollBackMirror(t *testing.T) {
	mirror := newMirrorSink()
	failed := false
	sink := SinkFunc(func(ctx context.Context, r Request) error {
		if r.Action == "shortlistCandidate" && !failed {
			failed = true
			return errors.New("sink unavailable")
		}
		return mirror.Send(ctx, r)
	})
	outbox := NewOutbox(sink, WithRetryPolicy(noDelay(3)))
	st := newStore(NewWriter(config.WriteOptimistic, outbox, sink))
	ctx := context.Background()
	m := func(action string) store.Mutation {
		return store.Mutation{Action: action, Actor: types.Actor{Email: "hr@example.com", Role: types.RoleHR}}
	}

	_, err := st.InsertCandidates(ctx, []types.Candidate{{ID: "CAND-1", RequirementID: "REQ-1", Name: "Asha"}}, m("uploadCandidates"))
	require.NoError(t, err)
	require.NoError(t, outbox.Flush(ctx))

	_, err = st.UpdateCandidate(ctx, "CAND-1", m("shortlistCandidate"), func(c *types.Candidate) error {
		c.ShortlistingStatus = types.ShortlistApproved
		return nil
	})
	require.NoError(t, err)
	_, err = st.UpdateCandidate(ctx, "CAND-1", m("recordTelephonic"), func(c *types.Candidate) error {
		c.TelephonicStatus = types.TelephonicCallBack
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, outbox.Flush(ctx))

	var got types.Candidate
	mirror.mu.Lock()
	require.NoError(t, json.Unmarshal([]byte(mirror.records["CAND-1"]), &got))
	mirror.mu.Unlock()
	assert.Equal(t, types.ShortlistApproved, got.ShortlistingStatus)
	assert.Equal(t, types.TelephonicCallBack, got.TelephonicStatus)
	assert.Equal(t, []string{"uploadCandidates", "shortlistCandidate", "recordTelephonic"}, mirror.order)
}
