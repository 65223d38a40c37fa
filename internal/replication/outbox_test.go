package replication

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	sent  []Request
	fails int // fail this many sends before succeeding; -1 fails forever
}

func (s *recordingSink) Send(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != 0 {
		if s.fails > 0 {
			s.fails--
		}
		return errors.New("sink unavailable")
	}
	s.sent = append(s.sent, req)
	return nil
}

func (s *recordingSink) requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.sent...)
}

func noDelay(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Multiplier: 2}
}

func req(action, recordID, payload string) Request {
	return Request{
		ID:       action + "-" + recordID + "-" + payload,
		Action:   action,
		RecordID: recordID,
		Payload:  json.RawMessage(payload),
	}
}

func TestOutbox_CoalescesPendingRequests(t *testing.T) {
	sink := &recordingSink{}
	o := NewOutbox(sink, WithRetryPolicy(noDelay(3)))

	require.NoError(t, o.Enqueue(req("shortlistCandidate", "CAND-1", `{"decision":"Approved"}`)))
	require.NoError(t, o.Enqueue(req("recordTelephonic", "CAND-1", `{"status":"Call Back"}`)))
	require.NoError(t, o.Enqueue(req("shortlistCandidate", "CAND-1", `{"decision":"Rejected"}`)))
	assert.Equal(t, 2, o.Len())

	require.NoError(t, o.Flush(context.Background()))

	sent := sink.requests()
	require.Len(t, sent, 2)
	assert.Equal(t, "recordTelephonic", sent[0].Action)
	assert.Equal(t, "shortlistCandidate", sent[1].Action, "coalesced request moves behind newer ones")
	assert.JSONEq(t, `{"decision":"Rejected"}`, string(sent[1].Payload), "latest payload wins")

	stats := o.Stats()
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Coalesced)
	assert.Zero(t, stats.Pending)
}

func TestOutbox_RetriesThenDeadLetters(t *testing.T) {
	c := cache.NewMemoryCache()
	sink := &recordingSink{fails: -1}
	o := NewOutbox(sink, WithRetryPolicy(noDelay(3)), WithDeadLetterCache(c))

	require.NoError(t, o.Enqueue(req("ownerReview", "CAND-9", `{"decision":"Hold"}`)))
	require.NoError(t, o.Flush(context.Background()))

	dead := o.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Attempts)
	assert.Equal(t, "sink unavailable", dead[0].LastError)
	assert.Equal(t, int64(3), o.Stats().Failed)

	_, ok, err := c.Get(cache.KeyDeadLetters)
	require.NoError(t, err)
	assert.True(t, ok, "dead letters are persisted")

	restored := NewOutbox(sink, WithDeadLetterCache(c))
	require.Len(t, restored.DeadLetters(), 1)

	sink.mu.Lock()
	sink.fails = 0
	sink.mu.Unlock()
	assert.Equal(t, 1, restored.Requeue())
	require.NoError(t, restored.Flush(context.Background()))
	assert.Empty(t, restored.DeadLetters())
	assert.Len(t, sink.requests(), 1)
}

func TestOutbox_RecoversAfterTransientFailure(t *testing.T) {
	sink := &recordingSink{fails: 2}
	o := NewOutbox(sink, WithRetryPolicy(noDelay(5)))

	require.NoError(t, o.Enqueue(req("scheduleInterview", "CAND-2", `{}`)))
	require.NoError(t, o.Flush(context.Background()))

	require.Len(t, sink.requests(), 1)
	assert.Equal(t, 2, sink.requests()[0].Attempts)
	assert.Empty(t, o.DeadLetters())
}

func TestOutbox_Capacity(t *testing.T) {
	o := NewOutbox(&recordingSink{}, WithCapacity(1))
	require.NoError(t, o.Enqueue(req("a", "1", `{}`)))
	require.NoError(t, o.Enqueue(req("a", "1", `{"v":2}`)), "coalescing never needs room")
	assert.ErrorIs(t, o.Enqueue(req("a", "2", `{}`)), ErrQueueFull)
}

func TestOutbox_RunDeliversUntilCancelled(t *testing.T) {
	sink := &recordingSink{}
	o := NewOutbox(sink, WithWorkers(3), WithRetryPolicy(noDelay(3)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	for i := 0; i < 10; i++ {
		require.NoError(t, o.Enqueue(req("uploadCandidates", "CAND-"+string(rune('a'+i)), `{}`)))
	}

	assert.Eventually(t, func() bool { return len(sink.requests()) == 10 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestOutbox_FlushHonorsContext(t *testing.T) {
	o := NewOutbox(&recordingSink{})
	require.NoError(t, o.Enqueue(req("a", "1", `{}`)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Flush(ctx), context.Canceled)
	assert.Equal(t, 1, o.Len())
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	assert.Equal(t, time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(50))

	assert.False(t, p.Exhausted(4))
	assert.True(t, p.Exhausted(5))
	assert.False(t, RetryPolicy{}.Exhausted(100), "zero means unlimited")
}

func TestOutbox_ParkMovesPendingToDeadLetters(t *testing.T) {
	c := cache.NewMemoryCache()
	o := NewOutbox(&recordingSink{}, WithDeadLetterCache(c))

	require.NoError(t, o.Enqueue(req("recordHRInterview", "CAND-3", `{"marks":7}`)))
	require.NoError(t, o.Enqueue(req("recordTestMarks", "CAND-3", `{"marks":70}`)))

	assert.Equal(t, 2, o.Park(errors.New("shutdown")))
	assert.Zero(t, o.Len())

	restored := NewOutbox(&recordingSink{}, WithDeadLetterCache(c))
	dead := restored.DeadLetters()
	require.Len(t, dead, 2)
	assert.Equal(t, "shutdown", dead[0].LastError)
	assert.Zero(t, o.Park(nil), "nothing left to park")
}

// mirrorSink keeps the last record it accepted per record id, the way the
// database mirror does, and fails the requests named in failOnce once.
type mirrorSink struct {
	mu       sync.Mutex
	failOnce map[string]bool
	records  map[string]string
	order    []string
	active   map[string]int
	overlap  bool
	delay    time.Duration
}

func (s *mirrorSink) Send(_ context.Context, req Request) error {
	s.mu.Lock()
	s.active[req.RecordID]++
	if s.active[req.RecordID] > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[req.RecordID]--
	if s.failOnce[req.ID] {
		delete(s.failOnce, req.ID)
		return errors.New("sink unavailable")
	}
	s.records[req.RecordID] = string(req.Record)
	s.order = append(s.order, req.Action)
	return nil
}

func newMirrorSink(failOnce ...string) *mirrorSink {
	s := &mirrorSink{
		failOnce: make(map[string]bool),
		records:  make(map[string]string),
		active:   make(map[string]int),
	}
	for _, id := range failOnce {
		s.failOnce[id] = true
	}
	return s
}

func snapshot(action, recordID, record string) Request {
	r := req(action, recordID, `{}`)
	r.Record = json.RawMessage(record)
	return r
}

func TestOutbox_RetryKeepsRecordOrder(t *testing.T) {
	shortlist := snapshot("shortlistCandidate", "CAND-1", `{"shortlistingStatus":"Approved"}`)
	telephonic := snapshot("recordTelephonic", "CAND-1", `{"shortlistingStatus":"Approved","telephonicStatus":"Call Back"}`)
	other := snapshot("shortlistCandidate", "CAND-2", `{"shortlistingStatus":"Rejected"}`)

	tests := []struct {
		name    string
		workers int
		run     bool
	}{
		{name: "flush"},
		{name: "two workers", workers: 2, run: true},
		{name: "four workers", workers: 4, run: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMirrorSink(shortlist.ID)
			sink.delay = 5 * time.Millisecond
			opts := []OutboxOption{WithRetryPolicy(noDelay(5))}
			if tt.workers > 0 {
				opts = append(opts, WithWorkers(tt.workers))
			}
			o := NewOutbox(sink, opts...)

			require.NoError(t, o.Enqueue(shortlist))
			require.NoError(t, o.Enqueue(telephonic))
			require.NoError(t, o.Enqueue(other))

			if tt.run {
				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan error, 1)
				go func() { done <- o.Run(ctx) }()
				assert.Eventually(t, func() bool {
					st := o.Stats()
					return st.Sent == 3 && st.Pending == 0 && st.InFlight == 0
				}, 2*time.Second, 5*time.Millisecond)
				cancel()
				require.NoError(t, <-done)
			} else {
				require.NoError(t, o.Flush(context.Background()))
			}

			sink.mu.Lock()
			defer sink.mu.Unlock()
			assert.False(t, sink.overlap, "one request per record in flight")
			assert.JSONEq(t, string(telephonic.Record), sink.records["CAND-1"], "newest snapshot ends up in the mirror")
			assert.Equal(t, int64(1), o.Stats().Failed)
		})
	}
}

func TestOutbox_DeliversRecordInEnqueueOrder(t *testing.T) {
	sink := newMirrorSink()
	sink.delay = time.Millisecond
	o := NewOutbox(sink, WithWorkers(3), WithRetryPolicy(noDelay(3)))

	actions := []string{"uploadCandidates", "shortlistCandidate", "recordTelephonic", "ownerReview", "recordWalkIn"}
	for i, a := range actions {
		require.NoError(t, o.Enqueue(snapshot(a, "CAND-7", `{"step":`+string(rune('0'+i))+`}`)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	assert.Eventually(t, func() bool { return o.Stats().Sent == int64(len(actions)) }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, actions, sink.order)
	assert.False(t, sink.overlap)
	assert.JSONEq(t, `{"step":4}`, sink.records["CAND-7"])
}
