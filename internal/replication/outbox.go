package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/schemas"
)

// ErrQueueFull is returned by Enqueue when the outbox is at capacity.
var ErrQueueFull = errors.New("replication queue is full")

// Stats is a point-in-time view of the outbox.
type Stats struct {
	Pending      int   `json:"pending"`
	InFlight     int   `json:"inFlight"`
	DeadLetters  int   `json:"deadLetters"`
	Sent         int64 `json:"sent"`
	Failed       int64 `json:"failed"`
	Coalesced    int64 `json:"coalesced"`
	DeadLettered int64 `json:"deadLettered"`
}

// Outbox is a bounded in-memory queue of remote writes. Pending requests
// for the same action and record are coalesced, latest payload wins.
//
// Requests for one record are delivered one at a time in the order they
// were enqueued, retries included, so a sink never sees an older snapshot
// of a record after a newer one.
type Outbox struct {
	sink     Sink
	policy   RetryPolicy
	workers  int
	capacity int
	cache    cache.Cache
	now      func() time.Time

	mu       sync.Mutex
	pending  []*Request // ordered by seq
	index    map[dedupeKey]*Request
	busy     map[string]int // record id -> requests in flight
	seq      uint64
	inFlight int
	dead     []Request
	stats    Stats
	wake     chan struct{}
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) OutboxOption {
	return func(o *Outbox) { o.policy = p }
}

// WithWorkers sets how many requests Run delivers concurrently.
func WithWorkers(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCapacity bounds the number of pending requests. Zero means unbounded.
func WithCapacity(n int) OutboxOption {
	return func(o *Outbox) { o.capacity = n }
}

// WithDeadLetterCache persists dead letters to c and restores them on start.
func WithDeadLetterCache(c cache.Cache) OutboxOption {
	return func(o *Outbox) { o.cache = c }
}

// WithOutboxClock sets the time source used for backoff.
func WithOutboxClock(now func() time.Time) OutboxOption {
	return func(o *Outbox) { o.now = now }
}

// NewOutbox creates an outbox delivering to sink.
func NewOutbox(sink Sink, opts ...OutboxOption) *Outbox {
	if sink == nil {
		sink = NopSink
	}
	o := &Outbox{
		sink:    sink,
		policy:  DefaultRetryPolicy(),
		workers: 1,
		now:     time.Now,
		index:   make(map[dedupeKey]*Request),
		busy:    make(map[string]int),
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.loadDeadLetters()
	return o
}

// Enqueue adds a request at the tail. A pending request with the same
// action and record is dropped in its favour.
func (o *Outbox) Enqueue(req Request) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, coalesce := o.index[req.key()]
	if !coalesce && o.capacity > 0 && len(o.pending) >= o.capacity {
		return ErrQueueFull
	}
	if coalesce {
		o.removeLocked(existing)
		o.stats.Coalesced++
	}

	o.seq++
	r := req
	r.seq = o.seq
	r.notBefore = time.Time{}
	o.insertLocked(&r)
	o.signal()
	return nil
}

// insertLocked places r by sequence number and indexes it.
func (o *Outbox) insertLocked(r *Request) {
	i := len(o.pending)
	for i > 0 && o.pending[i-1].seq > r.seq {
		i--
	}
	o.pending = slices.Insert(o.pending, i, r)
	o.index[r.key()] = r
}

func (o *Outbox) removeLocked(r *Request) {
	if i := slices.Index(o.pending, r); i >= 0 {
		o.pending = slices.Delete(o.pending, i, i+1)
	}
	if o.index[r.key()] == r {
		delete(o.index, r.key())
	}
}

// release must be called with mu held once a taken request is settled.
func (o *Outbox) release(r *Request) {
	o.inFlight--
	if o.busy[r.RecordID]--; o.busy[r.RecordID] <= 0 {
		delete(o.busy, r.RecordID)
	}
}

// Run delivers requests with the configured number of workers until ctx is
// cancelled.
func (o *Outbox) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < o.workers; i++ {
		g.Go(func() error { return o.work(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (o *Outbox) work(ctx context.Context) error {
	for {
		r, wait, ok := o.take()
		if ok {
			o.deliver(ctx, r)
			continue
		}
		if err := o.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// sleep waits for new work, for wait to elapse, or for ctx. A negative wait
// means nothing is scheduled.
func (o *Outbox) sleep(ctx context.Context, wait time.Duration) error {
	var timer *time.Timer
	var fire <-chan time.Time
	if wait >= 0 {
		timer = time.NewTimer(wait)
		defer timer.Stop()
		fire = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.wake:
	case <-fire:
	}
	return nil
}

// Flush delivers everything pending without waiting out backoff delays.
// Each request gets at most MaxAttempts tries (one when unlimited). It
// reports an error if requests remain pending.
func (o *Outbox) Flush(ctx context.Context) error {
	rounds := o.policy.MaxAttempts
	if rounds < 1 {
		rounds = 1
	}
	for i := 0; i < rounds; i++ {
		batch := o.drain()
		if len(batch) == 0 {
			return nil
		}
		failed := make(map[string]bool)
		for j, r := range batch {
			if err := ctx.Err(); err != nil {
				o.putBack(batch[j:])
				return err
			}
			if failed[r.RecordID] {
				o.putBack([]*Request{r})
				continue
			}
			if !o.deliver(ctx, r) {
				failed[r.RecordID] = true
			}
		}
	}
	if n := o.Len(); n > 0 {
		return fmt.Errorf("%d replication requests still pending", n)
	}
	return nil
}

// Len returns the number of pending requests.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Stats returns current counters.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stats
	s.Pending = len(o.pending)
	s.InFlight = o.inFlight
	s.DeadLetters = len(o.dead)
	return s
}

// Pending returns a copy of the pending requests in delivery order.
func (o *Outbox) Pending() []Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Request, len(o.pending))
	for i, r := range o.pending {
		out[i] = *r
	}
	return out
}

// DeadLetters returns a copy of the requests that exhausted their retries.
func (o *Outbox) DeadLetters() []Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Request(nil), o.dead...)
}

// Requeue moves every dead letter back to the queue with its attempts reset.
// It returns how many were requeued.
func (o *Outbox) Requeue() int {
	o.mu.Lock()
	dead := o.dead
	o.dead = nil
	o.persistDeadLocked()
	o.mu.Unlock()

	n := 0
	for _, r := range dead {
		r.Attempts = 0
		if err := o.Enqueue(r); err != nil {
			log.Printf("[replication] warning: could not requeue %s %s: %v", r.Action, r.RecordID, err)
			o.mu.Lock()
			o.dead = append(o.dead, r)
			o.persistDeadLocked()
			o.mu.Unlock()
			continue
		}
		n++
	}
	return n
}

// DeadLetter records a request that could not be queued at all.
func (o *Outbox) DeadLetter(req Request, cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cause != nil {
		req.LastError = cause.Error()
	}
	o.dead = append(o.dead, req)
	o.stats.DeadLettered++
	o.persistDeadLocked()
}

// Park moves every pending request to the dead letters so it survives a
// restart. It returns how many were moved.
func (o *Outbox) Park(cause error) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.pending)
	for _, r := range o.pending {
		if cause != nil && r.LastError == "" {
			r.LastError = cause.Error()
		}
		o.dead = append(o.dead, *r)
	}
	o.pending = nil
	clear(o.index)
	if n > 0 {
		o.stats.DeadLettered += int64(n)
		o.persistDeadLocked()
	}
	return n
}

// take removes the oldest due request of a record that has nothing in
// flight and no older request waiting. When none qualifies it returns the
// wait until the earliest backoff ends, or -1 if that depends on a delivery
// finishing or nothing is pending.
func (o *Outbox) take() (*Request, time.Duration, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	wait := time.Duration(-1)
	blocked := make(map[string]bool)
	for i, r := range o.pending {
		if blocked[r.RecordID] || o.busy[r.RecordID] > 0 {
			continue
		}
		blocked[r.RecordID] = true
		if r.notBefore.After(now) {
			if d := r.notBefore.Sub(now); wait < 0 || d < wait {
				wait = d
			}
			continue
		}
		o.pending = slices.Delete(o.pending, i, i+1)
		delete(o.index, r.key())
		o.inFlight++
		o.busy[r.RecordID]++
		if len(o.pending) > 0 {
			o.signal()
		}
		return r, 0, true
	}
	return nil, wait, false
}

func (o *Outbox) drain() []*Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.pending
	o.pending = nil
	clear(o.index)
	o.inFlight += len(batch)
	for _, r := range batch {
		o.busy[r.RecordID]++
	}
	return batch
}

// putBack returns undelivered requests to their place in the queue unless a
// newer request with the same key arrived meanwhile.
func (o *Outbox) putBack(batch []*Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range batch {
		o.release(r)
		if _, newer := o.index[r.key()]; newer {
			continue
		}
		o.insertLocked(r)
	}
	o.signal()
}

// deliver sends r and reports whether the sink accepted it.
func (o *Outbox) deliver(ctx context.Context, r *Request) bool {
	err := o.sink.Send(ctx, *r)

	if err != nil && ctx.Err() != nil {
		// Shutdown interrupted the send; it does not count as an attempt.
		o.putBack([]*Request{r})
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.release(r)
	o.signal()

	if err == nil {
		o.stats.Sent++
		return true
	}

	o.stats.Failed++
	r.Attempts++
	r.LastError = err.Error()

	if o.policy.Exhausted(r.Attempts) {
		log.Printf("[replication] giving up on %s %s after %d attempts: %v", r.Action, r.RecordID, r.Attempts, err)
		o.dead = append(o.dead, *r)
		o.stats.DeadLettered++
		o.persistDeadLocked()
		return false
	}

	if _, newer := o.index[r.key()]; newer {
		return false
	}
	delay := o.policy.Delay(r.Attempts)
	log.Printf("[replication] %s %s failed (attempt %d), retrying in %s: %v", r.Action, r.RecordID, r.Attempts, delay, err)
	r.notBefore = o.now().Add(delay)
	o.insertLocked(r)
	return false
}

// signal must be called with mu held.
func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) persistDeadLocked() {
	if o.cache == nil {
		return
	}
	dead := o.dead
	if dead == nil {
		dead = []Request{}
	}
	data, err := json.Marshal(dead)
	if err != nil {
		log.Printf("[replication] warning: failed to encode dead letters: %v", err)
		return
	}
	if err := o.cache.Put(cache.KeyDeadLetters, data); err != nil {
		log.Printf("[replication] warning: failed to persist dead letters: %v", err)
	}
}

func (o *Outbox) loadDeadLetters() {
	if o.cache == nil {
		return
	}
	data, ok, err := o.cache.Get(cache.KeyDeadLetters)
	if err != nil {
		log.Printf("[replication] warning: failed to read dead letters: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := schemas.ValidateDocument(cache.KeyDeadLetters, data); err != nil {
		log.Printf("[replication] warning: ignoring invalid dead letters document: %v", err)
		return
	}
	if err := json.Unmarshal(data, &o.dead); err != nil {
		log.Printf("[replication] warning: failed to decode dead letters: %v", err)
	}
}
