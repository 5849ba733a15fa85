package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"konditer/internal/core/clock"
	"konditer/internal/core/id"
	"konditer/internal/core/numerator"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/events"
)

// Numerator implements numerator.Generator with in-memory counters.
type Numerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewNumerator(store *Store) *Numerator {
	n := &Numerator{counters: make(map[string]int64)}
	store.register(n)
	return n
}

func (n *Numerator) snapshot() func() {
	n.mu.Lock()
	saved := make(map[string]int64, len(n.counters))
	for k, v := range n.counters {
		saved[k] = v
	}
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		n.counters = saved
		n.mu.Unlock()
	}
}

func (n *Numerator) GetNextNumber(_ context.Context, cfg numerator.Config, t time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := numerator.SequenceKey(cfg, t)
	n.counters[key]++
	return numerator.Format(cfg, t, n.counters[key]), nil
}

// Outbox implements events.Publisher. Events of a rolled-back transaction are
// discarded with it.
type Outbox struct {
	mu     sync.Mutex
	events []events.Event
}

func NewOutbox(store *Store) *Outbox {
	o := &Outbox{}
	store.register(o)
	return o
}

func (o *Outbox) snapshot() func() {
	o.mu.Lock()
	saved := append([]events.Event(nil), o.events...)
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		o.events = saved
		o.mu.Unlock()
	}
}

func (o *Outbox) Publish(_ context.Context, evs ...events.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, evs...)
	return nil
}

// Events returns every published event in order.
func (o *Outbox) Events() []events.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]events.Event(nil), o.events...)
}

// Drain returns and forgets the published events.
func (o *Outbox) Drain() []events.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.events
	o.events = nil
	return out
}

// AuditLog implements audit.Recorder and audit.Reader.
type AuditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func NewAuditLog(store *Store) *AuditLog {
	a := &AuditLog{}
	store.register(a)
	return a
}

func (a *AuditLog) snapshot() func() {
	a.mu.Lock()
	saved := append([]audit.Entry(nil), a.entries...)
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		a.entries = saved
		a.mu.Unlock()
	}
}

func (a *AuditLog) Record(_ context.Context, rec audit.Record) error {
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, audit.Entry{
		ID:         id.New(),
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Action:     rec.Action,
		Actor:      rec.Actor,
		Changes:    changes,
		CreatedAt:  rec.At,
	})
	return nil
}

func (a *AuditLog) History(_ context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Entry
	for i := len(a.entries) - 1; i >= 0; i-- {
		e := a.entries[i]
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Deduper implements lowstock.Deduper with clock-based expiry.
type Deduper struct {
	mu      sync.Mutex
	clock   clock.Clock
	expires map[string]time.Time
}

func NewDeduper(clk clock.Clock) *Deduper {
	return &Deduper{clock: clk, expires: make(map[string]time.Time)}
}

func (d *Deduper) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	if until, ok := d.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

// Keys lists the currently held keys.
func (d *Deduper) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	var out []string
	for k, until := range d.expires {
		if now.Before(until) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
