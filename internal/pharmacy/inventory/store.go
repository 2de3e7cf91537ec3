// Package inventory owns the medicine records: serial units, stock and sold
// counters, and FIFO-by-expiry dispensing.
package inventory

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/errors"
)

// Observer receives committed changes. Apply is called after the medicine
// lock is released; changes for one medicine may arrive out of order and
// must be ordered by Version.
type Observer interface {
	Apply(change domain.Change)
	Reset()
}

type nopObserver struct{}

func (nopObserver) Apply(domain.Change) {}
func (nopObserver) Reset()              {}

// record is the mutable state of one medicine, guarded by mu
type record struct {
	mu      sync.Mutex
	name    string
	serials map[string]unit
	fifo    fifoHeap
	sold    int
}

func newRecord(name string) *record {
	return &record{name: name, serials: make(map[string]unit)}
}

func (r *record) snapshot() domain.Medicine {
	units := make([]domain.SerialUnit, 0, len(r.serials))
	for _, u := range r.serials {
		units = append(units, domain.SerialUnit{SerialID: u.serialID, Expiry: u.expiry, Price: u.price})
	}
	sort.Slice(units, func(i, j int) bool {
		if !units[i].Expiry.Equal(units[j].Expiry) {
			return units[i].Expiry.Before(units[j].Expiry)
		}
		return units[i].SerialID < units[j].SerialID
	})

	return domain.Medicine{
		Name:    r.name,
		Stock:   len(r.serials),
		Sold:    r.sold,
		Serials: units,
	}
}

// Store holds every medicine record.
//
// Each medicine operation holds gate shared for its whole duration, including
// the observer call, and the record's own mutex for the mutation. Reset holds
// gate exclusively so it never interleaves with a half-applied operation.
type Store struct {
	gate sync.RWMutex

	mu      sync.RWMutex
	records map[string]*record
	order   []string

	version  atomic.Uint64
	seq      atomic.Uint64
	clock    clock.Clock
	observer Observer
}

// NewStore creates an empty store. A nil observer discards changes.
func NewStore(c clock.Clock, observer Observer) *Store {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Store{
		records:  make(map[string]*record),
		clock:    c,
		observer: observer,
	}
}

func (s *Store) lookup(name string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[name]
	return r, ok
}

func (s *Store) lookupOrCreate(name string) *record {
	if r, ok := s.lookup(name); ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[name]; ok {
		return r
	}
	r := newRecord(name)
	s.records[name] = r
	s.order = append(s.order, name)
	return r
}

// change captures r after a mutation. Caller holds r.mu.
func (s *Store) change(r *record) domain.Change {
	return domain.Change{
		Medicine: r.name,
		Version:  s.version.Add(1),
		Stock:    len(r.serials),
		Sold:     r.sold,
	}
}

// AddSerial stocks one serial unit, creating the medicine on first use
func (s *Store) AddSerial(name, serialID string, expiry time.Time, price decimal.Decimal) (domain.Medicine, error) {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(serialID) == "" {
		details["serial"] = "is required"
	}
	if expiry.IsZero() {
		details["expiry"] = "is required"
	}
	if price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if len(details) > 0 {
		return domain.Medicine{}, errors.Validation(details)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	r := s.lookupOrCreate(name)

	r.mu.Lock()
	if _, exists := r.serials[serialID]; exists {
		r.mu.Unlock()
		return domain.Medicine{}, errors.Conflict("serial " + serialID + " already exists for " + name)
	}

	u := unit{
		serialID: serialID,
		expiry:   clock.DateOf(expiry),
		price:    price,
		seq:      s.seq.Add(1),
	}
	r.serials[serialID] = u
	r.fifo.push(u)

	ch := s.change(r)
	ch.Added = []domain.ExpiryRef{{
		Seq:      u.seq,
		Medicine: name,
		SerialID: serialID,
		Expiry:   u.expiry,
		Price:    price,
	}}
	snap := r.snapshot()
	r.mu.Unlock()

	s.observer.Apply(ch)
	return snap, nil
}

// RemoveSerial withdraws one serial unit without counting it as sold
func (s *Store) RemoveSerial(name, serialID string) (domain.Medicine, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	r, ok := s.lookup(name)
	if !ok {
		return domain.Medicine{}, errors.NotFound("medicine " + name)
	}

	r.mu.Lock()
	u, ok := r.serials[serialID]
	if !ok {
		r.mu.Unlock()
		return domain.Medicine{}, errors.NotFound("serial " + serialID)
	}

	delete(r.serials, serialID)
	r.fifo.compact(r.serials)

	ch := s.change(r)
	ch.Removed = []uint64{u.seq}
	snap := r.snapshot()
	r.mu.Unlock()

	s.observer.Apply(ch)
	return snap, nil
}

// Get returns a snapshot of one medicine
func (s *Store) Get(name string) (domain.Medicine, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	r, ok := s.lookup(name)
	if !ok {
		return domain.Medicine{}, errors.NotFound("medicine " + name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// List returns snapshots of every medicine in first-creation order
func (s *Store) List() []domain.Medicine {
	s.gate.RLock()
	defer s.gate.RUnlock()

	s.mu.RLock()
	records := make([]*record, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, s.records[name])
	}
	s.mu.RUnlock()

	out := make([]domain.Medicine, 0, len(records))
	for _, r := range records {
		r.mu.Lock()
		out = append(out, r.snapshot())
		r.mu.Unlock()
	}
	return out
}

// Stats counts medicines and live units
func (s *Store) Stats() domain.InventoryStats {
	s.gate.RLock()
	defer s.gate.RUnlock()

	s.mu.RLock()
	records := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	stats := domain.InventoryStats{Medicines: len(records)}
	for _, r := range records {
		r.mu.Lock()
		stats.TotalStock += len(r.serials)
		r.mu.Unlock()
	}
	return stats
}

// Reset drops every medicine and clears the observer. It returns how many medicines were dropped.
func (s *Store) Reset() int {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	n := len(s.records)
	s.records = make(map[string]*record)
	s.order = nil
	s.mu.Unlock()

	s.observer.Reset()
	return n
}
