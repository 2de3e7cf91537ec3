// Package analytics keeps the most-demanded, lowest-stock and nearest-expiry
// views over the inventory, fed by committed store changes.
package analytics

import (
	"sync"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/errors"
)

type medicineState struct {
	version uint64
	sold    int
	stock   int
}

type demandEntry struct {
	name string
	sold int
}

type stockEntry struct {
	name  string
	stock int
}

// Index answers extremum queries over the inventory. It is a cache: the
// inventory store stays authoritative and feeds it through Apply.
type Index struct {
	mu sync.Mutex

	clock       clock.Clock
	includeZero bool

	state  map[string]medicineState
	demand *lazyHeap[demandEntry]
	stock  *lazyHeap[stockEntry]

	expiry *lazyHeap[domain.ExpiryRef]
	live   map[uint64]domain.ExpiryRef
	// removals that arrived before their insertion
	tombstones map[uint64]struct{}
}

// Option configures an Index
type Option func(*Index)

// WithZeroStock makes medicines with no stock eligible for LowestStock
func WithZeroStock(include bool) Option {
	return func(i *Index) { i.includeZero = include }
}

// NewIndex creates an empty index. c decides which units count as expired.
func NewIndex(c clock.Clock, opts ...Option) *Index {
	idx := &Index{clock: c}
	for _, opt := range opts {
		opt(idx)
	}
	idx.init()
	return idx
}

func (i *Index) init() {
	i.state = make(map[string]medicineState)
	i.live = make(map[uint64]domain.ExpiryRef)
	i.tombstones = make(map[uint64]struct{})

	i.demand = newLazyHeap(func(a, b demandEntry) bool {
		if a.sold != b.sold {
			return a.sold > b.sold
		}
		return a.name < b.name
	})
	i.stock = newLazyHeap(func(a, b stockEntry) bool {
		if a.stock != b.stock {
			return a.stock < b.stock
		}
		return a.name < b.name
	})
	i.expiry = newLazyHeap(func(a, b domain.ExpiryRef) bool {
		if !a.Expiry.Equal(b.Expiry) {
			return a.Expiry.Before(b.Expiry)
		}
		if a.Medicine != b.Medicine {
			return a.Medicine < b.Medicine
		}
		if a.SerialID != b.SerialID {
			return a.SerialID < b.SerialID
		}
		return a.Seq < b.Seq
	})
}

// Apply folds a committed change into the index
func (i *Index) Apply(ch domain.Change) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.applyCounters(ch)

	for _, seq := range ch.Removed {
		if _, ok := i.live[seq]; ok {
			delete(i.live, seq)
			continue
		}
		i.tombstones[seq] = struct{}{}
	}
	for _, ref := range ch.Added {
		if _, gone := i.tombstones[ref.Seq]; gone {
			delete(i.tombstones, ref.Seq)
			continue
		}
		i.live[ref.Seq] = ref
		i.expiry.push(ref)
	}

	i.demand.compact(len(i.state), i.validDemand)
	i.stock.compact(len(i.state), i.validStock)
	i.expiry.compact(len(i.live), i.validExpiry)
}

// applyCounters updates sold and stock unless a newer change was already applied
func (i *Index) applyCounters(ch domain.Change) {
	prev, known := i.state[ch.Medicine]
	if known && ch.Version <= prev.version {
		return
	}

	i.state[ch.Medicine] = medicineState{version: ch.Version, sold: ch.Sold, stock: ch.Stock}

	if !known || prev.sold != ch.Sold {
		i.demand.push(demandEntry{name: ch.Medicine, sold: ch.Sold})
	}
	if (!known || prev.stock != ch.Stock) && (ch.Stock > 0 || i.includeZero) {
		i.stock.push(stockEntry{name: ch.Medicine, stock: ch.Stock})
	}
}

// Reset forgets everything
func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.demand.reset()
	i.stock.reset()
	i.expiry.reset()
	i.state = make(map[string]medicineState)
	i.live = make(map[uint64]domain.ExpiryRef)
	i.tombstones = make(map[uint64]struct{})
}

func (i *Index) validDemand(e demandEntry) bool {
	st, ok := i.state[e.name]
	return ok && st.sold == e.sold
}

func (i *Index) validStock(e stockEntry) bool {
	st, ok := i.state[e.name]
	return ok && st.stock == e.stock && (st.stock > 0 || i.includeZero)
}

func (i *Index) validExpiry(ref domain.ExpiryRef) bool {
	_, ok := i.live[ref.Seq]
	return ok
}

// MostDemanded returns the medicine with the highest sold count; ties go to
// the lexically smaller name. Medicines that never sold are eligible.
func (i *Index) MostDemanded() (domain.DemandLeader, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	top, ok := i.demand.peek(i.validDemand)
	if !ok {
		return domain.DemandLeader{}, errors.NoData("no medicines in inventory")
	}
	return domain.DemandLeader{Name: top.name, Sold: top.sold}, nil
}

// LowestStock returns the medicine with the smallest stock; ties go to the
// lexically smaller name. Whether stocked-out medicines qualify is set by WithZeroStock.
func (i *Index) LowestStock() (domain.StockLeader, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	top, ok := i.stock.peek(i.validStock)
	if !ok {
		return domain.StockLeader{}, errors.NoData("no medicines in stock")
	}
	return domain.StockLeader{Name: top.name, Stock: top.stock}, nil
}

// NearestExpiry returns the live, unexpired unit that expires first.
// Units already past their expiry are dropped from the view for good; the
// dispenser purges them from the store when it reaches them.
func (i *Index) NearestExpiry() (domain.ExpiryRef, error) {
	today := clock.Today(i.clock)

	i.mu.Lock()
	defer i.mu.Unlock()

	for {
		top, ok := i.expiry.peek(i.validExpiry)
		if !ok {
			return domain.ExpiryRef{}, errors.NoData("no unexpired medicines available")
		}
		if top.Expiry.Before(today) {
			i.expiry.pop()
			continue
		}
		return top, nil
	}
}
