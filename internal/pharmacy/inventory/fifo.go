package inventory

import (
	"container/heap"
	"time"

	"github.com/shopspring/decimal"
)

// unit is a stocked serial instance
type unit struct {
	serialID string
	expiry   time.Time
	price    decimal.Decimal
	seq      uint64
}

// fifoItem is a heap reference to a unit; it is stale once the unit with the
// same serial id is gone or has a different seq.
type fifoItem struct {
	expiry   time.Time
	serialID string
	seq      uint64
}

func fifoLess(a, b fifoItem) bool {
	if !a.expiry.Equal(b.expiry) {
		return a.expiry.Before(b.expiry)
	}
	return a.serialID < b.serialID
}

// fifoHeap orders units by expiry then serial id, with lazy deletion
type fifoHeap []fifoItem

func (h fifoHeap) Len() int           { return len(h) }
func (h fifoHeap) Less(i, j int) bool { return fifoLess(h[i], h[j]) }
func (h fifoHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *fifoHeap) Push(x any) { *h = append(*h, x.(fifoItem)) }

func (h *fifoHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// push adds a reference for u
func (h *fifoHeap) push(u unit) {
	heap.Push(h, fifoItem{expiry: u.expiry, serialID: u.serialID, seq: u.seq})
}

// popLive removes and returns the earliest live reference, discarding stale ones
func (h *fifoHeap) popLive(live map[string]unit) (fifoItem, bool) {
	for h.Len() > 0 {
		it := heap.Pop(h).(fifoItem)
		if u, ok := live[it.serialID]; ok && u.seq == it.seq {
			return it, true
		}
	}
	return fifoItem{}, false
}

// compact rebuilds the heap from the live units once stale references dominate
func (h *fifoHeap) compact(live map[string]unit) {
	if h.Len() <= 2*len(live)+16 {
		return
	}
	rebuilt := make(fifoHeap, 0, len(live))
	for _, u := range live {
		rebuilt = append(rebuilt, fifoItem{expiry: u.expiry, serialID: u.serialID, seq: u.seq})
	}
	heap.Init(&rebuilt)
	*h = rebuilt
}
