package analytics

import "container/heap"

// lazyHeap is a binary heap whose entries are validated on the way out.
// Stale entries stay in place until they surface at the top or the heap is compacted.
type lazyHeap[T any] struct {
	items []T
	less  func(a, b T) bool
}

func newLazyHeap[T any](less func(a, b T) bool) *lazyHeap[T] {
	return &lazyHeap[T]{less: less}
}

func (h *lazyHeap[T]) Len() int           { return len(h.items) }
func (h *lazyHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *lazyHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *lazyHeap[T]) Push(x any)         { h.items = append(h.items, x.(T)) }

func (h *lazyHeap[T]) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	return it
}

func (h *lazyHeap[T]) push(v T) {
	heap.Push(h, v)
}

func (h *lazyHeap[T]) pop() T {
	return heap.Pop(h).(T)
}

// peek discards invalid entries from the top and returns the first valid one
func (h *lazyHeap[T]) peek(valid func(T) bool) (T, bool) {
	for len(h.items) > 0 {
		top := h.items[0]
		if valid(top) {
			return top, true
		}
		heap.Pop(h)
	}
	var zero T
	return zero, false
}

// compact drops invalid entries once they outnumber live ones by a wide margin
func (h *lazyHeap[T]) compact(live int, valid func(T) bool) {
	if len(h.items) <= 2*live+32 {
		return
	}
	kept := h.items[:0]
	for _, it := range h.items {
		if valid(it) {
			kept = append(kept, it)
		}
	}
	var zero T
	for i := len(kept); i < len(h.items); i++ {
		h.items[i] = zero
	}
	h.items = kept
	heap.Init(h)
}

func (h *lazyHeap[T]) reset() {
	h.items = nil
}
