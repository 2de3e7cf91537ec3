package inventory

import (
	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/errors"
)

// Dispense sells the live unit of name with the earliest expiry, purging
// expired units it meets on the way. Units expiring today are still sellable.
//
// onSale runs while the medicine lock is held, so the sale and whatever onSale
// does with it are atomic with respect to other operations on the same
// medicine. It must not call back into the store.
//
// On OutOfStock the purges are kept and reported in the returned result.
func (s *Store) Dispense(name string, onSale func(domain.Sale)) (domain.DispenseResult, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	r, ok := s.lookup(name)
	if !ok {
		return domain.DispenseResult{}, errors.NotFound("medicine " + name)
	}

	now := s.clock.Now()
	today := clock.DateOf(now)

	r.mu.Lock()

	var (
		res     domain.DispenseResult
		removed []uint64
		sold    bool
	)
	for {
		it, ok := r.fifo.popLive(r.serials)
		if !ok {
			break
		}
		u := r.serials[it.serialID]
		delete(r.serials, it.serialID)
		removed = append(removed, u.seq)

		if u.expiry.Before(today) {
			res.ExpiredRemoved++
			res.ExpiredSerials = append(res.ExpiredSerials, u.serialID)
			continue
		}

		r.sold++
		res.SerialID = u.serialID
		res.Price = u.price
		sold = true

		if onSale != nil {
			onSale(domain.Sale{Medicine: name, SerialID: u.serialID, Price: u.price, Time: now})
		}
		break
	}

	res.RemainingStock = len(r.serials)
	res.Sold = r.sold

	var ch domain.Change
	if len(removed) > 0 {
		r.fifo.compact(r.serials)
		ch = s.change(r)
		ch.Removed = removed
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		s.observer.Apply(ch)
	}

	if !sold {
		return res, errors.OutOfStock(name)
	}
	return res, nil
}
