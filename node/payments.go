package node

import (
	"sync"

	"github.com/getlantern/deepcopy"

	"github.com/mit-dci/litnode/lncore"
)

// paymentStore tracks payments in one direction by hash.  Callers get copies,
// never pointers into the map.
type paymentStore struct {
	mtx      sync.Mutex
	payments map[lncore.PaymentHash]*lncore.PaymentInfo
}

func newPaymentStore() *paymentStore {
	return &paymentStore{payments: map[lncore.PaymentHash]*lncore.PaymentInfo{}}
}

func (s *paymentStore) insert(h lncore.PaymentHash, info lncore.PaymentInfo) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.payments[h] = &info
}

// reserve records info under h unless h is already known.  It reports
// whether the caller now owns h.
func (s *paymentStore) reserve(h lncore.PaymentHash, info lncore.PaymentInfo) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.payments[h]; ok {
		return false
	}
	s.payments[h] = &info
	return true
}

func (s *paymentStore) remove(h lncore.PaymentHash) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.payments, h)
}

// get returns a deep copy of the stored info.
func (s *paymentStore) get(h lncore.PaymentHash) (*lncore.PaymentInfo, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.payments[h]
	if !ok {
		return nil, false
	}
	var out lncore.PaymentInfo
	if err := deepcopy.Copy(&out, p); err != nil {
		// every field has a text marshaller, so this can't happen
		panic(err)
	}
	return &out, true
}

// update applies f to the stored info and reports whether h was known.
func (s *paymentStore) update(h lncore.PaymentHash, f func(*lncore.PaymentInfo)) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.payments[h]
	if !ok {
		return false
	}
	f(p)
	return true
}

func (s *paymentStore) preimage(h lncore.PaymentHash) (lncore.PaymentPreimage, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.payments[h]
	if !ok || p.Preimage == nil {
		return lncore.PaymentPreimage{}, false
	}
	return *p.Preimage, true
}
