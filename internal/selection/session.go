package selection

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/pricing"
)

var (
	ErrUnknownProduct  = errors.New("product is not part of this sale")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidWeight   = errors.New("weighed value and mass must not be negative")
	ErrInvalidMode     = errors.New("unknown pricing mode")
)

// Entry is the per-product state of an open sale.
type Entry struct {
	ProductID int64
	Selected  bool
	pricing.Item
}

func defaultEntry(id int64) Entry {
	return Entry{
		ProductID: id,
		Item: pricing.Item{
			Mode:         pricing.ModeUnit,
			Quantity:     1,
			WeighedValue: decimal.Zero,
			WeighedMass:  decimal.Zero,
		},
	}
}

func defaultPayment() pricing.Payment {
	return pricing.Payment{Method: domain.PaymentCash, AmountReceived: decimal.Zero}
}

// Session is one sale in progress: an entry for every catalog product plus
// the payment details. Create it with NewSession and pass it to the
// validator and the orchestrator.
type Session struct {
	mu       sync.Mutex
	order    []int64
	products map[int64]domain.Product
	entries  map[int64]*Entry
	payment  pricing.Payment
}

func NewSession(products []domain.Product) *Session {
	s := &Session{}
	s.seed(products)
	return s
}

func (s *Session) seed(products []domain.Product) {
	s.order = make([]int64, 0, len(products))
	s.products = make(map[int64]domain.Product, len(products))
	s.entries = make(map[int64]*Entry, len(products))
	for _, p := range products {
		if _, dup := s.products[p.ID]; dup {
			continue
		}
		s.order = append(s.order, p.ID)
		s.products[p.ID] = p
		e := defaultEntry(p.ID)
		s.entries[p.ID] = &e
	}
	s.payment = defaultPayment()
}

// Reseed rebuilds the session from a freshly loaded catalog with every entry
// back at its defaults.
func (s *Session) Reseed(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed(products)
}

// Reset clears every entry and the payment but keeps the same products.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		e := defaultEntry(id)
		s.entries[id] = &e
	}
	s.payment = defaultPayment()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Session) entry(id int64) (*Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrUnknownProduct
	}
	return e, nil
}

// Toggle flips the selection flag and returns the new value.
func (s *Session) Toggle(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return false, err
	}
	e.Selected = !e.Selected
	return e.Selected, nil
}

func (s *Session) Select(id int64, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.Selected = selected
	return nil
}

func (s *Session) SetQuantity(id int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.Quantity = qty
	return nil
}

func (s *Session) SetMode(id int64, mode pricing.Mode) error {
	if mode != pricing.ModeUnit && mode != pricing.ModeWeight {
		return ErrInvalidMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.Mode = mode
	return nil
}

func (s *Session) SetWeight(id int64, value decimal.Decimal, mass decimal.Decimal) error {
	if value.IsNegative() || mass.IsNegative() {
		return ErrInvalidWeight
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.WeighedValue = value
	e.WeighedMass = mass
	return nil
}

func (s *Session) SetPayment(p pricing.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payment = p
}

func (s *Session) Payment() pricing.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payment
}

func (s *Session) Entry(id int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns a copy of every entry in catalog order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Snapshot is the selected lines and the payment read together.
type Snapshot struct {
	Lines   []pricing.Line
	Payment pricing.Payment
}

// Snapshot copies the selection and the payment under one lock, so both
// describe the same moment of the sale.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Lines: s.selectedLocked(), Payment: s.payment}
}

// Selected returns the chosen products with what was entered for them, in
// catalog order. The slice is a snapshot.
func (s *Session) Selected() []pricing.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() []pricing.Line {
	out := make([]pricing.Line, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if !e.Selected {
			continue
		}
		out = append(out, pricing.Line{Product: s.products[id], Item: e.Item})
	}
	return out
}

// Totals is the live preview of the sale.
func (s *Session) Totals() pricing.Totals {
	return pricing.Sum(s.Selected())
}

func (s *Session) Change() decimal.Decimal {
	return pricing.Change(s.Payment(), s.Totals().Total)
}
