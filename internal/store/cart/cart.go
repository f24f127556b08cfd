// Package cart owns the session's line items. Lines keep insertion order,
// one line per product id, and quantities never sit at zero: dropping to
// zero removes the line.
package cart

import (
	"errors"
	"sync"

	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrMissingSKU      = errors.New("product has no SKU")
)

type Manager struct {
	mu      sync.Mutex
	lines   []domain.CartLine
	journal *contracts.Journal
}

func NewManager() *Manager {
	return &Manager{}
}

// NewManagerWithJournal records cart lifecycle events into journal.
func NewManagerWithJournal(journal *contracts.Journal) *Manager {
	return &Manager{journal: journal}
}

// AddItem inserts a new line for product, or merges the quantity into the
// existing line. Products are only admitted with a SKU.
func (m *Manager) AddItem(product domain.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if product.SKU == "" {
		return ErrMissingSKU
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].Product.ID == product.ID {
			m.lines[i].Quantity += quantity
			m.record(contracts.EventCartItemAdded, product, m.lines[i].Quantity)
			return nil
		}
	}
	m.lines = append(m.lines, domain.CartLine{Product: product, Quantity: quantity})
	m.record(contracts.EventCartItemAdded, product, quantity)
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
// An absent product id is a no-op.
func (m *Manager) UpdateQuantity(id domain.ProductID, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].Product.ID != id {
			continue
		}
		if quantity <= 0 {
			m.removeAt(i)
			return
		}
		m.lines[i].Quantity = quantity
		return
	}
}

// RemoveItem deletes the line for id if present.
func (m *Manager) RemoveItem(id domain.ProductID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].Product.ID == id {
			m.removeAt(i)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	if m.journal != nil {
		m.journal.Record(contracts.EventCartCleared, "", nil)
	}
}

// Items returns a copy of the lines in insertion order.
func (m *Manager) Items() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

// TotalCents is the subtotal, recomputed from the lines on every read.
func (m *Manager) TotalCents() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, l := range m.lines {
		total += l.TotalCents()
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.lines {
		count += l.Quantity
	}
	return count
}

func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) == 0
}

// removeAt assumes m.mu is held.
func (m *Manager) removeAt(i int) {
	removed := m.lines[i]
	m.lines = append(m.lines[:i], m.lines[i+1:]...)
	if m.journal != nil {
		m.journal.Record(contracts.EventCartItemRemoved, "", map[string]any{
			"product_id": string(removed.Product.ID),
		})
	}
}

// record assumes m.mu is held.
func (m *Manager) record(eventType string, p domain.Product, quantity int) {
	if m.journal == nil {
		return
	}
	m.journal.Record(eventType, "", map[string]any{
		"product_id": string(p.ID),
		"quantity":   quantity,
	})
}
