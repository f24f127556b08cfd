// Package checkout drives the three step purchase flow: pick an address
// and payment method, review the order, then the confirmation screen.
// The confirmation step is terminal; after a fixed delay the flow clears
// the cart and hands control back to the caller, unless it was torn down
// first.
package checkout

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-lab-go/internal/store/cart"
	"github.com/nazeru/storefront-lab-go/internal/store/catalog"
	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
	"github.com/nazeru/storefront-lab-go/pkg/logging"
)

type Step int

const (
	StepAddressPayment Step = 1
	StepReview         Step = 2
	StepConfirmation   Step = 3
)

func (s Step) String() string {
	switch s {
	case StepAddressPayment:
		return "address_payment"
	case StepReview:
		return "review"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step_%d", int(s))
	}
}

const (
	// DefaultResetDelay is how long the confirmation screen stays up
	// before the flow clears the cart and navigates away.
	DefaultResetDelay = 3 * time.Second

	fallbackPaymentError = "Payment failed. Please try again."
)

// Processor is the slice of the payment gateway the flow needs.
type Processor interface {
	Process(ctx context.Context, methodID domain.PaymentMethodID, addressID *domain.AddressID, items []domain.CartLine, totalCents int64) (domain.PaymentResult, error)
}

type Flow struct {
	mu sync.Mutex

	cart      *cart.Manager
	processor Processor
	catalog   *catalog.Catalog

	step       Step
	methodID   domain.PaymentMethodID
	addressID  *domain.AddressID
	processing bool
	errMsg     string
	order      *domain.Order

	resetDelay time.Duration
	resetTimer *time.Timer
	closed     bool
	onComplete func()
	journal    *contracts.Journal
}

type Option func(*Flow)

func WithResetDelay(d time.Duration) Option {
	return func(f *Flow) { f.resetDelay = d }
}

func WithJournal(j *contracts.Journal) Option {
	return func(f *Flow) { f.journal = j }
}

// WithOnComplete sets the callback invoked after the confirmation delay,
// once the cart has been cleared. It is not called if the flow is closed
// before the delay elapses.
func WithOnComplete(fn func()) Option {
	return func(f *Flow) { f.onComplete = fn }
}

// Begin starts a flow at step 1 with the default payment method and
// address pre-selected.
func Begin(c *catalog.Catalog, cartMgr *cart.Manager, processor Processor, opts ...Option) *Flow {
	addr := c.DefaultAddress().ID
	f := &Flow{
		cart:       cartMgr,
		processor:  processor,
		catalog:    c,
		step:       StepAddressPayment,
		methodID:   c.DefaultPaymentMethod().ID,
		addressID:  &addr,
		resetDelay: DefaultResetDelay,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// SelectPaymentMethod switches the selected method. Unknown ids are
// ignored; the selection always stays valid.
func (f *Flow) SelectPaymentMethod(id domain.PaymentMethodID) {
	if _, ok := f.catalog.PaymentMethodByID(id); !ok {
		return
	}
	f.mu.Lock()
	f.methodID = id
	f.mu.Unlock()
}

// SelectAddress switches the selected address. Unknown ids are ignored.
func (f *Flow) SelectAddress(id domain.AddressID) {
	if _, ok := f.catalog.AddressByID(id); !ok {
		return
	}
	f.mu.Lock()
	f.addressID = &id
	f.mu.Unlock()
}

// ClearAddressSelection drops the address entirely. Exists for the Apple
// Pay demo scenario, which needs a payment attempt with no address.
func (f *Flow) ClearAddressSelection() {
	f.mu.Lock()
	f.addressID = nil
	f.mu.Unlock()
}

// ContinueToReview advances from step 1 to step 2. Selections always hold
// a value, so this transition cannot fail; at any other step it is a no-op.
func (f *Flow) ContinueToReview() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepAddressPayment {
		return
	}
	f.setStepLocked(StepReview)
}

// Back steps from review to the selection step. It reports true when the
// caller should exit the flow, which only happens at step 1. Confirmation
// is terminal and has no back transition.
func (f *Flow) Back() (exit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepReview:
		f.errMsg = ""
		f.setStepLocked(StepAddressPayment)
		return false
	case StepAddressPayment:
		return true
	default:
		return false
	}
}

// PlaceOrder runs the payment with the current selections. On success the
// flow lands on the confirmation step and schedules the one-shot reset;
// on a declined result or a processor fault it stays at the review step
// and keeps the message for display. Duplicate submissions while one is
// in flight are ignored.
func (f *Flow) PlaceOrder(ctx context.Context) error {
	f.mu.Lock()
	if f.step != StepReview || f.processing {
		f.mu.Unlock()
		return nil
	}
	f.processing = true
	f.errMsg = ""
	methodID := f.methodID
	addressID := f.addressID
	f.mu.Unlock()

	items := f.cart.Items()
	total := f.cart.TotalCents()

	result, err := f.processor.Process(ctx, methodID, addressID, items, total)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.processing = false
	if err != nil {
		f.errMsg = err.Error()
		return nil
	}
	if !result.Success {
		f.errMsg = result.Error
		if f.errMsg == "" {
			f.errMsg = fallbackPaymentError
		}
		return nil
	}

	method, _ := f.catalog.PaymentMethodByID(methodID)
	order := domain.Order{
		ID:            domain.OrderID(uuid.NewString()),
		Number:        orderNumber(time.Now()),
		Items:         items,
		TotalCents:    total,
		PaymentMethod: method,
		PlacedAt:      time.Now().UTC(),
		Status:        domain.OrderStatusProcessing,
	}
	f.order = &order
	f.setStepLocked(StepConfirmation)
	if f.journal != nil {
		f.journal.Record(contracts.EventOrderConfirmed, string(order.ID), map[string]any{
			"number": order.Number,
			"txn_id": result.TransactionID,
			"total":  total,
		})
	}
	logging.Log(logging.Fields{Service: "checkout", OrderID: string(order.ID), TxnID: result.TransactionID, Step: "place_order", Status: "confirmed"})

	f.scheduleResetLocked()
	return nil
}

// Close tears the flow down and cancels a pending confirmation reset, so
// a flow abandoned mid-confirmation never clears the cart afterwards.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Err returns the message from the last failed payment attempt, if any.
func (f *Flow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Flow) Processing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processing
}

// Order returns the confirmed order once the flow reaches step 3.
func (f *Flow) Order() (domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order == nil {
		return domain.Order{}, false
	}
	return *f.order, true
}

func (f *Flow) SelectedPaymentMethod() domain.PaymentMethodID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.methodID
}

// SelectedAddress returns the selected address id; ok is false when the
// selection has been cleared.
func (f *Flow) SelectedAddress() (domain.AddressID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addressID == nil {
		return "", false
	}
	return *f.addressID, true
}

// setStepLocked assumes f.mu is held.
func (f *Flow) setStepLocked(s Step) {
	f.step = s
	if f.journal != nil {
		f.journal.Record(contracts.EventCheckoutStep, "", map[string]any{"step": s.String()})
	}
}

// scheduleResetLocked assumes f.mu is held and the flow just reached the
// confirmation step.
func (f *Flow) scheduleResetLocked() {
	if f.closed {
		return
	}
	f.resetTimer = time.AfterFunc(f.resetDelay, func() {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		done := f.onComplete
		if f.order != nil {
			f.order.Status = domain.OrderStatusCompleted
		}
		f.mu.Unlock()

		f.cart.Clear()
		if done != nil {
			done()
		}
	})
}

func orderNumber(t time.Time) string {
	return fmt.Sprintf("%d-%02d-%04d", t.Year(), int(t.Month()), rand.IntN(10000))
}
