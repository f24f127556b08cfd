// Package payment simulates the payment gateway. Nothing leaves the
// process: every attempt waits a fixed delay and then branches on the
// resolved payment method's type.
//
// Two failure shapes exist and are not interchangeable. A method that
// cannot be found resolves normally with Success=false, while the Apple
// Pay branches fault with a Go error. The Apple Pay branch is a known
// broken path kept on purpose; see the tests before "fixing" it.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nazeru/storefront-lab-go/internal/store/catalog"
	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/internal/store/simulate"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
	"github.com/nazeru/storefront-lab-go/pkg/logging"
	"github.com/nazeru/storefront-lab-go/pkg/metrics"
)

const DefaultDelay = 1500 * time.Millisecond

var (
	// ErrApplePayMissingAddress faults the attempt instead of resolving a
	// result, unlike the method-not-found case.
	ErrApplePayMissingAddress = errors.New("Shipping address is required for Apple Pay")
	// ErrApplePayAddressInvalid fires even when an address is supplied.
	ErrApplePayAddressInvalid = errors.New("Apple Pay transaction failed: Shipping address information is invalid or incomplete.")
)

const (
	reasonMethodNotFound    = "Payment method not found"
	reasonUnsupportedMethod = "Unsupported payment method"
)

type Processor struct {
	catalog *catalog.Catalog

	Delay   time.Duration
	journal *contracts.Journal
	metrics *metrics.StoreMetrics
	now     func() time.Time
}

type Option func(*Processor)

func WithDelay(d time.Duration) Option {
	return func(p *Processor) { p.Delay = d }
}

func WithJournal(j *contracts.Journal) Option {
	return func(p *Processor) { p.journal = j }
}

func WithMetrics(sm *metrics.StoreMetrics) Option {
	return func(p *Processor) { p.metrics = sm }
}

func NewProcessor(c *catalog.Catalog, opts ...Option) *Processor {
	p := &Processor{catalog: c, Delay: DefaultDelay, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process settles a payment attempt after the simulated delay. It returns
// a PaymentResult for the normal outcomes (including method-not-found) and
// a non-nil error only for the hard-fault branches.
func (p *Processor) Process(ctx context.Context, methodID domain.PaymentMethodID, addressID *domain.AddressID, items []domain.CartLine, totalCents int64) (domain.PaymentResult, error) {
	start := time.Now()
	if err := simulate.Sleep(ctx, p.Delay); err != nil {
		return domain.PaymentResult{}, err
	}

	method, ok := p.catalog.PaymentMethodByID(methodID)
	if !ok {
		return p.settle(start, "unknown", domain.PaymentResult{Success: false, Error: reasonMethodNotFound}, nil)
	}

	switch method.Type {
	case domain.PaymentTypeCard:
		txn := fmt.Sprintf("card-%d", p.now().UnixMilli())
		return p.settle(start, string(method.Type), domain.PaymentResult{Success: true, TransactionID: txn}, nil)
	case domain.PaymentTypePayPal:
		txn := fmt.Sprintf("paypal-%d", p.now().UnixMilli())
		return p.settle(start, string(method.Type), domain.PaymentResult{Success: true, TransactionID: txn}, nil)
	case domain.PaymentTypeApplePay:
		if addressID == nil {
			return p.settle(start, string(method.Type), domain.PaymentResult{}, ErrApplePayMissingAddress)
		}
		return p.settle(start, string(method.Type), domain.PaymentResult{}, ErrApplePayAddressInvalid)
	default:
		return p.settle(start, string(method.Type), domain.PaymentResult{Success: false, Error: reasonUnsupportedMethod}, nil)
	}
}

func (p *Processor) settle(start time.Time, method string, result domain.PaymentResult, fault error) (domain.PaymentResult, error) {
	elapsed := time.Since(start).Milliseconds()
	status := "captured"
	message := ""
	switch {
	case fault != nil:
		status = "fault"
		message = fault.Error()
	case !result.Success:
		status = "declined"
		message = result.Error
	}

	if p.metrics != nil {
		p.metrics.Payments.WithLabelValues(method, status).Inc()
		p.metrics.PaymentLatencyMS.WithLabelValues(method).Observe(float64(elapsed))
	}
	if p.journal != nil {
		eventType := contracts.EventPaymentCaptured
		if status != "captured" {
			eventType = contracts.EventPaymentFailed
		}
		p.journal.Record(eventType, "", map[string]any{
			"method": method,
			"status": status,
			"txn_id": result.TransactionID,
		})
	}
	logging.Log(logging.Fields{Service: "payment", TxnID: result.TransactionID, Step: method, Status: status, DurationMS: elapsed, Message: message})
	return result, fault
}
