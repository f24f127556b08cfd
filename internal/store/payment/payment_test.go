package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/storefront-lab-go/internal/store/catalog"
	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
)

func newTestProcessor(t *testing.T, opts ...Option) (*Processor, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	return NewProcessor(c, append([]Option{WithDelay(0)}, opts...)...), c
}

func methodOfType(t *testing.T, c *catalog.Catalog, pt domain.PaymentType) domain.PaymentMethod {
	t.Helper()
	for _, m := range c.PaymentMethods() {
		if m.Type == pt {
			return m
		}
	}
	t.Fatalf("no %s payment method in catalog", pt)
	return domain.PaymentMethod{}
}

func someAddress(c *catalog.Catalog) *domain.AddressID {
	id := c.DefaultAddress().ID
	return &id
}

func TestCardPaymentAlwaysSucceeds(t *testing.T) {
	p, c := newTestProcessor(t)
	method := methodOfType(t, c, domain.PaymentTypeCard)

	result, err := p.Process(context.Background(), method.ID, someAddress(c), nil, 10799)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "card-"), "transaction id %q", result.TransactionID)
	assert.Empty(t, result.Error)
}

func TestPayPalPaymentAlwaysSucceeds(t *testing.T) {
	p, c := newTestProcessor(t)
	method := methodOfType(t, c, domain.PaymentTypePayPal)

	result, err := p.Process(context.Background(), method.ID, someAddress(c), nil, 5000)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "paypal-"))
}

func TestApplePayFaults(t *testing.T) {
	p, c := newTestProcessor(t)
	method := methodOfType(t, c, domain.PaymentTypeApplePay)

	t.Run("nil address", func(t *testing.T) {
		result, err := p.Process(context.Background(), method.ID, nil, nil, 5000)
		require.ErrorIs(t, err, ErrApplePayMissingAddress)
		assert.Contains(t, strings.ToLower(err.Error()), "shipping address")
		assert.False(t, result.Success)
	})

	t.Run("address present still faults", func(t *testing.T) {
		result, err := p.Process(context.Background(), method.ID, someAddress(c), nil, 5000)
		require.ErrorIs(t, err, ErrApplePayAddressInvalid)
		assert.False(t, result.Success)
	})
}

// An unknown method resolves with a declined result, never a fault.
func TestUnknownMethodResolvesDeclined(t *testing.T) {
	p, c := newTestProcessor(t)

	result, err := p.Process(context.Background(), "no-such-method", someAddress(c), nil, 5000)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Payment method not found", result.Error)
	assert.Empty(t, result.TransactionID)
}

func TestCancelledContext(t *testing.T) {
	p, c := newTestProcessor(t, WithDelay(DefaultDelay))
	method := methodOfType(t, c, domain.PaymentTypeCard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, method.ID, someAddress(c), nil, 5000)
	require.ErrorIs(t, err, context.Canceled)
}

func TestJournalEvents(t *testing.T) {
	j := contracts.NewJournal()
	p, c := newTestProcessor(t, WithJournal(j))
	card := methodOfType(t, c, domain.PaymentTypeCard)

	_, err := p.Process(context.Background(), card.ID, someAddress(c), nil, 1000)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), "no-such-method", someAddress(c), nil, 1000)
	require.NoError(t, err)

	events := j.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, contracts.EventPaymentCaptured, events[0].Type)
	assert.Equal(t, contracts.EventPaymentFailed, events[1].Type)
}
