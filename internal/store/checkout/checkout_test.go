package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/storefront-lab-go/internal/store/cart"
	"github.com/nazeru/storefront-lab-go/internal/store/catalog"
	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/internal/store/payment"
)

type stubProcessor struct {
	result domain.PaymentResult
	err    error
}

func (s stubProcessor) Process(ctx context.Context, methodID domain.PaymentMethodID, addressID *domain.AddressID, items []domain.CartLine, totalCents int64) (domain.PaymentResult, error) {
	return s.result, s.err
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	return c
}

func filledCart(t *testing.T, c *catalog.Catalog) *cart.Manager {
	t.Helper()
	m := cart.NewManager()
	products := c.Products()
	require.NoError(t, m.AddItem(products[0], 2))
	require.NoError(t, m.AddItem(products[1], 1))
	return m
}

func selectMethod(t *testing.T, c *catalog.Catalog, f *Flow, pt domain.PaymentType) {
	t.Helper()
	for _, pm := range c.PaymentMethods() {
		if pm.Type == pt {
			f.SelectPaymentMethod(pm.ID)
			return
		}
	}
	t.Fatalf("no %s payment method in catalog", pt)
}

func TestBeginDefaults(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, cart.NewManager(), stubProcessor{})
	defer f.Close()

	assert.Equal(t, StepAddressPayment, f.Step())
	assert.Equal(t, c.DefaultPaymentMethod().ID, f.SelectedPaymentMethod())
	addr, ok := f.SelectedAddress()
	require.True(t, ok)
	assert.Equal(t, c.DefaultAddress().ID, addr)
}

func TestSelectionValidation(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, cart.NewManager(), stubProcessor{})
	defer f.Close()

	f.SelectPaymentMethod("bogus")
	assert.Equal(t, c.DefaultPaymentMethod().ID, f.SelectedPaymentMethod())

	f.SelectAddress("bogus")
	addr, ok := f.SelectedAddress()
	require.True(t, ok)
	assert.Equal(t, c.DefaultAddress().ID, addr)
}

func TestStepTransitions(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, cart.NewManager(), stubProcessor{})
	defer f.Close()

	t.Run("continue to review", func(t *testing.T) {
		f.ContinueToReview()
		assert.Equal(t, StepReview, f.Step())
		// Repeating is a no-op at step 2.
		f.ContinueToReview()
		assert.Equal(t, StepReview, f.Step())
	})

	t.Run("back to selection", func(t *testing.T) {
		exit := f.Back()
		assert.False(t, exit)
		assert.Equal(t, StepAddressPayment, f.Step())
	})

	t.Run("back at step 1 exits the flow", func(t *testing.T) {
		exit := f.Back()
		assert.True(t, exit)
		assert.Equal(t, StepAddressPayment, f.Step())
	})
}

func TestPlaceOrderRequiresReviewStep(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, filledCart(t, c), stubProcessor{result: domain.PaymentResult{Success: true, TransactionID: "card-1"}})
	defer f.Close()

	require.NoError(t, f.PlaceOrder(context.Background()))
	assert.Equal(t, StepAddressPayment, f.Step())
	_, ok := f.Order()
	assert.False(t, ok)
}

func TestPlaceOrderDeclinedStaysAtReview(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, filledCart(t, c), stubProcessor{result: domain.PaymentResult{Success: false, Error: "Payment method not found"}})
	defer f.Close()

	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))

	assert.Equal(t, StepReview, f.Step())
	assert.Equal(t, "Payment method not found", f.Err())
}

func TestPlaceOrderDeclinedWithoutReasonUsesFallback(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, filledCart(t, c), stubProcessor{result: domain.PaymentResult{Success: false}})
	defer f.Close()

	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))
	assert.Equal(t, "Payment failed. Please try again.", f.Err())
}

// The Apple Pay fault must surface like a declined payment: the flow stays
// at review and shows the message, it does not crash or advance.
func TestPlaceOrderFaultStaysAtReview(t *testing.T) {
	c := testCatalog(t)
	cartMgr := filledCart(t, c)
	processor := payment.NewProcessor(c, payment.WithDelay(0))
	f := Begin(c, cartMgr, processor)
	defer f.Close()

	selectMethod(t, c, f, domain.PaymentTypeApplePay)
	f.ClearAddressSelection()
	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))

	assert.Equal(t, StepReview, f.Step())
	assert.Contains(t, strings.ToLower(f.Err()), "shipping address")
	assert.Equal(t, 3, cartMgr.ItemCount(), "cart must survive a failed payment")
}

func TestSuccessfulCheckoutClearsCartAfterDelay(t *testing.T) {
	c := testCatalog(t)
	cartMgr := filledCart(t, c)
	processor := payment.NewProcessor(c, payment.WithDelay(0))

	completed := make(chan struct{})
	f := Begin(c, cartMgr, processor,
		WithResetDelay(10*time.Millisecond),
		WithOnComplete(func() { close(completed) }))
	defer f.Close()

	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))

	require.Equal(t, StepConfirmation, f.Step())
	assert.Empty(t, f.Err())

	order, ok := f.Order()
	require.True(t, ok)
	assert.NotEmpty(t, order.Number)
	assert.Equal(t, int64(2*2999+4999), order.TotalCents)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation reset never fired")
	}
	assert.Equal(t, 0, cartMgr.ItemCount())

	order, ok = f.Order()
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
}

func TestCloseCancelsPendingReset(t *testing.T) {
	c := testCatalog(t)
	cartMgr := filledCart(t, c)
	processor := payment.NewProcessor(c, payment.WithDelay(0))

	f := Begin(c, cartMgr, processor,
		WithResetDelay(20*time.Millisecond),
		WithOnComplete(func() { t.Error("onComplete fired after Close") }))

	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))
	require.Equal(t, StepConfirmation, f.Step())

	f.Close()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 3, cartMgr.ItemCount(), "torn-down flow must not clear the cart")
}

func TestBackHasNoEffectAtConfirmation(t *testing.T) {
	c := testCatalog(t)
	f := Begin(c, filledCart(t, c), stubProcessor{result: domain.PaymentResult{Success: true, TransactionID: "card-1"}},
		WithResetDelay(time.Hour))
	defer f.Close()

	f.ContinueToReview()
	require.NoError(t, f.PlaceOrder(context.Background()))
	require.Equal(t, StepConfirmation, f.Step())

	exit := f.Back()
	assert.False(t, exit)
	assert.Equal(t, StepConfirmation, f.Step())
}
