package contracts

import "time"

type Event struct {
	EventID   string         `json:"event_id"`
	OrderID   string         `json:"order_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

const (
	EventCartItemAdded    = "cart.item_added"
	EventCartItemRemoved  = "cart.item_removed"
	EventCartCleared      = "cart.cleared"
	EventAuthSignedIn     = "auth.signed_in"
	EventAuthSignInFailed = "auth.sign_in_failed"
	EventAuthSignedOut    = "auth.signed_out"
	EventPaymentCaptured  = "payment.captured"
	EventPaymentFailed    = "payment.failed"
	EventCheckoutStep     = "checkout.step_changed"
	EventOrderConfirmed   = "order.confirmed"
)
