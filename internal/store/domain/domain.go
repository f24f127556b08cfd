package domain

import (
	"fmt"
	"time"
)

type ProductID string
type UserID string
type PaymentMethodID string
type AddressID string
type OrderID string

type Category string

const (
	CategoryRuntime     Category = "runtime"
	CategorySyntax      Category = "syntax"
	CategoryLogic       Category = "logic"
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
)

type PaymentType string

const (
	PaymentTypeCard     PaymentType = "card"
	PaymentTypePayPal   PaymentType = "paypal"
	PaymentTypeApplePay PaymentType = "applepay"
)

type Product struct {
	ID             ProductID `yaml:"id"`
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	PriceCents     int64     `yaml:"price_cents"` // minor units
	Category       Category  `yaml:"category"`
	Image          string    `yaml:"image"`
	Rating         float64   `yaml:"rating"`
	Reviews        int       `yaml:"reviews"`
	CompatibleWith []string  `yaml:"compatible_with"`
	SKU            string    `yaml:"sku"`
}

// CartLine pairs one product with a positive quantity. At most one line
// exists per product id in a cart.
type CartLine struct {
	Product  Product
	Quantity int
}

func (l CartLine) TotalCents() int64 {
	return l.Product.PriceCents * int64(l.Quantity)
}

type User struct {
	ID     UserID
	Name   string
	Email  string
	Avatar string
}

type PaymentMethod struct {
	ID         PaymentMethodID `yaml:"id"`
	Type       PaymentType     `yaml:"type"`
	Last4      string          `yaml:"last4,omitempty"`
	ExpiryDate string          `yaml:"expiry_date,omitempty"`
	CardType   string          `yaml:"card_type,omitempty"`
	IsDefault  bool            `yaml:"is_default"`
}

// Label renders the method the way the storefront lists it.
func (m PaymentMethod) Label() string {
	switch m.Type {
	case PaymentTypeCard:
		return fmt.Sprintf("%s •••• %s", m.CardType, m.Last4)
	case PaymentTypePayPal:
		return "PayPal"
	case PaymentTypeApplePay:
		return "Apple Pay"
	default:
		return string(m.Type)
	}
}

type Address struct {
	ID         AddressID `yaml:"id"`
	Name       string    `yaml:"name"`
	Line1      string    `yaml:"line1"`
	Line2      string    `yaml:"line2,omitempty"`
	City       string    `yaml:"city"`
	State      string    `yaml:"state"`
	PostalCode string    `yaml:"postal_code"`
	Country    string    `yaml:"country"`
	IsDefault  bool      `yaml:"is_default"`
}

// PaymentResult is the normal outcome of a payment attempt. Hard faults
// (the intentionally broken branches) travel as Go errors instead.
type PaymentResult struct {
	Success       bool
	TransactionID string
	Error         string
}

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID            OrderID
	Number        string
	Items         []CartLine
	TotalCents    int64
	PaymentMethod PaymentMethod
	PlacedAt      time.Time
	Status        OrderStatus
}

// FormatCents renders an int64 cent amount as "$X.YY".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
