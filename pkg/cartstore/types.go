package cartstore

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nmoreno/storefront-checkout/pkg/types"
)

// LineItem is one priced cart line as served by the cart store. Prices are
// decimal major units; TaxRate is a fraction (0.21 for 21%).
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// UnitPriceCents converts the decimal unit price to integer minor units,
// rounding half-up to the nearest cent.
func (li LineItem) UnitPriceCents() int64 {
	return li.UnitPrice.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// LineTotalCents is quantity times unit price, tax excluded, in minor units.
func (li LineItem) LineTotalCents() int64 {
	return li.UnitPriceCents() * li.Quantity
}

// CustomerData is the contact block collected before payment.
type CustomerData struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// CheckoutData is the customer/address block frozen into the cart snapshot
// when the buyer fills in the checkout form.
type CheckoutData struct {
	Customer              CustomerData  `json:"customer"`
	ShippingAddress       types.Address `json:"shipping_address"`
	BillingAddress        types.Address `json:"billing_address"`
	UseSameBillingAddress bool          `json:"use_same_billing_address"`
}

// HasEmail reports whether a usable contact email was collected.
func (cd *CheckoutData) HasEmail() bool {
	return cd != nil && strings.TrimSpace(cd.Customer.Email) != ""
}

// CartSnapshot is the cart as owned by the cart store. Read-only to the
// orchestration core; deleted after a successful order.
type CartSnapshot struct {
	SessionID    string          `json:"session_id"`
	Items        []LineItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	CheckoutData *CheckoutData   `json:"checkout_data,omitempty"`
}

// IsEmpty reports whether the snapshot carries no purchasable lines.
func (cs *CartSnapshot) IsEmpty() bool {
	return cs == nil || len(cs.Items) == 0
}

// SubtotalCents, TaxCents and TotalCents expose the computed totals in minor
// units, rounded half-up per amount.
func (cs *CartSnapshot) SubtotalCents() int64 { return toCents(cs.Subtotal) }
func (cs *CartSnapshot) TaxCents() int64      { return toCents(cs.Tax) }
func (cs *CartSnapshot) TotalCents() int64    { return toCents(cs.Total) }

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
