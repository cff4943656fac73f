package cart

import (
	"github.com/shopspring/decimal"
)

// CartModifier is a priced add-on or variation attached to a line item.
type CartModifier struct {
	ModifierID string          `json:"modifierId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
}

// CartItem is one product selection. SubTotal and Tax are aggregates already
// multiplied by Quantity.
type CartItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Modifiers []CartModifier  `json:"modifiers" validate:"dive"`
	Image     string          `json:"image,omitempty"`
	SubTotal  decimal.Decimal `json:"subTotal" validate:"gte=0"`
	Tax       decimal.Decimal `json:"tax" validate:"gte=0"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0"`
}

// Cart is the persisted aggregate. Totals are always derived through CalculateCartTotals.
type Cart struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	SubTotal   decimal.Decimal `json:"subTotal"`
	TotalTax   decimal.Decimal `json:"totalTax"`
	FinalTotal decimal.Decimal `json:"finalTotal"`
}

// EmptyCart returns the canonical empty cart.
func EmptyCart() Cart {
	return Cart{
		Items:      []CartItem{},
		TotalItems: 0,
		SubTotal:   decimal.Zero,
		TotalTax:   decimal.Zero,
		FinalTotal: decimal.Zero,
	}
}

// IsEmpty reports whether the cart holds no line items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalDiscount sums the line discounts.
func (c Cart) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Discount)
	}
	return total
}

// CalculateCartTotals derives the cart aggregate from items alone.
func CalculateCartTotals(items []CartItem) Cart {
	cart := EmptyCart()
	if len(items) > 0 {
		cart.Items = items
	}
	for _, item := range items {
		cart.TotalItems += item.Quantity
		cart.SubTotal = cart.SubTotal.Add(item.SubTotal)
		cart.TotalTax = cart.TotalTax.Add(item.Tax)
	}
	cart.FinalTotal = cart.SubTotal.Add(cart.TotalTax)
	return cart
}
