package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

// BuildOrder derives the place-order payload from the cart and the customer's choices.
func BuildOrder(c cart.Cart, customerID string, req PlaceOrderRequest) livedatanow.Order {
	items := make([]livedatanow.OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		mods := make([]livedatanow.OrderModifier, 0, len(item.Modifiers))
		for _, mod := range item.Modifiers {
			mods = append(mods, livedatanow.OrderModifier{ID: mod.ModifierID, Qty: 1})
		}
		items = append(items, livedatanow.OrderItem{
			Discount:  livedatanow.NewAmount(item.Discount),
			Modifiers: mods,
			OrderID:   "",
			Price:     livedatanow.NewAmount(item.Price),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			SubTotal:  livedatanow.NewAmount(item.SubTotal),
			Tax:       livedatanow.NewAmount(item.Tax),
		})
	}

	return livedatanow.Order{
		OrderItems:    items,
		TotalDiscount: c.TotalDiscount().String(),
		CustomerID:    customerID,
		PaymentMethod: upstreamPaymentMethod(req),
		TotalTax:      livedatanow.NewAmount(c.TotalTax),
		SubTotal:      livedatanow.NewAmount(c.SubTotal),
		FinalTotal:    c.FinalTotal.String(),
		Type:          upstreamOrderType(req.Type),
	}
}

func upstreamOrderType(t string) string {
	if strings.EqualFold(strings.TrimSpace(t), FulfillmentDelivery) {
		return livedatanow.OrderTypeDelivery
	}
	return livedatanow.OrderTypePickup
}

// upstreamPaymentMethod is "cash" or the card label ("credit card" / "debit card").
func upstreamPaymentMethod(req PlaceOrderRequest) string {
	if req.PaymentMethod != PaymentCard {
		return PaymentCash
	}
	if req.Card != nil && normalizedCardType(req.Card.Type) == CardDebit {
		return "debit card"
	}
	return "credit card"
}

func normalizedCardType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimSuffix(t, " card")
	if t == "" {
		return CardCredit
	}
	return t
}
