package catalog

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/shopspring/decimal"
)

// VariationModifierName labels the cart modifier that records a chosen variation.
const VariationModifierName = "Variation"

// Selection is what the customer picked on a product.
type Selection struct {
	Quantity    int      `json:"quantity" validate:"gte=1,lte=99"`
	VariationID string   `json:"variationId"`
	ModifierIDs []string `json:"modifierIds" validate:"dive,required"`
}

// QuoteLine prices a selection into a cart line.
// A variation replaces the base price and is recorded as a modifier carrying the price difference;
// every other modifier adds its price per unit.
func QuoteLine(detail *ProductDetail, sel Selection, taxRate decimal.Decimal) (cart.CartItem, error) {
	if detail == nil || strings.TrimSpace(detail.Product.ID) == "" {
		return cart.CartItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if sel.Quantity < 1 {
		return cart.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	index := detail.modifierIndex()
	productPrice := detail.Product.Price
	unitPrice := productPrice
	modifiers := make([]cart.CartModifier, 0, len(sel.ModifierIDs)+1)

	if id := strings.TrimSpace(sel.VariationID); id != "" {
		variation, ok := index[id]
		if !ok {
			return cart.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown variation").WithDetails(map[string]any{"variationId": id})
		}
		if !variation.Price.IsZero() {
			unitPrice = variation.Price
		}
		modifiers = append(modifiers, cart.CartModifier{
			ModifierID: variation.ID,
			Name:       VariationModifierName,
			Price:      unitPrice.Sub(productPrice),
		})
	}

	extras := decimal.Zero
	seen := make(map[string]struct{}, len(sel.ModifierIDs))
	for _, raw := range sel.ModifierIDs {
		id := strings.TrimSpace(raw)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		mod, ok := index[id]
		if !ok {
			return cart.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown modifier").WithDetails(map[string]any{"modifierId": id})
		}
		extras = extras.Add(mod.Price)
		modifiers = append(modifiers, cart.CartModifier{
			ModifierID: mod.ID,
			Name:       mod.Name,
			Price:      mod.Price,
		})
	}

	subTotal := unitPrice.Add(extras).Mul(decimal.NewFromInt(int64(sel.Quantity)))
	return cart.CartItem{
		ProductID: detail.Product.ID,
		Name:      detail.Product.Name,
		Price:     unitPrice,
		Quantity:  sel.Quantity,
		Modifiers: modifiers,
		Image:     detail.Product.Image,
		SubTotal:  subTotal,
		Tax:       subTotal.Mul(taxRate),
		Discount:  decimal.Zero,
	}, nil
}

func (d *ProductDetail) modifierIndex() map[string]livedatanow.Modifier {
	index := make(map[string]livedatanow.Modifier)
	for _, group := range d.ModifierGroups {
		for _, mod := range group.Modifiers {
			if _, exists := index[mod.ID]; !exists {
				index[mod.ID] = mod
			}
		}
	}
	return index
}
