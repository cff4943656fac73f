package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	modifierFetchLimit  = 50
	modifierConcurrency = 4
)

// ProductDetail is a product with the modifiers of each of its groups loaded.
type ProductDetail struct {
	Product        livedatanow.Product   `json:"product"`
	ModifierGroups []ModifierGroupDetail `json:"modifierGroups"`
}

// ModifierGroupDetail holds the modifiers of one group.
type ModifierGroupDetail struct {
	ID        string                 `json:"_id"`
	Modifiers []livedatanow.Modifier `json:"modifiers"`
}

type catalogClient interface {
	ListDepartments(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Department, error)
	ListKitchens(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Kitchen, error)
	ListProducts(ctx context.Context, query livedatanow.ProductQuery) ([]livedatanow.Product, error)
	ListModifierGroups(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.ModifierGroup, error)
	GetProduct(ctx context.Context, id string) (*livedatanow.Product, error)
	ListModifiersByGroup(ctx context.Context, groupID string, page livedatanow.Page) ([]livedatanow.Modifier, error)
}

// Service browses a store's menu, loads product details and prices selections.
type Service interface {
	Departments(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Department, error)
	Kitchens(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Kitchen, error)
	Products(ctx context.Context, query livedatanow.ProductQuery) ([]livedatanow.Product, error)
	ModifierGroups(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.ModifierGroup, error)
	ProductDetail(ctx context.Context, productID string) (*ProductDetail, error)
	Quote(ctx context.Context, productID string, sel Selection) (cart.CartItem, error)
}

type service struct {
	client  catalogClient
	taxRate decimal.Decimal
	logg    *logger.Logger
}

// NewService builds the catalog service.
func NewService(client catalogClient, taxRate decimal.Decimal, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("catalog client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &service{client: client, taxRate: taxRate, logg: logg}, nil
}

func (s *service) Departments(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Department, error) {
	departments, err := s.client.ListDepartments(ctx, storeID, page)
	if err != nil {
		return nil, err
	}
	return nonNil(departments), nil
}

func (s *service) Kitchens(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.Kitchen, error) {
	kitchens, err := s.client.ListKitchens(ctx, storeID, page)
	if err != nil {
		return nil, err
	}
	return nonNil(kitchens), nil
}

func (s *service) Products(ctx context.Context, query livedatanow.ProductQuery) ([]livedatanow.Product, error) {
	products, err := s.client.ListProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	return nonNil(products), nil
}

func (s *service) ModifierGroups(ctx context.Context, storeID string, page livedatanow.Page) ([]livedatanow.ModifierGroup, error) {
	groups, err := s.client.ListModifierGroups(ctx, storeID, page)
	if err != nil {
		return nil, err
	}
	return nonNil(groups), nil
}

// ProductDetail fetches the product, then its groups' modifiers concurrently.
// A failed modifier load yields the product without modifier groups.
func (s *service) ProductDetail(ctx context.Context, productID string) (*ProductDetail, error) {
	product, err := s.client.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{Product: *product, ModifierGroups: []ModifierGroupDetail{}}
	if len(product.ModifierGroups) == 0 {
		return detail, nil
	}

	groups := make([]ModifierGroupDetail, len(product.ModifierGroups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(modifierConcurrency)
	for i, groupID := range product.ModifierGroups {
		i, groupID := i, groupID
		g.Go(func() error {
			mods, err := s.client.ListModifiersByGroup(gctx, groupID, livedatanow.Page{Page: 1, Limit: modifierFetchLimit})
			if err != nil {
				return err
			}
			if mods == nil {
				mods = []livedatanow.Modifier{}
			}
			groups[i] = ModifierGroupDetail{ID: groupID, Modifiers: mods}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "product_id", productID), "catalog.modifiers_failed", err)
		return detail, nil
	}

	detail.ModifierGroups = groups
	return detail, nil
}

func (s *service) Quote(ctx context.Context, productID string, sel Selection) (cart.CartItem, error) {
	detail, err := s.ProductDetail(ctx, productID)
	if err != nil {
		return cart.CartItem{}, err
	}
	return QuoteLine(detail, sel, s.taxRate)
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
