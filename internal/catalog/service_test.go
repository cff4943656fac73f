package catalog

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var taxRate = decimal.RequireFromString("0.0832")

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
}

type stubCatalog struct {
	mu        sync.Mutex
	product   *livedatanow.Product
	err       error
	modifiers map[string][]livedatanow.Modifier
	modErr    error
	groups    []string

	departments []livedatanow.Department
	products    []livedatanow.Product
	listErr     error
	query       livedatanow.ProductQuery
	storeIDs    []string
}

func (s *stubCatalog) ListDepartments(_ context.Context, storeID string, _ livedatanow.Page) ([]livedatanow.Department, error) {
	s.storeIDs = append(s.storeIDs, storeID)
	return s.departments, s.listErr
}

func (s *stubCatalog) ListKitchens(_ context.Context, storeID string, _ livedatanow.Page) ([]livedatanow.Kitchen, error) {
	s.storeIDs = append(s.storeIDs, storeID)
	return nil, s.listErr
}

func (s *stubCatalog) ListProducts(_ context.Context, query livedatanow.ProductQuery) ([]livedatanow.Product, error) {
	s.query = query
	return s.products, s.listErr
}

func (s *stubCatalog) ListModifierGroups(_ context.Context, storeID string, _ livedatanow.Page) ([]livedatanow.ModifierGroup, error) {
	s.storeIDs = append(s.storeIDs, storeID)
	return []livedatanow.ModifierGroup{{ID: "sizes", Name: "Sizes"}}, s.listErr
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (*livedatanow.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func (s *stubCatalog) ListModifiersByGroup(_ context.Context, groupID string, page livedatanow.Page) ([]livedatanow.Modifier, error) {
	s.mu.Lock()
	s.groups = append(s.groups, groupID)
	s.mu.Unlock()
	if page.Limit != modifierFetchLimit {
		return nil, errors.New("unexpected page limit")
	}
	if s.modErr != nil {
		return nil, s.modErr
	}
	return s.modifiers[groupID], nil
}

func burgerDetail() *ProductDetail {
	return &ProductDetail{
		Product: livedatanow.Product{ID: "P1", Name: "Burger", Price: dec("10"), Image: "burger.png"},
		ModifierGroups: []ModifierGroupDetail{
			{ID: "sizes", Modifiers: []livedatanow.Modifier{
				{ID: "large", Name: "Large", Price: dec("12.5")},
				{ID: "free-size", Name: "Regular", Price: decimal.Zero},
			}},
			{ID: "extras", Modifiers: []livedatanow.Modifier{
				{ID: "cheese", Name: "Cheese", Price: dec("1")},
				{ID: "bacon", Name: "Bacon", Price: dec("2")},
			}},
		},
	}
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s want %s", label, got, want)
	}
}

func TestQuoteLinePlainProduct(t *testing.T) {
	t.Parallel()

	item, err := QuoteLine(burgerDetail(), Selection{Quantity: 1}, taxRate)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	assertDecimal(t, "price", item.Price, "10")
	assertDecimal(t, "subTotal", item.SubTotal, "10")
	assertDecimal(t, "tax", item.Tax, "0.832")
	assertDecimal(t, "discount", item.Discount, "0")
	if len(item.Modifiers) != 0 || item.Image != "burger.png" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestQuoteLineVariationReplacesBasePrice(t *testing.T) {
	t.Parallel()

	item, err := QuoteLine(burgerDetail(), Selection{Quantity: 2, VariationID: "large", ModifierIDs: []string{"cheese", "bacon", "cheese"}}, taxRate)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	assertDecimal(t, "price", item.Price, "12.5")
	assertDecimal(t, "subTotal", item.SubTotal, "31")
	assertDecimal(t, "tax", item.Tax, "2.5792")

	if len(item.Modifiers) != 3 {
		t.Fatalf("expected variation plus two modifiers, got %+v", item.Modifiers)
	}
	variation := item.Modifiers[0]
	if variation.ModifierID != "large" || variation.Name != VariationModifierName {
		t.Fatalf("unexpected variation modifier %+v", variation)
	}
	assertDecimal(t, "variation price", variation.Price, "2.5")
	if item.Modifiers[1].ModifierID != "cheese" || item.Modifiers[2].ModifierID != "bacon" {
		t.Fatalf("modifier order not kept: %+v", item.Modifiers)
	}
}

func TestQuoteLineZeroPricedVariationKeepsBase(t *testing.T) {
	t.Parallel()

	item, err := QuoteLine(burgerDetail(), Selection{Quantity: 1, VariationID: "free-size"}, taxRate)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	assertDecimal(t, "price", item.Price, "10")
	assertDecimal(t, "variation price", item.Modifiers[0].Price, "0")
}

func TestQuoteLineRejectsBadSelections(t *testing.T) {
	t.Parallel()

	cases := map[string]Selection{
		"zero quantity":    {Quantity: 0},
		"unknown variant":  {Quantity: 1, VariationID: "huge"},
		"unknown modifier": {Quantity: 1, ModifierIDs: []string{"pickles"}},
	}
	for name, sel := range cases {
		if _, err := QuoteLine(burgerDetail(), sel, taxRate); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := QuoteLine(nil, Selection{Quantity: 1}, taxRate); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for missing product, got %v", err)
	}
}

func TestProductDetailLoadsModifierGroups(t *testing.T) {
	t.Parallel()

	client := &stubCatalog{
		product: &livedatanow.Product{ID: "P1", Name: "Burger", Price: dec("10"), ModifierGroups: []string{"sizes", "extras"}},
		modifiers: map[string][]livedatanow.Modifier{
			"sizes":  {{ID: "large", Price: dec("12.5")}},
			"extras": {{ID: "cheese", Price: dec("1")}},
		},
	}
	svc, err := NewService(client, taxRate, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	detail, err := svc.ProductDetail(context.Background(), "P1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.ModifierGroups) != 2 || detail.ModifierGroups[0].ID != "sizes" || detail.ModifierGroups[1].ID != "extras" {
		t.Fatalf("groups not in product order: %+v", detail.ModifierGroups)
	}
	if len(client.groups) != 2 {
		t.Fatalf("expected two modifier loads, got %v", client.groups)
	}

	item, err := svc.Quote(context.Background(), "P1", Selection{Quantity: 1, VariationID: "large", ModifierIDs: []string{"cheese"}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	assertDecimal(t, "subTotal", item.SubTotal, "13.5")
}

func TestProductDetailToleratesModifierFailure(t *testing.T) {
	t.Parallel()

	client := &stubCatalog{
		product: &livedatanow.Product{ID: "P1", ModifierGroups: []string{"sizes"}},
		modErr:  errors.New("boom"),
	}
	svc, err := NewService(client, taxRate, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	detail, err := svc.ProductDetail(context.Background(), "P1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Product.ID != "P1" || len(detail.ModifierGroups) != 0 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestProductDetailPropagatesProductFailure(t *testing.T) {
	t.Parallel()

	upstreamErr := pkgerrors.New(pkgerrors.CodeUpstream, "Product not found").WithStatus(404)
	svc, err := NewService(&stubCatalog{err: upstreamErr}, taxRate, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.ProductDetail(context.Background(), "missing"); !errors.Is(err, upstreamErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestNewServiceRejectsNegativeTax(t *testing.T) {
	t.Parallel()

	if _, err := NewService(&stubCatalog{}, dec("-0.1"), testLogger()); err == nil {
		t.Fatalf("expected error for negative tax rate")
	}
}

func TestMenuListingsUseStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := &stubCatalog{
		departments: []livedatanow.Department{{ID: "d1", Name: "Mains"}},
		products:    []livedatanow.Product{{ID: "P1", Name: "Burger"}},
	}
	svc, err := NewService(stub, taxRate, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	departments, err := svc.Departments(ctx, "store-1", livedatanow.Page{})
	if err != nil || len(departments) != 1 || departments[0].Name != "Mains" {
		t.Fatalf("unexpected departments %+v %v", departments, err)
	}
	kitchens, err := svc.Kitchens(ctx, "store-1", livedatanow.Page{})
	if err != nil || kitchens == nil || len(kitchens) != 0 {
		t.Fatalf("empty kitchens must be a non-nil slice, got %#v %v", kitchens, err)
	}
	groups, err := svc.ModifierGroups(ctx, "store-1", livedatanow.Page{})
	if err != nil || len(groups) != 1 {
		t.Fatalf("unexpected groups %+v %v", groups, err)
	}
	for _, id := range stub.storeIDs {
		if id != "store-1" {
			t.Fatalf("unexpected store id %q", id)
		}
	}

	products, err := svc.Products(ctx, livedatanow.ProductQuery{StoreID: "store-1", Search: "burger"})
	if err != nil || len(products) != 1 {
		t.Fatalf("unexpected products %+v %v", products, err)
	}
	if stub.query.Search != "burger" || stub.query.StoreID != "store-1" {
		t.Fatalf("query not forwarded: %+v", stub.query)
	}
}

func TestMenuListingsPropagateFailures(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{listErr: pkgerrors.New(pkgerrors.CodeUpstream, "upstream down")}
	svc, _ := NewService(stub, taxRate, testLogger())
	if _, err := svc.Departments(context.Background(), "store-1", livedatanow.Page{}); !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := svc.Products(context.Background(), livedatanow.ProductQuery{StoreID: "store-1"}); err == nil {
		t.Fatal("expected failure")
	}
}
