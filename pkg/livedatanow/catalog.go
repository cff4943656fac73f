package livedatanow

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Page selects a window of a listing.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalized(defaultLimit int) Page {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	return p
}

func (p Page) apply(q url.Values) {
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	StoreID    string
	Page       Page
	Department string
	Kitchen    string
	Order      string
	Search     string
}

// StoreBySubdomain resolves the store serving a hostname.
func (c *Client) StoreBySubdomain(ctx context.Context, hostname string) (*Store, error) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hostname is required")
	}
	q := url.Values{}
	q.Set("hostname", hostname)

	body, err := c.do(ctx, http.MethodGet, "/store/by-subdomain", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var store Store
	if err := decodeEntity("store/by-subdomain", body, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// ListDepartments lists the departments of a store.
func (c *Client) ListDepartments(ctx context.Context, storeID string, page Page) ([]Department, error) {
	q, err := storeQuery(storeID, page.normalized(defaultListLimit))
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, "/department", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var departments []Department
	if err := decodeList("department", "departments", body, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

// ListKitchens lists the kitchens of a store.
func (c *Client) ListKitchens(ctx context.Context, storeID string, page Page) ([]Kitchen, error) {
	q, err := storeQuery(storeID, page.normalized(defaultListLimit))
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, "/kitchen", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var kitchens []Kitchen
	if err := decodeList("kitchen", "kitchens", body, &kitchens); err != nil {
		return nil, err
	}
	return kitchens, nil
}

// ListProducts lists products with the optional filters applied.
func (c *Client) ListProducts(ctx context.Context, query ProductQuery) ([]Product, error) {
	q, err := storeQuery(query.StoreID, query.Page.normalized(defaultListLimit))
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(query.Department); v != "" {
		q.Set("department", v)
	}
	if v := strings.TrimSpace(query.Kitchen); v != "" {
		q.Set("kitchen", v)
	}
	if v := strings.ToLower(strings.TrimSpace(query.Order)); v != "" {
		if v != "asc" && v != "desc" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must be asc or desc")
		}
		q.Set("order", v)
	}
	if v := strings.TrimSpace(query.Search); v != "" {
		q.Set("search", v)
	}

	body, err := c.do(ctx, http.MethodGet, "/product", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := decodeList("product", "products", body, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	body, err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), "", "", nil)
	if err != nil {
		return nil, err
	}
	var product Product
	if err := decodeEntity("product", body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListModifierGroups lists the modifier groups of a store.
func (c *Client) ListModifierGroups(ctx context.Context, storeID string, page Page) ([]ModifierGroup, error) {
	q, err := storeQuery(storeID, page.normalized(defaultModifierPage))
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, "/modifier-group", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var groups []ModifierGroup
	if err := decodeList("modifier-group", "modifierGroups", body, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListModifiersByGroup lists the modifiers of one group.
func (c *Client) ListModifiersByGroup(ctx context.Context, groupID string, page Page) ([]Modifier, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "modifier group id is required")
	}
	q := url.Values{}
	page.normalized(defaultModifierPage).apply(q)
	q.Set("modifierGroupId", groupID)

	body, err := c.do(ctx, http.MethodGet, "/modifier", q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var modifiers []Modifier
	if err := decodeList("modifier", "modifiers", body, &modifiers); err != nil {
		return nil, err
	}
	return modifiers, nil
}

func storeQuery(storeID string, page Page) (url.Values, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	q := url.Values{}
	q.Set("storeId", storeID)
	page.apply(q)
	return q, nil
}
