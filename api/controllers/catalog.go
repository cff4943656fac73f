package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	maxPage      = 10000
	maxPageLimit = 100
)

// CatalogDepartments lists the departments of the resolved store.
func CatalogDepartments(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, page, ok := storeListing(w, r, logg)
		if !ok {
			return
		}
		departments, err := svc.Departments(r.Context(), storeID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, departments)
	}
}

// CatalogKitchens lists the kitchens of the resolved store.
func CatalogKitchens(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, page, ok := storeListing(w, r, logg)
		if !ok {
			return
		}
		kitchens, err := svc.Kitchens(r.Context(), storeID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, kitchens)
	}
}

// CatalogModifierGroups lists the modifier groups of the resolved store.
func CatalogModifierGroups(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, page, ok := storeListing(w, r, logg)
		if !ok {
			return
		}
		groups, err := svc.ModifierGroups(r.Context(), storeID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groups)
	}
}

// CatalogProducts lists the resolved store's products, filtered by the department,
// kitchen, order and search query parameters.
func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, page, ok := storeListing(w, r, logg)
		if !ok {
			return
		}
		q := r.URL.Query()
		products, err := svc.Products(r.Context(), livedatanow.ProductQuery{
			StoreID:    storeID,
			Page:       page,
			Department: validators.SanitizeString(q.Get("department"), 64),
			Kitchen:    validators.SanitizeString(q.Get("kitchen"), 64),
			Order:      q.Get("order"),
			Search:     validators.SanitizeString(q.Get("search"), 100),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func storeListing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, livedatanow.Page, bool) {
	storeID := middleware.StoreIDFromContext(r.Context())
	if storeID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "store not resolved"))
		return "", livedatanow.Page{}, false
	}
	page, err := pageParams(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", livedatanow.Page{}, false
	}
	return storeID, page, true
}

// pageParams reads the optional page and limit query parameters; absent values
// fall back to the upstream defaults.
func pageParams(r *http.Request) (livedatanow.Page, error) {
	var page livedatanow.Page
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		value, err := validators.ParseIntParam(raw, "page", 1, maxPage)
		if err != nil {
			return page, err
		}
		page.Page = value
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := validators.ParseIntParam(raw, "limit", 1, maxPageLimit)
		if err != nil {
			return page, err
		}
		page.Limit = value
	}
	return page, nil
}

// CatalogProductDetail returns a product with its modifier groups loaded.
func CatalogProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productParam(w, r, logg)
		if !ok {
			return
		}
		detail, err := svc.ProductDetail(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// CatalogQuote prices a selection into a cart line without touching the cart.
func CatalogQuote(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := productParam(w, r, logg)
		if !ok {
			return
		}
		var sel catalog.Selection
		if err := validators.DecodeJSONBody(r, &sel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Quote(r.Context(), productID, sel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func productParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
		return "", false
	}
	return productID, true
}
