package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxCartIndex = 1 << 16

// CartFetch returns the device's cart, or the canonical empty cart.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		current, err := svc.GetCart(r.Context(), deviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

// CartAdd merges a line item into the cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		var item cartsvc.CartItem
		if err := validators.DecodeJSONBody(r, &item); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if item.Modifiers == nil {
			item.Modifiers = []cartsvc.CartModifier{}
		}
		updated, err := svc.AddToCart(r.Context(), deviceID, item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartUpdateQuantity rescales the line at {index}; a quantity of zero or less removes it.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		index, err := validators.ParseIntParam(chi.URLParam(r, "index"), "index", 0, maxCartIndex)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.UpdateCartItemQuantity(r.Context(), deviceID, index, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// CartRemove drops the line at {index}. An unknown index leaves the cart as is.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		index, err := validators.ParseIntParam(chi.URLParam(r, "index"), "index", 0, maxCartIndex)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.RemoveFromCart(r.Context(), deviceID, index)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		if err := svc.ClearCart(r.Context(), deviceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.EmptyCart())
	}
}

func requireDevice(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	deviceID := middleware.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "device context missing"))
		return "", false
	}
	return deviceID, true
}
