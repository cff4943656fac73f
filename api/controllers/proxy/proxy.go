// Package proxy relays storefront calls to LiveDataNow and the DCAP payment gateway.
// Responses are passed through as JSON; failures use the flat {"error": "..."} body.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	msgExternalAPI    = "Failed to fetch from external API"
	msgOrders         = "Failed to fetch orders"
	msgPaymentGateway = "Failed to fetch from payment gateway"
	msgWebOrderToken  = "WEB_ORDER_TOKEN is not set"
	msgBodyTooLarge   = "Request body too large"

	requestBodyLimit = 1 << 20
	myOrdersPath     = "order/my-orders"
)

type forwarder interface {
	Forward(ctx context.Context, req livedatanow.ForwardRequest) (*livedatanow.Response, error)
}

type apiKeyAcquirer interface {
	AcquireInitialAPIKey(ctx context.Context) (*livedatanow.Response, error)
}

// OnlineOrder forwards GET, POST and PUT calls under the mounted prefix to the upstream
// online-order API. The query string travels on GET, the raw body on POST and PUT, and the
// caller's Authorization header is relayed untouched.
func OnlineOrder(client forwarder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := livedatanow.ForwardRequest{
			Method:        r.Method,
			Path:          chi.URLParam(r, "*"),
			Authorization: r.Header.Get("Authorization"),
		}
		if r.Method == http.MethodGet {
			req.RawQuery = r.URL.RawQuery
		} else {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, requestBodyLimit))
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logg.Warn(logg.WithField(ctx, "limit", tooLarge.Limit), "proxy.body_too_large")
				responses.WriteProxyError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
				return
			}
			if err != nil {
				logg.Error(ctx, "proxy.read_body_failed", err)
				responses.WriteProxyError(w, http.StatusInternalServerError, msgExternalAPI)
				return
			}
			req.Body = body
		}

		ctx = logg.WithUpstream(ctx, req.Method, req.Path)
		resp, err := client.Forward(ctx, req)
		relay(ctx, w, resp, err, msgExternalAPI, logg)
	}
}

// MyOrders lists orders with the server-held web order token.
func MyOrders(client forwarder, webOrderToken string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(webOrderToken)
		if token == "" {
			responses.WriteProxyError(w, http.StatusInternalServerError, msgWebOrderToken)
			return
		}
		ctx := logg.WithUpstream(r.Context(), http.MethodGet, myOrdersPath)
		resp, err := client.Forward(ctx, livedatanow.ForwardRequest{
			Method:        http.MethodGet,
			Path:          myOrdersPath,
			RawQuery:      r.URL.RawQuery,
			Authorization: "Bearer " + token,
		})
		relay(ctx, w, resp, err, msgOrders, logg)
	}
}

// AcquireAPIKey asks the payment gateway for an initial API key.
func AcquireAPIKey(client apiKeyAcquirer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp, err := client.AcquireInitialAPIKey(ctx)
		relay(ctx, w, resp, err, msgPaymentGateway, logg)
	}
}

// relay writes an upstream answer: the extracted message at the upstream status on
// failure, the JSON body on success, and the fallback message for anything unusable.
func relay(ctx context.Context, w http.ResponseWriter, resp *livedatanow.Response, err error, fallback string, logg *logger.Logger) {
	if err != nil || resp == nil {
		logg.Error(ctx, "proxy.exception", err)
		responses.WriteProxyError(w, http.StatusInternalServerError, fallback)
		return
	}
	if !resp.OK() {
		message := resp.ErrorMessage()
		logg.Warn(logg.WithFields(ctx, map[string]any{"status": resp.Status, "upstream_error": message}), "proxy.upstream_error")
		responses.WriteProxyError(w, resp.Status, message)
		return
	}
	if !json.Valid(resp.Body) {
		logg.Warn(logg.WithField(ctx, "status", resp.Status), "proxy.non_json_body")
		responses.WriteProxyError(w, http.StatusInternalServerError, fallback)
		return
	}
	responses.WriteRaw(w, http.StatusOK, resp.Body)
}
