package livedatanow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// PlaceOrder submits an order. The id is read from _id, data._id, id or data.id.
func (c *Client) PlaceOrder(ctx context.Context, token string, order Order) (*PlacedOrder, error) {
	if len(order.OrderItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	body, err := c.do(ctx, http.MethodPost, "/order/place-order", "", token, order)
	if err != nil {
		return nil, err
	}
	obj, ok := parseObject(body)
	if !ok {
		return nil, unexpected("order/place-order", nil)
	}
	return &PlacedOrder{
		ID: firstString(obj,
			[]string{"_id"},
			[]string{"data", "_id"},
			[]string{"id"},
			[]string{"data", "id"},
		),
		Raw: json.RawMessage(body),
	}, nil
}

// MyOrders lists the order history of the token holder.
func (c *Client) MyOrders(ctx context.Context, token string, page Page) ([]OrderRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "order history requires a token")
	}
	q := url.Values{}
	page.normalized(defaultListLimit).apply(q)
	body, err := c.do(ctx, http.MethodGet, "/order/my-orders", q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	var orders []OrderRecord
	if err := decodeList("order/my-orders", "orders", body, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MakePayment records a payment against a placed order.
func (c *Client) MakePayment(ctx context.Context, token string, payment Payment) (json.RawMessage, error) {
	if strings.TrimSpace(payment.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment requires an order id")
	}
	body, err := c.do(ctx, http.MethodPost, "/payment/make-payment", "", token, payment)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, unexpected("payment/make-payment", nil)
	}
	return json.RawMessage(body), nil
}
