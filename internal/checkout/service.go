package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// Service places orders from a device's cart and lists the orders placed with its session.
type Service interface {
	PlaceOrder(ctx context.Context, deviceID string, req PlaceOrderRequest) (*Result, error)
	History(ctx context.Context, deviceID string, page livedatanow.Page) ([]livedatanow.OrderRecord, error)
}

type sessionReader interface {
	Session(ctx context.Context, deviceID string) (*auth.Session, error)
	FetchProfile(ctx context.Context, deviceID string) (*livedatanow.User, error)
	Token(ctx context.Context, deviceID string) (string, error)
}

type cartStore interface {
	GetCart(ctx context.Context, deviceID string) (cart.Cart, error)
	ClearCartIfUnchanged(ctx context.Context, deviceID string, snapshot cart.Cart) (bool, error)
}

type orderClient interface {
	PlaceOrder(ctx context.Context, token string, order livedatanow.Order) (*livedatanow.PlacedOrder, error)
	MakePayment(ctx context.Context, token string, payment livedatanow.Payment) (json.RawMessage, error)
	MyOrders(ctx context.Context, token string, page livedatanow.Page) ([]livedatanow.OrderRecord, error)
}

type outcomeRecorder interface {
	IncOutcome(outcome string)
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Sessions sessionReader
	Carts    cartStore
	Orders   orderClient
	Metrics  outcomeRecorder
	Logger   *logger.Logger
}

type service struct {
	sessions sessionReader
	carts    cartStore
	orders   orderClient
	metrics  outcomeRecorder
	logg     *logger.Logger
}

// NewService constructs the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session reader is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	recorder := params.Metrics
	if recorder == nil {
		recorder = (*metrics.CheckoutMetrics)(nil)
	}
	return &service{
		sessions: params.Sessions,
		carts:    params.Carts,
		orders:   params.Orders,
		metrics:  recorder,
		logg:     params.Logger,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, deviceID string, req PlaceOrderRequest) (*Result, error) {
	ctx = s.logg.WithDeviceID(ctx, deviceID)

	result, err := s.placeOrder(ctx, deviceID, req)
	switch {
	case err == nil && result.Warning != "":
		s.metrics.IncOutcome(metrics.CheckoutPlacedNoPayment)
	case err == nil:
		s.metrics.IncOutcome(metrics.CheckoutPlaced)
	case isRejection(err):
		s.metrics.IncOutcome(metrics.CheckoutRejected)
	default:
		s.metrics.IncOutcome(metrics.CheckoutFailed)
	}
	return result, err
}

func (s *service) placeOrder(ctx context.Context, deviceID string, req PlaceOrderRequest) (*Result, error) {
	session, err := s.sessions.Session(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	user, err := s.completeProfile(ctx, deviceID, session.User)
	if err != nil {
		return nil, err
	}

	if err := validatePayment(req); err != nil {
		return nil, err
	}

	current, err := s.carts.GetCart(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]any{"redirect": RedirectCart})
	}

	token, err := s.sessions.Token(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	order := BuildOrder(current, user.CustomerRef(), req)
	placed, err := s.orders.PlaceOrder(ctx, token, order)
	if err != nil {
		s.logg.Error(ctx, "checkout.place_order_failed", err)
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, placed.ID)
	result := &Result{
		OrderID:  placed.ID,
		Order:    order,
		Redirect: RedirectOrders,
	}

	if req.PaymentMethod == PaymentCash {
		_, err := s.orders.MakePayment(ctx, token, livedatanow.Payment{
			Amount:        livedatanow.NewAmount(current.FinalTotal),
			PaymentMethod: PaymentCash,
			OrderID:       placed.ID,
			Status:        "PAID",
		})
		if err != nil {
			s.logg.Error(ctx, "checkout.payment_record_failed", err)
			result.Warning = paymentWarning
		} else {
			result.PaymentRecorded = true
		}
	}

	// Lines added while the order was in flight stay for the next order.
	cleared, err := s.carts.ClearCartIfUnchanged(ctx, deviceID, current)
	switch {
	case err != nil:
		s.logg.Error(ctx, "checkout.clear_cart_failed", err)
	case !cleared:
		s.logg.Warn(ctx, "checkout.cart_changed_during_order")
	}

	s.logg.Info(ctx, "checkout.order_placed")
	return result, nil
}

func (s *service) History(ctx context.Context, deviceID string, page livedatanow.Page) ([]livedatanow.OrderRecord, error) {
	ctx = s.logg.WithDeviceID(ctx, deviceID)
	session, err := s.sessions.Session(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	token, err := s.sessions.Token(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	orders, err := s.orders.MyOrders(ctx, token, page)
	if err != nil {
		s.logg.Error(ctx, "checkout.history_failed", err)
		return nil, err
	}
	if orders == nil {
		orders = []livedatanow.OrderRecord{}
	}
	return orders, nil
}

// completeProfile ensures a phone number is on file, refreshing the profile from upstream once.
func (s *service) completeProfile(ctx context.Context, deviceID string, cached *livedatanow.User) (*livedatanow.User, error) {
	if cached.HasPhone() {
		return cached, nil
	}

	refreshed, err := s.sessions.FetchProfile(ctx, deviceID)
	if err != nil {
		s.logg.Warn(ctx, "checkout.profile_refresh_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "please update your profile and try again").
			WithDetails(map[string]any{"redirect": RedirectProfile})
	}
	if !refreshed.HasPhone() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please add your phone number before placing an order").
			WithDetails(map[string]any{"redirect": RedirectProfile})
	}
	return refreshed, nil
}

func validatePayment(req PlaceOrderRequest) error {
	if req.Type != FulfillmentPickup && req.Type != FulfillmentDelivery {
		return pkgerrors.New(pkgerrors.CodeValidation, "order type must be pickup or delivery")
	}
	switch req.PaymentMethod {
	case PaymentCash:
		return nil
	case PaymentCard:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash or card")
	}

	card := req.Card
	if card == nil {
		card = &CardDetails{}
	}
	var errs error
	for _, field := range []struct {
		name  string
		value string
	}{
		{"cardNumber", card.Number},
		{"cardName", card.Name},
		{"expiryDate", card.Expiry},
		{"cvv", card.CVV},
	} {
		if strings.TrimSpace(field.value) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", field.name))
		}
	}
	if t := normalizedCardType(card.Type); t != CardCredit && t != CardDebit {
		errs = multierr.Append(errs, errors.New("cardType must be credit or debit"))
	}
	if errs == nil {
		return nil
	}

	problems := multierr.Errors(errs)
	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "please fill in all card details").
		WithDetails(map[string]any{"fields": messages})
}

func isRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized)
}
