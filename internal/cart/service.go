package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service maintains each device's cart in the key-value store, recomputing totals on every write.
type Service interface {
	GetCart(ctx context.Context, deviceID string) (Cart, error)
	AddToCart(ctx context.Context, deviceID string, item CartItem) (Cart, error)
	RemoveFromCart(ctx context.Context, deviceID string, index int) (Cart, error)
	UpdateCartItemQuantity(ctx context.Context, deviceID string, index, quantity int) (Cart, error)
	ClearCart(ctx context.Context, deviceID string) error
	ClearCartIfUnchanged(ctx context.Context, deviceID string, snapshot Cart) (bool, error)
}

// Option tweaks service behaviour.
type Option func(*service)

// WithSortedModifierIdentity makes merge identity ignore modifier order.
func WithSortedModifierIdentity(sorted bool) Option {
	return func(s *service) { s.sortModifiers = sorted }
}

const lockStripes = 64

type service struct {
	store         kvstore.Store
	bus           Bus
	logg          *logger.Logger
	sortModifiers bool
	locks         [lockStripes]sync.Mutex
}

// NewService builds the cart engine on store, announcing mutations on bus.
func NewService(store kvstore.Store, bus Bus, logg *logger.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if bus == nil {
		return nil, fmt.Errorf("cart bus required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{store: store, bus: bus, logg: logg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetCart returns the persisted cart or the canonical empty cart. It never fails:
// missing, unreadable and malformed entries all read as empty.
func (s *service) GetCart(ctx context.Context, deviceID string) (Cart, error) {
	cart, err := s.load(ctx, deviceID)
	if err != nil {
		s.logg.Error(s.logg.WithDeviceID(ctx, deviceID), "cart.read_failed", err)
		return EmptyCart(), nil
	}
	return cart, nil
}

func (s *service) AddToCart(ctx context.Context, deviceID string, item CartItem) (Cart, error) {
	if err := validateItem(item); err != nil {
		return Cart{}, err
	}
	if item.Modifiers == nil {
		item.Modifiers = []CartModifier{}
	}

	return s.mutate(ctx, deviceID, func(items []CartItem) ([]CartItem, bool) {
		key := identityKey(item, s.sortModifiers)
		for i := range items {
			if identityKey(items[i], s.sortModifiers) != key {
				continue
			}
			items[i].Quantity += item.Quantity
			items[i].SubTotal = items[i].SubTotal.Add(item.SubTotal)
			items[i].Tax = items[i].Tax.Add(item.Tax)
			return items, true
		}
		return append(items, item), true
	})
}

func (s *service) RemoveFromCart(ctx context.Context, deviceID string, index int) (Cart, error) {
	return s.mutate(ctx, deviceID, func(items []CartItem) ([]CartItem, bool) {
		if index < 0 || index >= len(items) {
			return items, false
		}
		return append(items[:index], items[index+1:]...), true
	})
}

// UpdateCartItemQuantity rescales a line's aggregates to quantity, keeping unit economics.
// A quantity of zero or less removes the line.
func (s *service) UpdateCartItemQuantity(ctx context.Context, deviceID string, index, quantity int) (Cart, error) {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, deviceID, index)
	}
	return s.mutate(ctx, deviceID, func(items []CartItem) ([]CartItem, bool) {
		if index < 0 || index >= len(items) {
			return items, false
		}
		line := &items[index]
		if line.Quantity <= 0 {
			return items, false
		}
		oldQty := decimal.NewFromInt(int64(line.Quantity))
		newQty := decimal.NewFromInt(int64(quantity))
		line.SubTotal = line.SubTotal.Mul(newQty).Div(oldQty)
		line.Tax = line.Tax.Mul(newQty).Div(oldQty)
		line.Quantity = quantity
		return items, true
	})
}

func (s *service) ClearCart(ctx context.Context, deviceID string) error {
	mu := s.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	err := kvstore.ForDevice(s.store, deviceID).Remove(ctx, kvstore.KeyCart)
	if errors.Is(err, kvstore.ErrUnavailable) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.announce(ctx, deviceID)
	return nil
}

// ClearCartIfUnchanged removes the cart only while its lines still equal snapshot's.
// It reports whether the cart was cleared.
func (s *service) ClearCartIfUnchanged(ctx context.Context, deviceID string, snapshot Cart) (bool, error) {
	mu := s.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, deviceID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}
	same, err := sameItems(current.Items, snapshot.Items)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compare cart")
	}
	if !same {
		return false, nil
	}

	err = kvstore.ForDevice(s.store, deviceID).Remove(ctx, kvstore.KeyCart)
	if errors.Is(err, kvstore.ErrUnavailable) {
		return true, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.announce(ctx, deviceID)
	return true, nil
}

// mutate runs a read-modify-write of the device cart. apply reports whether it changed
// anything; unchanged carts are neither persisted nor announced.
func (s *service) mutate(ctx context.Context, deviceID string, apply func([]CartItem) ([]CartItem, bool)) (Cart, error) {
	mu := s.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, deviceID)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}

	items, changed := apply(current.Items)
	if !changed {
		return current, nil
	}
	next := CalculateCartTotals(items)

	encoded, err := json.Marshal(next)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	err = kvstore.ForDevice(s.store, deviceID).Set(ctx, kvstore.KeyCart, string(encoded))
	if errors.Is(err, kvstore.ErrUnavailable) {
		return next, nil
	}
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	s.announce(ctx, deviceID)
	return next, nil
}

// load reads the stored cart. Absent storage or entry yields the empty cart; a stored
// value that does not decode is logged and treated as empty.
func (s *service) load(ctx context.Context, deviceID string) (Cart, error) {
	raw, err := kvstore.ForDevice(s.store, deviceID).Get(ctx, kvstore.KeyCart)
	if errors.Is(err, kvstore.ErrNotFound) || errors.Is(err, kvstore.ErrUnavailable) {
		return EmptyCart(), nil
	}
	if err != nil {
		return Cart{}, err
	}

	var stored Cart
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"device_id": deviceID, "error": err.Error()}), "cart.malformed_entry")
		return EmptyCart(), nil
	}
	return CalculateCartTotals(stored.Items), nil
}

func (s *service) announce(ctx context.Context, deviceID string) {
	if err := s.bus.Publish(ctx, deviceID); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"device_id": deviceID, "error": err.Error()}), "cart.publish_failed")
	}
}

func sameItems(a, b []CartItem) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	left, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(left, right), nil
}

func (s *service) lockFor(deviceID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return &s.locks[h.Sum32()%lockStripes]
}

func validateItem(item CartItem) error {
	switch {
	case item.ProductID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	case item.Quantity < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	case item.Price.IsNegative(), item.SubTotal.IsNegative(), item.Tax.IsNegative(), item.Discount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be non-negative")
	}
	return nil
}
