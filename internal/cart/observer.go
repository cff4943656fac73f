package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Observer keeps an in-memory mirror of one device's cart, refreshed on every bus
// notification. It backs the live cart stream.
type Observer struct {
	svc      Service
	sub      Subscription
	deviceID string
	logg     *logger.Logger

	mu   sync.RWMutex
	cart Cart

	updates chan Cart
	stopped chan struct{}
	once    sync.Once
}

// NewObserver seeds the mirror from GetCart and starts following notifications.
// The caller must Close the observer.
func NewObserver(ctx context.Context, svc Service, bus Bus, deviceID string, logg *logger.Logger) (*Observer, error) {
	if svc == nil || bus == nil || logg == nil {
		return nil, fmt.Errorf("cart observer requires service, bus and logger")
	}
	sub, err := bus.Subscribe(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to cart changes: %w", err)
	}
	initial, _ := svc.GetCart(ctx, deviceID)

	o := &Observer{
		svc:      svc,
		sub:      sub,
		deviceID: deviceID,
		logg:     logg,
		cart:     initial,
		updates:  make(chan Cart, 1),
		stopped:  make(chan struct{}),
	}
	go o.follow(context.WithoutCancel(ctx))
	return o, nil
}

func (o *Observer) follow(ctx context.Context) {
	defer close(o.stopped)
	defer close(o.updates)
	for range o.sub.C() {
		fresh, _ := o.svc.GetCart(ctx, o.deviceID)
		o.replace(fresh)
	}
}

func (o *Observer) replace(c Cart) {
	o.mu.Lock()
	o.cart = c
	o.mu.Unlock()

	// keep only the newest snapshot for slow readers
	select {
	case o.updates <- c:
	default:
		select {
		case <-o.updates:
		default:
		}
		select {
		case o.updates <- c:
		default:
		}
	}
}

// Cart returns the current mirror.
func (o *Observer) Cart() Cart {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cart
}

// Updates yields a snapshot after each notification and closes when the observer stops.
func (o *Observer) Updates() <-chan Cart {
	return o.updates
}

func (o *Observer) AddToCart(ctx context.Context, item CartItem) (Cart, error) {
	return o.apply(o.svc.AddToCart(ctx, o.deviceID, item))
}

func (o *Observer) RemoveFromCart(ctx context.Context, index int) (Cart, error) {
	return o.apply(o.svc.RemoveFromCart(ctx, o.deviceID, index))
}

func (o *Observer) UpdateQuantity(ctx context.Context, index, quantity int) (Cart, error) {
	return o.apply(o.svc.UpdateCartItemQuantity(ctx, o.deviceID, index, quantity))
}

func (o *Observer) ClearCart(ctx context.Context) error {
	if err := o.svc.ClearCart(ctx, o.deviceID); err != nil {
		return err
	}
	o.mu.Lock()
	o.cart = EmptyCart()
	o.mu.Unlock()
	return nil
}

func (o *Observer) apply(c Cart, err error) (Cart, error) {
	if err != nil {
		return Cart{}, err
	}
	o.mu.Lock()
	o.cart = c
	o.mu.Unlock()
	return c, nil
}

// Close unsubscribes and waits for the follower goroutine to exit.
func (o *Observer) Close() error {
	var err error
	o.once.Do(func() {
		err = o.sub.Close()
		<-o.stopped
	})
	return err
}
