package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
)

func waitForUpdate(t *testing.T, o *Observer) Cart {
	t.Helper()
	select {
	case c, ok := <-o.Updates():
		if !ok {
			t.Fatal("updates channel closed unexpectedly")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cart update")
	}
	return Cart{}
}

func TestObserverFollowsMutationsFromOtherCallers(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()
	svc, err := NewService(kvstore.NewMemory(), bus, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	tabA, err := NewObserver(ctx, svc, bus, testDevice, testLogger())
	if err != nil {
		t.Fatalf("observer a: %v", err)
	}
	defer tabA.Close()
	tabB, err := NewObserver(ctx, svc, bus, testDevice, testLogger())
	if err != nil {
		t.Fatalf("observer b: %v", err)
	}
	defer tabB.Close()

	assertEmpty(t, tabB.Cart())

	if _, err := tabA.AddToCart(ctx, p1(1, "10", "0.832")); err != nil {
		t.Fatalf("add via tab a: %v", err)
	}
	if tabA.Cart().TotalItems != 1 {
		t.Fatal("originating mirror should update immediately")
	}

	got := waitForUpdate(t, tabB)
	if got.TotalItems != 1 {
		t.Fatalf("tab b expected 1 item, got %d", got.TotalItems)
	}
	if tabB.Cart().TotalItems != 1 {
		t.Fatal("tab b mirror not replaced")
	}

	if err := tabA.ClearCart(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared := waitForUpdate(t, tabB)
	assertEmpty(t, cleared)
}

func TestObserverWrappedOperations(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()
	svc, _ := NewService(kvstore.NewMemory(), bus, testLogger())

	o, err := NewObserver(ctx, svc, bus, testDevice, testLogger())
	if err != nil {
		t.Fatalf("observer: %v", err)
	}
	defer o.Close()

	if _, err := o.AddToCart(ctx, p1(3, "30", "2.496")); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := o.UpdateQuantity(ctx, 0, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	assertDecimal(t, "subTotal", c.SubTotal, "10")

	c, err = o.RemoveFromCart(ctx, 0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertEmpty(t, c)
	assertEmpty(t, o.Cart())
}

func TestObserverCloseUnsubscribes(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()
	svc, _ := NewService(kvstore.NewMemory(), bus, testLogger())

	o, err := NewObserver(ctx, svc, bus, testDevice, testLogger())
	if err != nil {
		t.Fatalf("observer: %v", err)
	}
	if bus.subscribers(testDevice) != 1 {
		t.Fatalf("expected one subscriber, got %d", bus.subscribers(testDevice))
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if bus.subscribers(testDevice) != 0 {
		t.Fatalf("expected no subscribers after close, got %d", bus.subscribers(testDevice))
	}
	if _, ok := <-o.Updates(); ok {
		t.Fatal("updates should be closed after Close")
	}
}

func TestLocalBusCoalescesNotifications(t *testing.T) {
	bus := NewLocalBus()
	sub, _ := bus.Subscribe(context.Background(), testDevice)
	defer sub.Close()
	other, _ := bus.Subscribe(context.Background(), "someone-else")
	defer other.Close()

	for i := 0; i < 5; i++ {
		_ = bus.Publish(context.Background(), testDevice)
	}

	select {
	case <-sub.C():
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-sub.C():
		t.Fatal("notifications should coalesce into one")
	default:
	}
	select {
	case <-other.C():
		t.Fatal("other devices must not be notified")
	default:
	}
}
