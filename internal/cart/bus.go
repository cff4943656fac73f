package cart

import (
	"context"
	"sync"
)

// Bus carries "cart changed" notifications for a device. The engine publishes after
// every persisted mutation; observers re-read the cart when notified.
type Bus interface {
	Publish(ctx context.Context, deviceID string) error
	Subscribe(ctx context.Context, deviceID string) (Subscription, error)
}

// Subscription delivers coalesced notifications until closed.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

// LocalBus fans notifications out to subscribers in the same process.
type LocalBus struct {
	mu   sync.Mutex
	subs map[string]map[*localSubscription]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[*localSubscription]struct{})}
}

func (b *LocalBus) Publish(_ context.Context, deviceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[deviceID] {
		sub.notify()
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, deviceID string) (Subscription, error) {
	sub := &localSubscription{bus: b, deviceID: deviceID, ch: make(chan struct{}, 1)}
	b.mu.Lock()
	if b.subs[deviceID] == nil {
		b.subs[deviceID] = make(map[*localSubscription]struct{})
	}
	b.subs[deviceID][sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

func (b *LocalBus) remove(sub *localSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sub.deviceID]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.deviceID)
	}
}

// subscribers reports how many live subscriptions exist for deviceID.
func (b *LocalBus) subscribers(deviceID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[deviceID])
}

type localSubscription struct {
	bus      *LocalBus
	deviceID string
	ch       chan struct{}
	once     sync.Once
}

// notify must be called with the bus lock held.
func (s *localSubscription) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *localSubscription) C() <-chan struct{} { return s.ch }

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.ch)
	})
	return nil
}
