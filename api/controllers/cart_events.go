package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/storefront-backend/api/responses"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	cartEventsWriteWait  = 10 * time.Second
	cartEventsPongWait   = 60 * time.Second
	cartEventsPingPeriod = cartEventsPongWait * 9 / 10
)

// CartEvent is one frame on the cart stream.
type CartEvent struct {
	Type string       `json:"type"`
	Cart cartsvc.Cart `json:"cart"`
}

// CartEvents upgrades to a websocket and pushes the device's cart on open and after every
// change, including changes made by other tabs or other API instances.
func CartEvents(svc cartsvc.Service, bus cartsvc.Bus, allowedOrigins []string, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		observer, err := cartsvc.NewObserver(ctx, svc, bus, deviceID, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to cart"))
			return
		}
		defer observer.Close()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "cart.events.upgrade_failed")
			return
		}
		defer conn.Close()

		streamCart(ctx, conn, observer, logg)
	}
}

func streamCart(ctx context.Context, conn *websocket.Conn, observer *cartsvc.Observer, logg *logger.Logger) {
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(cartEventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cartEventsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(event CartEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(cartEventsWriteWait))
		if err := conn.WriteJSON(event); err != nil {
			logg.Debug(logg.WithField(ctx, "reason", err.Error()), "cart.events.write_failed")
			return false
		}
		return true
	}

	if !send(CartEvent{Type: "snapshot", Cart: observer.Cart()}) {
		return
	}

	ticker := time.NewTicker(cartEventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case current, ok := <-observer.Updates():
			if !ok {
				return
			}
			if !send(CartEvent{Type: "updated", Cart: current}) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(cartEventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originChecker allows same-origin requests and the configured CORS origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
