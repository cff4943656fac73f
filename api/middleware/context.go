package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

type contextKey string

const (
	ctxDeviceID contextKey = "device_id"
	ctxStore    contextKey = "store"
)

// DeviceIDFromContext returns the device resolved by the Device middleware.
func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// StoreFromContext returns the storefront resolved for the request host.
func StoreFromContext(ctx context.Context) *livedatanow.Store {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxStore).(*livedatanow.Store); ok {
		return v
	}
	return nil
}

// StoreIDFromContext is a shorthand for the resolved store's id.
func StoreIDFromContext(ctx context.Context) string {
	if store := StoreFromContext(ctx); store != nil {
		return store.ID
	}
	return ""
}

// WithDeviceID injects the device identifier into the context.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDeviceID, deviceID)
}

// WithStore injects the resolved store for downstream handlers.
func WithStore(ctx context.Context, store *livedatanow.Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStore, store)
}
