package kvstore

import (
	"context"
	"strings"
)

const devicePrefix = "device"

type deviceStore struct {
	inner  Store
	prefix string
}

// ForDevice scopes store to a single device so two browsers never see each other's keys.
// A blank device id has no storage and yields Unavailable.
func ForDevice(store Store, deviceID string) Store {
	deviceID = strings.TrimSpace(deviceID)
	if store == nil || deviceID == "" {
		return Unavailable
	}
	return &deviceStore{inner: store, prefix: DeviceKey(deviceID, "")}
}

// DeviceKey returns the backend key for key under deviceID.
func DeviceKey(deviceID, key string) string {
	return devicePrefix + ":" + deviceID + ":" + key
}

func (s *deviceStore) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *deviceStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *deviceStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
