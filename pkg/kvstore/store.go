// Package kvstore is the get/set/remove port over named keys that backs device-local
// state: the upstream bearer token, the cached profile and the serialized cart.
package kvstore

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyAuthToken  = "auth_token"
	KeyUserData   = "user_data"
	KeyCart       = "food_order_cart"
	KeyOTPPending = "otp_pending"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrUnavailable signals that no storage exists in the current execution context.
	ErrUnavailable = errors.New("kvstore: storage unavailable")
)

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type unavailable struct{}

// Unavailable is a Store that has nowhere to persist; every call fails with ErrUnavailable.
var Unavailable Store = unavailable{}

func (unavailable) Get(context.Context, string) (string, error) { return "", ErrUnavailable }

func (unavailable) Set(context.Context, string, string) error { return ErrUnavailable }

func (unavailable) Remove(context.Context, string) error { return ErrUnavailable }
