package auth

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

// State is the position of a device in the login flow.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateOTPPending    State = "otp_pending"
	StateAuthenticated State = "authenticated"
)

// LoginRequest starts a phone login.
type LoginRequest struct {
	Phone   string `json:"phone" validate:"required,min=7,max=20"`
	StoreID string `json:"storeId"`
}

// VerifyOTPRequest completes an OTP login. Phone and store default to the pending login.
type VerifyOTPRequest struct {
	Phone   string `json:"phone" validate:"omitempty,min=7,max=20"`
	OTP     string `json:"otp" validate:"required,min=4,max=10"`
	StoreID string `json:"storeId"`
}

// Session is the device's auth snapshot. It never carries the token itself.
type Session struct {
	State        State             `json:"state"`
	User         *livedatanow.User `json:"user,omitempty"`
	HasToken     bool              `json:"hasToken"`
	PendingPhone string            `json:"pendingPhone,omitempty"`
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == StateAuthenticated
}

type pendingOTP struct {
	Phone       string    `json:"phone"`
	StoreID     string    `json:"storeId,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}
