package livedatanow

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// LoginRequest starts a phone login.
type LoginRequest struct {
	Phone   string `json:"phone"`
	StoreID string `json:"storeId,omitempty"`
}

// VerifyOTPRequest completes a login with the one-time code.
type VerifyOTPRequest struct {
	Phone   string `json:"phone"`
	OTP     string `json:"otp"`
	StoreID string `json:"storeId,omitempty"`
}

// Login posts the phone number. A result without a token is not an error here.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	body, err := c.do(ctx, http.MethodPost, "/auth/login", "", "", req)
	if err != nil {
		return nil, err
	}
	return decodeLogin("auth/login", body)
}

// VerifyOTP exchanges the one-time code for a token.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.OTP) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and otp are required")
	}
	body, err := c.do(ctx, http.MethodPost, "/auth/verify-otp", "", "", req)
	if err != nil {
		return nil, err
	}
	return decodeLogin("auth/verify-otp", body)
}

// decodeLogin reads the token from token, data.token, data.accessToken or accessToken,
// and the user from user, data.user or data.
func decodeLogin(endpoint string, body []byte) (*LoginResult, error) {
	obj, ok := parseObject(body)
	if !ok {
		return nil, unexpected(endpoint, nil)
	}

	result := &LoginResult{
		Token: firstString(obj,
			[]string{"token"},
			[]string{"data", "token"},
			[]string{"data", "accessToken"},
			[]string{"accessToken"},
		),
	}

	if raw := firstObject(obj, []string{"user"}, []string{"data", "user"}, []string{"data"}); raw != nil {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, unexpected(endpoint, err)
		}
		if user != (User{}) {
			result.User = &user
		}
	}

	return result, nil
}

// GetProfile fetches the profile of the token holder.
func (c *Client) GetProfile(ctx context.Context, token string) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, "/profile", "", token, nil)
	if err != nil {
		return nil, err
	}
	var user User
	if err := decodeEntity("profile", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile writes the given fields and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*User, error) {
	body, err := c.do(ctx, http.MethodPut, "/profile", "", token, update)
	if err != nil {
		return nil, err
	}
	var user User
	if err := decodeEntity("profile", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
