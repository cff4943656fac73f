package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// DeviceClaims identify one browser. Everything the storefront keeps server side is
// scoped by DeviceID.
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// NewDeviceID returns a fresh random device identifier.
func NewDeviceID() string {
	return uuid.NewString()
}

// MintDeviceToken signs a device token valid for the configured TTL.
func MintDeviceToken(cfg config.DeviceConfig, now time.Time, deviceID string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("device secret is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("device ttl must be positive")
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", fmt.Errorf("device id is required")
	}

	claims := DeviceClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing device token: %w", err)
	}
	return signed, nil
}

// ParseDeviceToken validates signature, issuer and expiry and returns the claims.
func ParseDeviceToken(cfg config.DeviceConfig, tokenString string) (*DeviceClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("device secret is required")
	}

	claims := &DeviceClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.DeviceID) == "" {
		return nil, fmt.Errorf("device token missing device_id")
	}
	return claims, nil
}
