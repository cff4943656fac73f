package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed.v1."
	keyLen       = 32
	nonceLen     = 24
)

var (
	// ErrSealed is returned when a sealed value is read without a key configured.
	ErrSealed = errors.New("value is sealed but no seal secret is configured")
	// ErrTampered signals a sealed value that fails authentication.
	ErrTampered = errors.New("sealed value failed authentication")
)

// ArgonParams are the Argon2id settings used to derive the seal key.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// Sealer encrypts short secrets (upstream bearer tokens) before they reach the key-value store.
// Without a secret it passes values through unchanged.
type Sealer struct {
	key     [keyLen]byte
	enabled bool
}

// NewSealer derives the secretbox key from the configured secret with Argon2id.
func NewSealer(cfg config.SecurityConfig) (*Sealer, error) {
	secret := strings.TrimSpace(cfg.TokenSealSecret)
	if secret == "" {
		return &Sealer{}, nil
	}
	if cfg.TokenSealSalt == "" {
		return nil, fmt.Errorf("token seal salt is required when a seal secret is set")
	}

	params := paramsFromConfig(cfg)
	derived := argon2.IDKey([]byte(secret), []byte(cfg.TokenSealSalt), params.Time, params.Memory, params.Parallelism, keyLen)

	s := &Sealer{enabled: true}
	copy(s.key[:], derived)
	return s, nil
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return s != nil && s.enabled
}

// Seal encrypts plaintext into a printable token.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if !s.Enabled() {
		return plaintext, nil
	}
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal. Unsealed values written before sealing was enabled are returned as-is.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !s.Enabled() {
		return "", ErrSealed
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < nonceLen+secretbox.Overhead {
		return "", ErrTampered
	}
	var nonce [nonceLen]byte
	copy(nonce[:], raw[:nonceLen])
	plain, ok := secretbox.Open(nil, raw[nonceLen:], &nonce, &s.key)
	if !ok {
		return "", ErrTampered
	}
	return string(plain), nil
}

func paramsFromConfig(cfg config.SecurityConfig) ArgonParams {
	return ArgonParams{
		Memory:      clampUint32(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clampUint32(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(clampInt(cfg.ArgonParallelism, 1, 255)),
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampUint32(value, min, max int) uint32 {
	return uint32(clampInt(value, min, max))
}
