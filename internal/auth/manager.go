package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.uber.org/multierr"
)

const noTokenMessage = "No token received"

// Manager owns the per-device upstream session: bearer token, cached profile and pending OTP.
type Manager interface {
	Login(ctx context.Context, deviceID string, req LoginRequest) (*Session, error)
	VerifyOTP(ctx context.Context, deviceID string, req VerifyOTPRequest) (*Session, error)
	Logout(ctx context.Context, deviceID string) error
	UpdateProfile(ctx context.Context, deviceID string, update livedatanow.ProfileUpdate) (*livedatanow.User, error)
	FetchProfile(ctx context.Context, deviceID string) (*livedatanow.User, error)
	Resume(ctx context.Context, deviceID string) (*Session, error)
	Session(ctx context.Context, deviceID string) (*Session, error)
	Token(ctx context.Context, deviceID string) (string, error)
}

type upstream interface {
	Login(ctx context.Context, req livedatanow.LoginRequest) (*livedatanow.LoginResult, error)
	VerifyOTP(ctx context.Context, req livedatanow.VerifyOTPRequest) (*livedatanow.LoginResult, error)
	GetProfile(ctx context.Context, token string) (*livedatanow.User, error)
	UpdateProfile(ctx context.Context, token string, update livedatanow.ProfileUpdate) (*livedatanow.User, error)
}

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// ManagerParams bundles the dependencies required to build a session manager.
type ManagerParams struct {
	Store      kvstore.Store
	Upstream   upstream
	Sealer     tokenSealer
	Logger     *logger.Logger
	OTPEnabled bool
	Now        func() time.Time
}

type manager struct {
	store      kvstore.Store
	upstream   upstream
	sealer     tokenSealer
	logg       *logger.Logger
	otpEnabled bool
	now        func() time.Time
}

// NewManager constructs a session manager with the provided dependencies.
func NewManager(params ManagerParams) (Manager, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if params.Sealer == nil {
		return nil, fmt.Errorf("token sealer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &manager{
		store:      params.Store,
		upstream:   params.Upstream,
		sealer:     params.Sealer,
		logg:       params.Logger,
		otpEnabled: params.OTPEnabled,
		now:        now,
	}, nil
}

func (m *manager) Login(ctx context.Context, deviceID string, req LoginRequest) (*Session, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	ctx = m.logg.WithDeviceID(ctx, deviceID)
	store := kvstore.ForDevice(m.store, deviceID)

	result, err := m.upstream.Login(ctx, livedatanow.LoginRequest{Phone: phone, StoreID: strings.TrimSpace(req.StoreID)})
	if err != nil {
		return nil, upstreamFailure(err, "login failed")
	}

	if result.Token != "" {
		return m.establish(ctx, store, result)
	}

	if !m.otpEnabled {
		m.logg.Warn(ctx, "auth.login_missing_token")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, noTokenMessage)
	}

	pending := pendingOTP{Phone: phone, StoreID: strings.TrimSpace(req.StoreID), RequestedAt: m.now().UTC()}
	encoded, err := json.Marshal(pending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending otp")
	}
	if err := ignoreUnavailable(store.Set(ctx, kvstore.KeyOTPPending, string(encoded))); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist pending otp")
	}
	m.logg.Info(ctx, "auth.otp_dispatched")
	return &Session{State: StateOTPPending, PendingPhone: phone}, nil
}

func (m *manager) VerifyOTP(ctx context.Context, deviceID string, req VerifyOTPRequest) (*Session, error) {
	otp := strings.TrimSpace(req.OTP)
	if otp == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "otp is required")
	}
	ctx = m.logg.WithDeviceID(ctx, deviceID)
	store := kvstore.ForDevice(m.store, deviceID)

	phone := strings.TrimSpace(req.Phone)
	storeID := strings.TrimSpace(req.StoreID)
	if pending, ok := m.pending(ctx, store); ok {
		if phone == "" {
			phone = pending.Phone
		}
		if storeID == "" {
			storeID = pending.StoreID
		}
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	result, err := m.upstream.VerifyOTP(ctx, livedatanow.VerifyOTPRequest{Phone: phone, OTP: otp, StoreID: storeID})
	if err != nil {
		return nil, upstreamFailure(err, "otp verification failed")
	}
	if result.Token == "" {
		m.logg.Warn(ctx, "auth.verify_missing_token")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, noTokenMessage)
	}
	return m.establish(ctx, store, result)
}

// establish persists a fresh token and profile, fetching the profile when the login answer omitted it.
func (m *manager) establish(ctx context.Context, store kvstore.Store, result *livedatanow.LoginResult) (*Session, error) {
	sealed, err := m.sealer.Seal(result.Token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal token")
	}
	if err := ignoreUnavailable(store.Set(ctx, kvstore.KeyAuthToken, sealed)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist token")
	}
	if err := ignoreMissing(store.Remove(ctx, kvstore.KeyOTPPending)); err != nil {
		m.logg.Error(ctx, "auth.clear_pending_failed", err)
	}

	user := result.User
	if user == nil {
		fetched, err := m.upstream.GetProfile(ctx, result.Token)
		if err != nil {
			m.logg.Warn(ctx, "auth.profile_fetch_failed")
		} else {
			user = fetched
		}
	}
	if user != nil {
		if err := m.cacheUser(ctx, store, user); err != nil {
			return nil, err
		}
	}

	m.logg.Info(ctx, "auth.authenticated")
	return &Session{State: StateAuthenticated, User: user, HasToken: true}, nil
}

func (m *manager) Logout(ctx context.Context, deviceID string) error {
	store := kvstore.ForDevice(m.store, deviceID)
	var errs error
	for _, key := range []string{kvstore.KeyAuthToken, kvstore.KeyUserData, kvstore.KeyOTPPending} {
		errs = multierr.Append(errs, ignoreMissing(store.Remove(ctx, key)))
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "clear session")
	}
	m.logg.Info(m.logg.WithDeviceID(ctx, deviceID), "auth.logged_out")
	return nil
}

func (m *manager) UpdateProfile(ctx context.Context, deviceID string, update livedatanow.ProfileUpdate) (*livedatanow.User, error) {
	store := kvstore.ForDevice(m.store, deviceID)
	token, err := m.token(ctx, store)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	user, err := m.upstream.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, upstreamFailure(err, "failed to update profile")
	}
	if err := m.cacheUser(ctx, store, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *manager) FetchProfile(ctx context.Context, deviceID string) (*livedatanow.User, error) {
	store := kvstore.ForDevice(m.store, deviceID)
	token, err := m.token(ctx, store)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	user, err := m.upstream.GetProfile(ctx, token)
	if err != nil {
		return nil, upstreamFailure(err, "failed to fetch profile")
	}
	if err := m.cacheUser(ctx, store, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Resume reconciles the cached profile when a token exists without one.
// A failed refresh leaves the session authenticated without a profile.
func (m *manager) Resume(ctx context.Context, deviceID string) (*Session, error) {
	session, err := m.Session(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() || session.User != nil {
		return session, nil
	}
	user, err := m.FetchProfile(ctx, deviceID)
	if err != nil {
		m.logg.Warn(m.logg.WithDeviceID(ctx, deviceID), "auth.resume_profile_failed")
		return session, nil
	}
	session.User = user
	return session, nil
}

func (m *manager) Session(ctx context.Context, deviceID string) (*Session, error) {
	store := kvstore.ForDevice(m.store, deviceID)
	token, err := m.token(ctx, store)
	if err != nil {
		return nil, err
	}

	if token == "" {
		if pending, ok := m.pending(ctx, store); ok {
			return &Session{State: StateOTPPending, PendingPhone: pending.Phone}, nil
		}
		return &Session{State: StateAnonymous}, nil
	}

	return &Session{
		State:    StateAuthenticated,
		User:     m.cachedUser(ctx, store),
		HasToken: true,
	}, nil
}

func (m *manager) Token(ctx context.Context, deviceID string) (string, error) {
	return m.token(ctx, kvstore.ForDevice(m.store, deviceID))
}

// token reads and opens the stored bearer token; an empty string means anonymous.
func (m *manager) token(ctx context.Context, store kvstore.Store) (string, error) {
	raw, err := store.Get(ctx, kvstore.KeyAuthToken)
	switch {
	case errors.Is(err, kvstore.ErrNotFound), errors.Is(err, kvstore.ErrUnavailable):
		return "", nil
	case err != nil:
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read token")
	}
	token, err := m.sealer.Open(raw)
	if err != nil {
		m.logg.Error(ctx, "auth.token_unreadable", err)
		return "", nil
	}
	return strings.TrimSpace(token), nil
}

func (m *manager) cachedUser(ctx context.Context, store kvstore.Store) *livedatanow.User {
	raw, err := store.Get(ctx, kvstore.KeyUserData)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) && !errors.Is(err, kvstore.ErrUnavailable) {
			m.logg.Error(ctx, "auth.user_read_failed", err)
		}
		return nil
	}
	var user livedatanow.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logg.Warn(ctx, "auth.user_malformed")
		return nil
	}
	return &user
}

func (m *manager) cacheUser(ctx context.Context, store kvstore.Store, user *livedatanow.User) error {
	if user == nil {
		return nil
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode profile")
	}
	if err := ignoreUnavailable(store.Set(ctx, kvstore.KeyUserData, string(encoded))); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist profile")
	}
	return nil
}

func (m *manager) pending(ctx context.Context, store kvstore.Store) (pendingOTP, bool) {
	raw, err := store.Get(ctx, kvstore.KeyOTPPending)
	if err != nil {
		return pendingOTP{}, false
	}
	var pending pendingOTP
	if err := json.Unmarshal([]byte(raw), &pending); err != nil || pending.Phone == "" {
		m.logg.Warn(ctx, "auth.pending_malformed")
		return pendingOTP{}, false
	}
	return pending, true
}

// upstreamFailure keeps typed upstream errors and wraps anything else as a dependency failure.
func upstreamFailure(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func ignoreMissing(err error) error {
	if errors.Is(err, kvstore.ErrNotFound) || errors.Is(err, kvstore.ErrUnavailable) {
		return nil
	}
	return err
}

func ignoreUnavailable(err error) error {
	if errors.Is(err, kvstore.ErrUnavailable) {
		return nil
	}
	return err
}
