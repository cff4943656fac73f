package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

func testDeviceConfig() config.DeviceConfig {
	return config.DeviceConfig{Secret: "device-secret", Issuer: "storefront-test", TTL: time.Hour, Cookie: "sf_device"}
}

func captureDevice(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = DeviceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestDeviceMintsTokenOnFirstContact(t *testing.T) {
	cfg := testDeviceConfig()
	var seen string
	rec := httptest.NewRecorder()
	Device(cfg, nil)(captureDevice(&seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if seen == "" {
		t.Fatalf("expected a device id in context")
	}
	token := rec.Header().Get(DeviceTokenHeader)
	if token == "" {
		t.Fatalf("expected minted token header")
	}
	claims, err := pkgauth.ParseDeviceToken(cfg, token)
	if err != nil || claims.DeviceID != seen {
		t.Fatalf("minted token does not match context device: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sf_device" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
}

func TestDeviceReusesPresentedToken(t *testing.T) {
	cfg := testDeviceConfig()
	token, err := pkgauth.MintDeviceToken(cfg, time.Now(), "dev-known")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	for name, prepare := range map[string]func(*http.Request){
		"header": func(r *http.Request) { r.Header.Set(DeviceTokenHeader, token) },
		"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sf_device", Value: token}) },
	} {
		var seen string
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		prepare(req)
		rec := httptest.NewRecorder()
		Device(cfg, nil)(captureDevice(&seen)).ServeHTTP(rec, req)

		if seen != "dev-known" {
			t.Fatalf("%s: expected dev-known, got %q", name, seen)
		}
		if rec.Header().Get(DeviceTokenHeader) != "" {
			t.Fatalf("%s: no new token expected", name)
		}
	}
}

func TestDeviceReplacesForgedToken(t *testing.T) {
	cfg := testDeviceConfig()
	other := cfg
	other.Secret = "someone-else"
	forged, err := pkgauth.MintDeviceToken(other, time.Now(), "dev-victim")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	var seen string
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(DeviceTokenHeader, forged)
	rec := httptest.NewRecorder()
	Device(cfg, nil)(captureDevice(&seen)).ServeHTTP(rec, req)

	if seen == "" || seen == "dev-victim" {
		t.Fatalf("forged token must not be honoured, got %q", seen)
	}
	if rec.Header().Get(DeviceTokenHeader) == "" {
		t.Fatalf("expected a replacement token")
	}
}

type stubResolver struct {
	host  string
	store *livedatanow.Store
	err   error
}

func (s *stubResolver) Current(_ context.Context, host string) (*livedatanow.Store, error) {
	s.host = host
	return s.store, s.err
}

func TestStoreContextResolvesFromHost(t *testing.T) {
	resolver := &stubResolver{store: &livedatanow.Store{ID: "store-9", Name: "Flavors"}}
	var seen string
	handler := StoreContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StoreIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/store", nil)
	req.Host = "flavors.example.com"
	req.Header.Set("X-Forwarded-Host", "tacos.example.com")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if resolver.host != "tacos.example.com" || seen != "store-9" {
		t.Fatalf("host=%q store=%q", resolver.host, seen)
	}
}

func TestStoreContextToleratesResolverFailure(t *testing.T) {
	resolver := &stubResolver{err: errors.New("boom")}
	called := false
	handler := StoreContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if StoreFromContext(r.Context()) != nil {
			t.Fatalf("no store expected")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("request must continue without a store")
	}
}
