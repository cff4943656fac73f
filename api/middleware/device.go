package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DeviceTokenHeader carries the signed device token for clients that do not keep cookies.
const DeviceTokenHeader = "X-Device-Token"

// Device identifies the browser behind a request. A valid token from the header or the
// device cookie is reused; anything else gets a freshly minted device, returned in both.
func Device(cfg config.DeviceConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			deviceID := ""
			if raw := presentedToken(r, cfg.Cookie); raw != "" {
				claims, err := pkgauth.ParseDeviceToken(cfg, raw)
				if err == nil {
					deviceID = claims.DeviceID
				} else if logg != nil {
					logg.Warn(logg.WithField(ctx, "reason", err.Error()), "device.token_rejected")
				}
			}

			if deviceID == "" {
				deviceID = pkgauth.NewDeviceID()
				token, err := pkgauth.MintDeviceToken(cfg, time.Now(), deviceID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint device token"))
					return
				}
				w.Header().Set(DeviceTokenHeader, token)
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Cookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = WithDeviceID(ctx, deviceID)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func presentedToken(r *http.Request, cookieName string) string {
	if raw := strings.TrimSpace(r.Header.Get(DeviceTokenHeader)); raw != "" {
		return raw
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
