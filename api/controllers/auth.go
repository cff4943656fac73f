package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const profileFieldMaxLen = 200

// AuthLogin starts a phone login. The store defaults to the one resolved from the host.
func AuthLogin(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.StoreID == "" {
			req.StoreID = middleware.StoreIDFromContext(r.Context())
		}
		session, err := manager.Login(r.Context(), deviceID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// AuthVerifyOTP completes an OTP login.
func AuthVerifyOTP(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		var req auth.VerifyOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.StoreID == "" {
			req.StoreID = middleware.StoreIDFromContext(r.Context())
		}
		session, err := manager.VerifyOTP(r.Context(), deviceID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// AuthLogout forgets the token and profile. The cart stays.
func AuthLogout(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		if err := manager.Logout(r.Context(), deviceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auth.Session{State: auth.StateAnonymous})
	}
}

// AuthSession resumes and reports the device's session.
func AuthSession(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		session, err := manager.Resume(r.Context(), deviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// ProfileFetch refreshes the profile from upstream.
func ProfileFetch(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		user, err := manager.FetchProfile(r.Context(), deviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// ProfileUpdate writes the supplied profile fields upstream.
func ProfileUpdate(manager auth.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		var update livedatanow.ProfileUpdate
		if err := validators.DecodeJSONBody(r, &update); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sanitizeProfile(&update)
		user, err := manager.UpdateProfile(r.Context(), deviceID, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func sanitizeProfile(update *livedatanow.ProfileUpdate) {
	for _, field := range []*string{
		update.FirstName, update.LastName, update.CompanyName, update.Email, update.Phone,
		update.Address, update.City, update.State, update.Country,
	} {
		if field != nil {
			*field = validators.SanitizeString(*field, profileFieldMaxLen)
		}
	}
}
