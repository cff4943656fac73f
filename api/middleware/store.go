package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type storeResolver interface {
	Current(ctx context.Context, host string) (*livedatanow.Store, error)
}

// StoreContext resolves the storefront from the request host. Resolution never blocks the
// request: without a store downstream handlers simply see no store id.
func StoreContext(resolver storeResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			store, err := resolver.Current(ctx, requestHost(r))
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "store.resolve_failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx = WithStore(ctx, store)
			if logg != nil && store != nil {
				ctx = logg.WithField(ctx, "store_id", store.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestHost(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		return forwarded
	}
	return r.Host
}
