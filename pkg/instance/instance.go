package instance

import (
	"os"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

// GetID identifies this API process. Cart notifications carry it so logs can tell
// which instance published a change.
func GetID() string {
	if id := env.First("STOREFRONT_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "api-0"
}
