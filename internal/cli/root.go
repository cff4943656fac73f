// Package cli implements storefrontctl, the operator tool for device state and
// gateway credentials.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/kvstore"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
	"github.com/spf13/cobra"
)

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags.
type RootOptions struct {
	Format string
}

// Purger removes key-value entries untouched since cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyAcquirer fetches an initial payment gateway key.
type KeyAcquirer interface {
	AcquireInitialAPIKey(ctx context.Context) (*livedatanow.Response, error)
}

// Deps are opened lazily so commands only touch the backends they need.
type Deps struct {
	Device   config.DeviceConfig
	Now      func() time.Time
	Store    func(ctx context.Context) (kvstore.Store, func() error, error)
	Purger   func(ctx context.Context) (Purger, func() error, error)
	Payments func() KeyAcquirer
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewRootCommand builds storefrontctl.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operate the storefront backend",
		Long:          "Inspect and reset device carts, mint device tokens and manage gateway credentials.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newCartCommand(opts, deps))
	cmd.AddCommand(newDeviceTokenCommand(opts, deps))
	cmd.AddCommand(newPaymentCommand(opts, deps))
	cmd.AddCommand(newKVCommand(opts, deps))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
