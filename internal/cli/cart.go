package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/spf13/cobra"
)

func newCartCommand(opts *RootOptions, deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or reset a device cart",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <device-id>",
		Short: "Print the cart stored for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCarts(cmd, deps, func(svc cart.Service) error {
				current, err := svc.GetCart(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := printer{format: opts.Format, w: cmd.OutOrStdout()}
				return out.emit(current, func(w io.Writer) {
					if current.IsEmpty() {
						fmt.Fprintln(w, "cart is empty")
						return
					}
					for i, item := range current.Items {
						fmt.Fprintf(w, "%d  %-24s x%d  %s\n", i, item.Name, item.Quantity, item.SubTotal.StringFixed(2))
					}
					fmt.Fprintf(w, "items %d  subtotal %s  tax %s  total %s\n",
						current.TotalItems,
						current.SubTotal.StringFixed(2),
						current.TotalTax.StringFixed(2),
						current.FinalTotal.StringFixed(2))
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear <device-id>",
		Short: "Empty the cart stored for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCarts(cmd, deps, func(svc cart.Service) error {
				if err := svc.ClearCart(cmd.Context(), args[0]); err != nil {
					return err
				}
				out := printer{format: opts.Format, w: cmd.OutOrStdout()}
				return out.emit(map[string]string{"deviceId": args[0], "status": "cleared"}, func(io.Writer) {
					out.line("cleared cart for %s", args[0])
				})
			})
		},
	})
	return cmd
}

// withCarts opens the configured store. Changes are not broadcast; open event
// streams pick them up on their next snapshot.
func withCarts(cmd *cobra.Command, deps Deps, fn func(cart.Service) error) error {
	if deps.Store == nil {
		return fmt.Errorf("no key-value store configured")
	}
	store, closeStore, err := deps.Store(cmd.Context())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}
	logg := logger.New(logger.Options{ServiceName: "storefrontctl", Output: os.Stderr})
	svc, err := cart.NewService(store, cart.NewLocalBus(), logg)
	if err != nil {
		return err
	}
	return fn(svc)
}
