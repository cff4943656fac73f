package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newPaymentCommand(opts *RootOptions, deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Payment gateway operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "acquire-key",
		Short: "Request an initial API key from the payment gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Payments == nil {
				return fmt.Errorf("payment gateway not configured")
			}
			resp, err := deps.Payments().AcquireInitialAPIKey(cmd.Context())
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("gateway answered %d: %s", resp.Status, resp.ErrorMessage())
			}
			if !json.Valid(resp.Body) {
				return fmt.Errorf("gateway returned a non-JSON body")
			}
			out := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return out.emit(json.RawMessage(resp.Body), func(w io.Writer) {
				fmt.Fprintln(w, string(resp.Body))
			})
		},
	})
	return cmd
}
