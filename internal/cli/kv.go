package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newKVCommand(opts *RootOptions, deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Maintain the SQL key-value backend",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries not written within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			if deps.Purger == nil {
				return fmt.Errorf("purge requires the sql key-value backend")
			}
			purger, closePurger, err := deps.Purger(cmd.Context())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if closePurger != nil {
				defer closePurger()
			}
			cutoff := deps.now().Add(-olderThan)
			removed, err := purger.PurgeBefore(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			out := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return out.emit(map[string]any{"removed": removed, "cutoff": cutoff.UTC()}, func(io.Writer) {
				out.line("removed %d entries older than %s", removed, cutoff.UTC().Format(time.RFC3339))
			})
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age threshold")

	cmd.AddCommand(purge)
	return cmd
}
