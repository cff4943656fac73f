package cli

import (
	"io"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/spf13/cobra"
)

type mintedToken struct {
	DeviceID  string    `json:"deviceId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newDeviceTokenCommand(opts *RootOptions, deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device-token",
		Short: "Mint or inspect device tokens",
	}

	var deviceID string
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a device token, for a new device unless --device-id is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := deviceID
			if id == "" {
				id = auth.NewDeviceID()
			}
			now := deps.now()
			token, err := auth.MintDeviceToken(deps.Device, now, id)
			if err != nil {
				return err
			}
			minted := mintedToken{DeviceID: id, Token: token, ExpiresAt: now.Add(deps.Device.TTL).UTC()}
			out := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return out.emit(minted, func(io.Writer) {
				out.line("device  %s", minted.DeviceID)
				out.line("token   %s", minted.Token)
			})
		},
	}
	mint.Flags().StringVar(&deviceID, "device-id", "", "reuse an existing device id")

	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a device token and print its device id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := auth.ParseDeviceToken(deps.Device, args[0])
			if err != nil {
				return err
			}
			out := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return out.emit(map[string]string{"deviceId": claims.DeviceID}, func(io.Writer) {
				out.line("device  %s", claims.DeviceID)
			})
		},
	}

	cmd.AddCommand(mint, inspect)
	return cmd
}
