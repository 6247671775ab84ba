package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSpotifyAuthCommand(ctx *commandContext) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "spotify-auth",
		Short: "Authorize playback control with Spotify",
		Long: "Playback transfer needs a user grant on top of the client credentials used for " +
			"catalog lookups. Run without flags to print the authorization URL, approve it in a " +
			"browser, then run again with --code to store the token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.catalogClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if code == "" {
				fmt.Fprintln(out, "Open this URL, approve access, and copy the \"code\" query parameter from the redirect:")
				fmt.Fprintln(out, client.AuthorizationURL())
				fmt.Fprintln(out, "Then run: lifelog spotify-auth --code <code>")
				return nil
			}

			if err := client.ExchangeAuthorizationCode(cmd.Context(), code); err != nil {
				return fmt.Errorf("exchange authorization code: %w", err)
			}
			fmt.Fprintln(out, "Playback authorization stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the redirect URL")
	return cmd
}
