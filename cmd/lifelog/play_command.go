package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lifelog/internal/player"
	"lifelog/internal/services/spotify"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var playlist string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open the Spotify app and start the target playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := playlist
			if target == "" {
				target = cfg.Spotify.TargetPlaylist
			}
			if target == "" {
				return errors.New("no playlist configured; set spotify.target_playlist or pass --playlist")
			}

			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			catalog, err := ctx.catalogClient()
			if err != nil {
				return err
			}

			launcher, err := player.New(catalog, target, logger)
			if err != nil {
				return err
			}

			if err := launcher.Start(cmd.Context()); err != nil {
				if errors.Is(err, spotify.ErrPlaybackUnauthorized) {
					return fmt.Errorf("%w; run 'lifelog spotify-auth' once to grant playback access", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback started")
			return nil
		},
	}

	cmd.Flags().StringVar(&playlist, "playlist", "", "Playlist URI to play instead of the configured target")
	return cmd
}
