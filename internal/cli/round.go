package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/geoguess/internal/api/response"
)

func newRoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Round commands",
	}

	cmd.AddCommand(newRoundCreateCmd())
	cmd.AddCommand(newRoundGuessCmd())
	cmd.AddCommand(newRoundCloseCmd())

	return cmd
}

// coordinateFlags registers the required --lat and --lng flags
func coordinateFlags(cmd *cobra.Command, lat, lng *float64) {
	cmd.Flags().Float64Var(lat, "lat", 0, "Latitude in degrees (required)")
	cmd.Flags().Float64Var(lng, "lng", 0, "Longitude in degrees (required)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
}

func newRoundCreateCmd() *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a round at a secret location (operator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := response.Coordinate{Latitude: lat, Longitude: lng}
			var result response.RoundEnvelope

			if err := client.Post(cmd.Context(), "/api/v1/rounds", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
	coordinateFlags(cmd, &lat, &lng)

	return cmd
}

func newRoundGuessCmd() *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "guess",
		Short: "Guess the location of the open round",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := response.Coordinate{Latitude: lat, Longitude: lng}
			var result response.GuessAccepted

			if err := client.Post(cmd.Context(), "/api/v1/rounds/current/guesses", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
	coordinateFlags(cmd, &lat, &lng)

	return cmd
}

func newRoundCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close and score the open round (operator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoundEnvelope

			if err := client.Post(cmd.Context(), "/api/v1/rounds/current/close", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show your view of the game",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState

			if err := client.Get(cmd.Context(), "/api/v1/state", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List closed rounds, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.History

			if err := client.Get(cmd.Context(), "/api/v1/history", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
