package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/geoguess/internal/api/response"
)

const healthPollInterval = 500 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health and the current round phase",
		Long: `Check server health and the current round phase.

With --wait the command keeps polling until the server answers or the
duration runs out, which is handy in scripts that start a server first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := waitForHealth(cmd.Context(), client, wait, healthPollInterval)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long (e.g. 10s)")

	return cmd
}

// waitForHealth polls the health endpoint until it reports ok or wait
// elapses. A zero wait makes a single attempt.
func waitForHealth(ctx context.Context, c *Client, wait, interval time.Duration) (response.Health, error) {
	deadline := time.Now().Add(wait)

	for {
		var result response.Health
		err := c.Get(ctx, "/api/v1/health", &result)
		if err == nil && result.Status != "ok" {
			err = fmt.Errorf("server reported status %q", result.Status)
		}
		if err == nil || time.Now().Add(interval).After(deadline) {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(interval):
		}
	}
}
