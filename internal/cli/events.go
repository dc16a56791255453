package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream realtime game events",
		Long: `Attach to the server's websocket with the saved session and stream events.

Events include:
  - game_state_update: Your view of the game (sent on connect)
  - round_created: The operator opened a round
  - guess_submitted: Someone guessed
  - round_closed: The round was scored
  - error_message: A command was rejected

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New("not signed in: run 'geoguess auth' first")
			}
			return streamEvents(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// streamEvent is one received event
type streamEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func streamEvents(ctx context.Context, jsonOutput bool) error {
	url, err := client.WebsocketURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Closing the socket unblocks the read loop on interrupt
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if !jsonOutput {
		fmt.Println("Connected")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var event streamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			if cfg.Verbose {
				fmt.Fprintf(os.Stderr, "skipping undecodable message: %s\n", err)
			}
			continue
		}
		printEvent(event, data, jsonOutput)
	}
}

func printEvent(event streamEvent, raw []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(raw))
		return
	}

	timestamp := event.Timestamp.Local().Format("2006-01-02 15:04:05")
	// Truncate payload if it's too long for display
	payload := string(event.Payload)
	if len(payload) > 100 && !cfg.Verbose {
		payload = payload[:100] + "..."
	}
	payload = strings.ReplaceAll(payload, "\n", " ")
	fmt.Printf("[%s] %s: %s\n", timestamp, event.Type, payload)
}
