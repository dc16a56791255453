package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcoot/geoguess/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.AuthResponse:
		o.printParticipant(v.Participant)
		fmt.Fprintf(o.w, "Token: %s\n", v.SessionToken)
	case response.GameState:
		o.printGameState(v)
	case response.History:
		o.printHistory(v)
	case response.RoundEnvelope:
		o.printRound(v.Round)
	case response.GuessAccepted:
		fmt.Fprintf(o.w, "Guess recorded for round %d at %s\n", v.RoundID, formatCoordinate(v.Guess.Location))
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
		if v.Phase != "" {
			fmt.Fprintf(o.w, "Phase: %s\n", v.Phase)
		}
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func formatCoordinate(c response.Coordinate) string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

func (o *Output) printParticipant(p response.Participant) {
	role := "participant"
	if p.IsOperator {
		role = "operator"
	}
	fmt.Fprintf(o.w, "Participant: %s (%d)\n", p.DisplayName, p.ExternalID)
	fmt.Fprintf(o.w, "Role: %s\n", role)
}

func (o *Output) printGameState(g response.GameState) {
	o.printParticipant(g.Participant)

	if g.Current == nil {
		fmt.Fprintln(o.w, "\nNo active round")
	} else {
		fmt.Fprintln(o.w)
		o.printRound(g.Current)
	}

	if len(g.History) > 0 {
		fmt.Fprintf(o.w, "\nPast rounds: %d\n", len(g.History))
	}
}

func (o *Output) printHistory(h response.History) {
	if len(h.Rounds) == 0 {
		fmt.Fprintln(o.w, "No rounds played yet")
		return
	}
	for i := range h.Rounds {
		if i > 0 {
			fmt.Fprintln(o.w)
		}
		o.printRound(&h.Rounds[i])
	}
}

func (o *Output) printRound(r *response.Round) {
	if r == nil {
		return
	}

	state := "open"
	if !r.IsOpen {
		state = "closed"
	}
	fmt.Fprintf(o.w, "Round %d (%s)\n", r.ID, state)
	fmt.Fprintf(o.w, "Opened: %s\n", r.OpensAt.Format("2006-01-02 15:04:05"))
	if r.ClosesAt != nil {
		fmt.Fprintf(o.w, "Closed: %s\n", r.ClosesAt.Format("2006-01-02 15:04:05"))
	}
	if r.SecretLocation != nil {
		fmt.Fprintf(o.w, "Secret: %s\n", formatCoordinate(*r.SecretLocation))
	}

	if r.OwnGuess != nil {
		fmt.Fprintf(o.w, "Your guess: %s\n", formatCoordinate(r.OwnGuess.Location))
	}

	if len(r.Guesses) > 0 {
		fmt.Fprintln(o.w, "Guesses:")
		for i, g := range r.Guesses {
			distance := ""
			if g.DistanceKm != nil {
				distance = fmt.Sprintf(" - %.2f km", *g.DistanceKm)
			}
			fmt.Fprintf(o.w, "  %d. %s at %s%s\n", i+1, g.SubmitterName, formatCoordinate(g.Location), distance)
		}
		return
	}

	names := make([]string, len(r.Submitters))
	for i, s := range r.Submitters {
		names[i] = s.Name
	}
	fmt.Fprintf(o.w, "Guesses: %d", r.GuessCount)
	if len(names) > 0 {
		fmt.Fprintf(o.w, " (%s)", strings.Join(names, ", "))
	}
	fmt.Fprintln(o.w)
}
