package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/geoguess/internal/api/request"
	"github.com/mcoot/geoguess/internal/api/response"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and out",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthTestCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

// saveAuth stores the session token and prints the result
func saveAuth(result response.AuthResponse) error {
	if err := cfg.SaveToken(result.SessionToken, result.Participant.DisplayName); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	NewOutput(cfg.Output).Print(result)
	return nil
}

func newAuthLoginCmd() *cobra.Command {
	var assertion string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a signed identity assertion",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.AuthenticateRequest{Assertion: assertion}
			var result response.AuthResponse

			if err := client.Post(cmd.Context(), "/api/v1/auth", req, &result); err != nil {
				return err
			}
			return saveAuth(result)
		},
	}

	cmd.Flags().StringVar(&assertion, "assertion", "", "Signed assertion from the identity provider (required)")
	_ = cmd.MarkFlagRequired("assertion")

	return cmd
}

func newAuthTestCmd() *cobra.Command {
	var (
		operator bool
		id       int64
		name     string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Sign in with test credentials (non-production servers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.TestAuthenticateRequest{
				Role:        request.RoleParticipant,
				ExternalID:  id,
				DisplayName: name,
			}
			if operator {
				req.Role = request.RoleOperator
			} else if id == 0 || name == "" {
				return fmt.Errorf("--id and --name are required unless --operator is set")
			}

			var result response.AuthResponse
			if err := client.Post(cmd.Context(), "/api/v1/auth/test", req, &result); err != nil {
				return err
			}
			return saveAuth(result)
		},
	}

	cmd.Flags().BoolVar(&operator, "operator", false, "Sign in as the operator")
	cmd.Flags().Int64Var(&id, "id", 0, "External participant id")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not signed in")
			}

			message := "Signed out"
			if err := client.Post(cmd.Context(), "/api/v1/auth/logout", nil, nil); err != nil {
				// The server already dropped the binding; only the local copy is left
				if !IsUnauthorized(err) {
					return err
				}
				message = "Session had already ended"
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			NewOutput(cfg.Output).PrintMessage(message)
			return nil
		},
	}
}
