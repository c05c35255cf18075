// Package cli implements the poopypals command-line interface using Cobra.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"poopyPalsAPI/internal/app"
	"poopyPalsAPI/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "poopypals",
	Short: "Poopy Pals habit tracking API",
	Long: `Poopy Pals tracks bathroom visits, awards challenges and achievements,
and schedules reminder notifications.

Without a subcommand it starts the API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command. Called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// resolveUser accepts an internal UUID or an external id, creating the user
// for an unknown external id.
func resolveUser(ctx context.Context, a *app.App, ref string) (uuid.UUID, error) {
	if ref == "" {
		ref = a.Config.Auth.DemoUserID
	}
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	u, err := a.Users.ResolveUser(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
