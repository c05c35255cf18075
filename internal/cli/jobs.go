package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"
)

func init() {
	for _, cmd := range []*cobra.Command{evaluateCmd, assignCmd, scheduleCmd} {
		cmd.Flags().StringVar(&jobUser, "user", "", "Internal user UUID or external id (defaults to the demo user)")
		rootCmd.AddCommand(cmd)
	}
	scheduleCmd.Flags().BoolVar(&scheduleAll, "all", false, "Run the scheduler for every user")
	rootCmd.AddCommand(seedCmd)
}

var (
	jobUser     string
	scheduleAll bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the challenge, template and achievement catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SeedCatalog(ctx); err != nil {
			return err
		}
		log.Printf("Seeded %d challenges, %d templates, %d achievements",
			len(a.Catalog.Challenges), len(a.Catalog.Templates), len(a.Catalog.Achievements))
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Re-evaluate a user's active challenges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, err := resolveUser(ctx, a, jobUser)
		if err != nil {
			return err
		}
		completed, err := a.Challenges.UpdateChallengeProgress(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd, completed)
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign new challenges to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, err := resolveUser(ctx, a, jobUser)
		if err != nil {
			return err
		}
		assigned, err := a.Challenges.AssignChallenges(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd, assigned)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the notification scheduler for one user or everyone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if scheduleAll {
			created, err := a.Scheduler.ScheduleAll(ctx)
			log.Printf("Created %d notifications", created)
			return err
		}

		userID, err := resolveUser(ctx, a, jobUser)
		if err != nil {
			return err
		}
		created, err := a.Scheduler.ScheduleNotifications(ctx, userID)
		if perr := printJSON(cmd, created); perr != nil {
			return perr
		}
		return err
	},
}
