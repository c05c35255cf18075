package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/server"
	"poopyPalsAPI/internal/workers"

	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveNoWorkers, "no-workers", false, "Do not start the background workers")
	rootCmd.AddCommand(serveCmd)
}

var (
	servePort      string
	serveNoWorkers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.Config.Port = servePort
	}
	metrics.Register()

	var runner *workers.Runner
	if !serveNoWorkers {
		runner = workers.NewRunner(a.Config.Workers, a, a.Scheduler, a.Reminders, a.Notifications.Dispatcher())
		runner.Start(ctx)
	} else if err := a.SeedCatalog(ctx); err != nil {
		return err
	}

	err = server.Run(ctx, a)
	stop()
	if runner != nil {
		runner.Wait()
	}
	return err
}
