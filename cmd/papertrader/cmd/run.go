package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background mark-to-market loop",
	Long: `Run the engine daemon: every refresh interval the open trades of all
active sessions are marked to the current market price. Stops cleanly
on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return service.Start(ctx)
}
