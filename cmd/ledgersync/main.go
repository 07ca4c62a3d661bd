package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ledgersync/cmd/cli"
)

func main() {
	_ = godotenv.Load() // optional .env alongside the binary; LEDGERSYNC_TOKEN etc. may come from the shell instead

	var verbose, quiet bool
	var configPath string

	app := cli.NewApp()

	rootCmd := &cobra.Command{
		Use:   "ledgersync",
		Short: "reconcile a remote personal-finance ledger with a local plain-text archive",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if configPath != "" {
				paths = append(paths, configPath)
			}
			return app.Init(verbose, quiet, paths...)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the ledgersync.yaml config directory")

	cli.RegisterRoutes(rootCmd, app)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
