package main

import (
	"fmt"
	"os"

	"github.com/artpar/deepgraph/bootstrap"
	"github.com/artpar/deepgraph/config"
	"github.com/spf13/cobra"
)

var (
	startAdmin   string
	startWatch   string
	startMetrics bool
	startToken   string
)

var startCmd = &cobra.Command{
	Use:   "start [config] [starter]",
	Short: "Start the system and wait for a signal",
	Long: `Start the system.

The starter module builds the entry-point component from the configuration
and is then initialized. Both are resolved from the arguments, then the
environment, then the defaults:

  config   DEEPGRAPH_CONFIG_FILE   (default: deepgraph.json)
  starter  DEEPGRAPH_STARTER       (default: root)

A configuration is a file (YAML, TOML, HCL or JSON) or the name of a data
module. The system stops on SIGINT or SIGTERM.

Environment variables:
  DEEPGRAPH_LOG_LEVEL     - Log level: debug, info, warn, error
  DEEPGRAPH_LOG_FORMAT    - "console" for human-readable logs
  DEEPGRAPH_ADMIN_ADDR    - Admin channel address
  DEEPGRAPH_ADMIN_PORT    - Admin channel port
  DEEPGRAPH_ADMIN_TOKEN   - Bearer token for admin invoke and lifecycle calls

Examples:
  deepgraph start
  deepgraph start system.yaml
  deepgraph start system.yaml root --admin :9090 --watch vertices.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startAdmin, "admin", "", "admin channel address (default from DEEPGRAPH_ADMIN_ADDR)")
	startCmd.Flags().StringVar(&startToken, "admin-token", "", "bearer token for admin calls (default from DEEPGRAPH_ADMIN_TOKEN, then the registry token)")
	startCmd.Flags().StringVar(&startWatch, "watch", "", "declaration file to hot reload into the loader")
	startCmd.Flags().BoolVar(&startMetrics, "metrics", false, "enable prometheus metrics")
}

func runStart(cmd *cobra.Command, args []string) error {
	admin := startAdmin
	if admin == "" {
		admin = bootstrap.AdminAddrFromEnv()
	}
	return runApp(bootstrap.Config{
		Boot:       bootstrap.BootConfig{Process: config.OS(args)},
		Modules:    registerModules,
		Metrics:    startMetrics,
		AdminAddr:  admin,
		AdminToken: startToken,
		Watch:      startWatch,
		Version:    version,
	})
}

func runApp(cfg bootstrap.Config) error {
	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
