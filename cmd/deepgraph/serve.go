package main

import (
	"github.com/artpar/deepgraph/bootstrap"
	"github.com/artpar/deepgraph/config"
	"github.com/spf13/cobra"
)

const defaultAdminAddr = ":9090"

var (
	serveAdmin string
	serveWatch string
	serveToken string
)

var serveCmd = &cobra.Command{
	Use:   "serve [config] [starter]",
	Short: "Start the system with the admin channel",
	Long: `Start the system and expose the admin channel over HTTP.

Endpoints:
  GET  /health                       - liveness
  GET  /metrics                      - prometheus metrics
  GET  /components                   - registered identifiers
  GET  /components/{id}?path=a.b     - read inside a component
  POST /components/{id}/invoke       - invoke an intent
  POST /lifecycle/{command}          - start, stop or restart

POST endpoints require "Authorization: Bearer <token>".

Examples:
  deepgraph serve
  deepgraph serve system.yaml --admin :8081
  deepgraph serve --watch vertices.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAdmin, "admin", "", "admin channel address (default from DEEPGRAPH_ADMIN_ADDR, then :9090)")
	serveCmd.Flags().StringVar(&serveToken, "admin-token", "", "bearer token for admin calls (default from DEEPGRAPH_ADMIN_TOKEN, then the registry token)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "declaration file to hot reload into the loader")
}

func runServe(cmd *cobra.Command, args []string) error {
	admin := serveAdmin
	if admin == "" {
		admin = bootstrap.AdminAddrFromEnv()
	}
	if admin == "" {
		admin = defaultAdminAddr
	}
	return runApp(bootstrap.Config{
		Boot:       bootstrap.BootConfig{Process: config.OS(args)},
		Modules:    registerModules,
		Metrics:    true,
		AdminAddr:  admin,
		AdminToken: serveToken,
		Watch:      serveWatch,
		Version:    version,
	})
}
