package main

import (
	"fmt"
	"os"

	"github.com/artpar/deepgraph/core/module"
	"github.com/artpar/deepgraph/examples/greetings"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deepgraph",
	Short: "Boot and inspect a graph of components",
	Long: `deepgraph assembles a running system from a declaration table.

Components are built from modules by a loader, kept in a registry and
driven through a single lifecycle controller.

Quick start:
  deepgraph start                 # start with deepgraph.json and the "root" module
  deepgraph start system.yaml     # start with another configuration
  deepgraph validate vertices.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// registerModules adds the modules bundled with the binary.
func registerModules(catalog *module.Catalog) {
	greetings.Register(catalog)
}
