package main

import (
	"context"
	"fmt"

	"github.com/artpar/deepgraph/bootstrap"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/loader"
	"github.com/artpar/deepgraph/core/module"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <vertices>",
	Short: "Validate a declaration table before deployment",
	Long: `Validate a declaration table.

Checks:
  - The source is readable and decodes to a table
  - Every entry is a declaration
  - Every declared module is known to this binary

Examples:
  deepgraph validate vertices.yaml
  deepgraph validate greetings/vertices`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	source := args[0]
	fmt.Printf("Validating %s...\n\n", source)

	h := host.New(zerolog.Nop())
	bootstrap.CoreModules(h.Modules)
	registerModules(h.Modules)
	ctx := host.WithContext(context.Background(), h)

	l, err := loader.New(ctx, loader.Config{}, nil)
	if err != nil {
		return err
	}
	if err := l.Initialize(ctx, source); err != nil {
		fmt.Printf("  %s Declarations readable\n", crossMark)
		return fmt.Errorf("declarations error: %w", err)
	}
	fmt.Printf("  %s Declarations readable (%d)\n", checkMark, l.Len())

	var failed int
	for _, id := range l.IDs() {
		v, _ := l.Get(edge.P(id))
		decl, _ := v.(loader.Declaration)
		if decl.IsData() {
			fmt.Printf("  %s %s (data)\n", checkMark, id)
			continue
		}
		if err := checkModule(h.Modules, decl.Module()); err != nil {
			fmt.Printf("  %s %s: %v\n", crossMark, id, err)
			failed++
			continue
		}
		fmt.Printf("  %s %s (%v)\n", checkMark, id, decl.Module())
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d declaration(s) invalid", failed)
	}
	fmt.Println("Declarations valid")
	return nil
}

func checkModule(catalog *module.Catalog, ref any) error {
	r, err := module.ParseRef(ref)
	if err != nil {
		return err
	}
	_, err = catalog.Builder(r)
	return err
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
