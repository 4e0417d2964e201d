// Command impressionism is the CLI surface of §6: init, index, select,
// log, and status, wired through cobra the way the teacher's cmd/sqvect
// wires its subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/errs"
	"github.com/irl-llc/impressionism/internal/logging"
)

var (
	verbose bool
	log     logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "impressionism",
	Short: "context-aware skill selection for a coding assistant",
	Long:  `impressionism indexes skill documents, embeds them, and selects which ones are relevant to the current session via a sandboxed policy script.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		log = logging.NewStderr(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging on stderr")
	rootCmd.AddCommand(initCmd, indexCmd, selectCmd, logCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.KindOf(err).ExitCode())
	}
}
