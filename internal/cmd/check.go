package cmd

import (
	"fmt"

	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/darless/c-deadlock-detector/internal/gdb"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the debugger is available",
	Long: `Verify that gdb can be found and report its version.
Exits non-zero when the debugger is missing, so the command can gate
scripts that depend on it.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	path, err := gdb.LookupExecutable(cfg.GDB.Path)
	if err != nil {
		return err
	}

	version, err := gdb.Version(cmd.Context(), path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "gdb: %s\n%s\n", path, version)
	return nil
}
