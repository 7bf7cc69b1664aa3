package cmd

import (
	"strings"

	"github.com/darless/c-deadlock-detector/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cdd <binary> <pid-or-core>",
	Short: "Deadlock detector for multithreaded processes",
	Long: `cdd inspects a running multithreaded process (or a core file) with gdb,
classifies blocked threads, resolves which thread owns each contended
lock, and reports wait chains and deadlock cycles.

The target binary must carry debug symbols for lock owners to resolve.
Attaching to a live process may require ptrace privileges.`,
	Args:          cobra.ExactArgs(2),
	RunE:          runAnalyze,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/cdd/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	rootCmd.PersistentFlags().StringVar(&gdbPath, "gdb", "", "path to the gdb executable (default is 'gdb' on PATH)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/cdd")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CDD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CDD_REPORT_FORMAT for report.format
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
