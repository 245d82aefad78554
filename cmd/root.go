package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/oak/cmd/perf"
	"github.com/ValentinKolb/oak/cmd/repl"
	"github.com/ValentinKolb/oak/cmd/util"
	"github.com/ValentinKolb/oak/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "oak",
		Short: "concurrent binary search tree",
		Long: fmt.Sprintf(`oak (v%s)

A binary search tree for Go that supports concurrent inserts and
lookups with per-node read-write locks, plus a key-value database
and tools to measure how it scales.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of oak",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("oak v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(repl.ReplCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// setupLogging installs the module loggers before any sub command runs
func setupLogging(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
