package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dReshard/cmd/inspect"
	"github.com/ValentinKolb/dReshard/cmd/reshape"
	"github.com/ValentinKolb/dReshard/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dreshard",
		Short: "parallel snapshot repartitioning",
		Long: fmt.Sprintf(`dReshard (v%s)

Rewrites sets of simulation snapshot files with a group of ranks. Each file
is read by its own island of ranks, either in parallel slices or through
the island root, and written back the same two ways.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dReshard",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dReshard v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(reshape.ReshapeCmd)
	RootCmd.AddCommand(inspect.InspectCmd)
	RootCmd.AddCommand(inspect.VerifyCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer of the message envelopes (binary, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "local", util.WrapString("transport between the ranks (local, tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
