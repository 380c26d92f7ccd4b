// Command vlsirwire inspects and produces protobuf messages of the Vlsir
// schema, or any schema given as .proto files, without generated code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:   "vlsirwire",
		Short: "Read and write Vlsir protobuf messages",
		Long: `vlsirwire decodes, encodes and describes protobuf messages using
schemas loaded at runtime. The Vlsir schemas (vlsir.utils, vlsir.circuit,
vlsir.netlist, vlsir.spice) are built in; further .proto files are loaded
from the directories given with --proto-path or the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "TOML config file")
	flags.StringSliceVarP(&app.protoDirs, "proto-path", "I", nil, "directory to resolve .proto imports against (repeatable)")
	flags.StringSliceVar(&app.files, "proto", nil, ".proto file to load, relative to --proto-path (repeatable)")
	flags.BoolVar(&app.noBundle, "no-bundle", false, "do not load the built-in Vlsir schemas")
	flags.StringVar(&app.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	rootCmd.AddCommand(
		decodeCmd(app),
		encodeCmd(app),
		sizeCmd(app),
		describeCmd(app),
		listCmd(app),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vlsirwire %s (%s)\n", version, commit)
		},
	}
}
