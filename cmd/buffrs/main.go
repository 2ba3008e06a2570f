// Command buffrs is the CLI front end over the core packages: it wires
// flags and subcommands to manifest, install, publish, credentials,
// and registry, carrying no business logic of its own
// (§5, AMBIENT STACK).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/internal/dlog"

	// Blank-imported so their init() registers the backend factory with
	// the registry package before registry.New is ever called (§4.4).
	_ "github.com/buffrs-dev/buffrs/registry/artifactory"
	_ "github.com/buffrs-dev/buffrs/registry/maven"
)

var verbose bool

// RootCmd is the main command for the 'buffrs' binary.
var RootCmd = &cobra.Command{
	Use:   "buffrs",
	Short: "a package manager for Protocol Buffers",
	Long:  "buffrs manages Protocol Buffers schemas as versioned packages.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			dlog.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(newCmd)
	RootCmd.AddCommand(addCmd)
	RootCmd.AddCommand(removeCmd)
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(publishCmd)
	RootCmd.AddCommand(loginCmd)
	RootCmd.AddCommand(logoutCmd)
	RootCmd.AddCommand(lockCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(lintCmd)
	RootCmd.AddCommand(generateCmd)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
