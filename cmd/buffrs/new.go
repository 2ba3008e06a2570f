package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
)

var (
	newLib  bool
	newImpl bool
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "create a new package in its own directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pkgName, err := name.Parse(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("%v", errs.Wrap(errs.KindIO, "create "+dir, err))
		}

		if err := manifest.Scaffold(dir, typeFromFlags(newLib, newImpl), pkgName); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	newCmd.Flags().BoolVar(&newLib, "lib", false, "create a lib package (default: api)")
	newCmd.Flags().BoolVar(&newImpl, "impl", false, "create an impl package (default: api)")
}
