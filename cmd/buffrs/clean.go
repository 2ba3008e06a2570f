package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/install"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "remove the vendored proto directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}

		if err := install.Clean(dir); err != nil {
			fatalf("%v", err)
		}
	},
}
