package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
)

var (
	initLib  bool
	initImpl bool
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "initialize a new package in the current directory",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}

		pkgName, err := packageNameFor(dir, args)
		if err != nil {
			fatalf("%v", err)
		}

		if err := manifest.Scaffold(dir, typeFromFlags(initLib, initImpl), pkgName); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	initCmd.Flags().BoolVar(&initLib, "lib", false, "create a lib package (default: api)")
	initCmd.Flags().BoolVar(&initImpl, "impl", false, "create an impl package (default: api)")
}

// packageNameFor derives the package name from the explicit argument, or
// falls back to the current directory's base name (SUPPLEMENTED FEATURE
// "init/new distinction": init reuses the cwd name, new requires one).
func packageNameFor(dir string, args []string) (name.Name, error) {
	if len(args) == 1 {
		return name.Parse(args[0])
	}
	return name.Parse(filepath.Base(dir))
}

func typeFromFlags(lib, impl bool) name.Type {
	switch {
	case lib:
		return name.Lib
	case impl:
		return name.Impl
	default:
		return name.Api
	}
}
