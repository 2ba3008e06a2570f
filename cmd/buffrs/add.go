package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

var (
	addPath       string
	addVersion    string
	addRegistry   string
	addRepository string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "add a dependency to the package manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}

		pkgName, err := name.Parse(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		m, err := manifest.RequirePackageAt(dir)
		if err != nil {
			fatalf("%v", err)
		}

		dep, err := buildDependency(pkgName)
		if err != nil {
			fatalf("%v", err)
		}

		if err := m.AddDependency(dep); err != nil {
			fatalf("%v", err)
		}

		if err := manifest.Write(m, dir); err != nil {
			fatalf("%v", err)
		}
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "remove a dependency from the package manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}

		pkgName, err := name.Parse(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		m, err := manifest.RequirePackageAt(dir)
		if err != nil {
			fatalf("%v", err)
		}

		if err := m.RemoveDependency(pkgName); err != nil {
			fatalf("%v", err)
		}

		if err := manifest.Write(m, dir); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	addCmd.Flags().StringVar(&addPath, "path", "", "local filesystem path to the dependency")
	addCmd.Flags().StringVar(&addVersion, "version", "", "version requirement, e.g. \"=1.2.0\"")
	addCmd.Flags().StringVar(&addRegistry, "registry", "", "registry URI hosting the dependency")
	addCmd.Flags().StringVar(&addRepository, "repository", "", "repository name within the registry")
}

// buildDependency constructs a Dependency from the --path or
// --version/--registry/--repository flag set. --path takes precedence
// and the remote flags are then ignored; otherwise all three remote
// flags are required.
func buildDependency(pkgName name.Name) (manifest.Dependency, error) {
	if addPath != "" {
		return manifest.Dependency{Package: pkgName, Source: manifest.LocalSource{Path: addPath}}, nil
	}

	if addVersion == "" || addRegistry == "" || addRepository == "" {
		return manifest.Dependency{}, errs.New(errs.KindManifestMalformed,
			"add \""+pkgName.String()+"\": specify --path, or all of --version/--registry/--repository")
	}

	req, err := version.ParseReq(addVersion)
	if err != nil {
		return manifest.Dependency{}, err
	}
	uri, err := regurl.Parse(addRegistry)
	if err != nil {
		return manifest.Dependency{}, err
	}

	return manifest.Dependency{
		Package: pkgName,
		Source: manifest.RemoteSource{
			Registry:   uri,
			Repository: addRepository,
			Version:    req,
		},
	}, nil
}
