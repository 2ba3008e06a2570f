package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/buffrscfg"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/publish"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

var (
	publishRegistry   string
	publishRepository string
	publishVersion    string
	publishDryRun     bool
	publishAllowDirty bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "publish a package to a registry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}

		cfg, err := buffrscfg.Resolve()
		if err != nil {
			fatalf("%v", err)
		}

		creds, err := credentials.Load(cfg.CredentialsPath())
		if err != nil {
			fatalf("%v", err)
		}

		uri, err := regurl.Parse(publishRegistry)
		if err != nil {
			fatalf("%v", err)
		}

		opts := publish.Options{
			Registry:   uri,
			Repository: publishRepository,
			DryRun:     publishDryRun,
			AllowDirty: publishAllowDirty,
		}
		if publishVersion != "" {
			v, err := version.Parse(publishVersion)
			if err != nil {
				fatalf("%v", err)
			}
			opts.VersionOverride = &v
		}

		var dirty publish.DirtyChecker
		if !cfg.Testsuite {
			dirty = publish.GitDirtyChecker()
		}

		p := publish.New(creds, dirty)
		if err := p.Publish(context.Background(), dir, opts); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishRegistry, "registry", "", "registry URI to publish to")
	publishCmd.Flags().StringVar(&publishRepository, "repository", "", "repository name within the registry")
	publishCmd.Flags().StringVar(&publishVersion, "set-version", "", "override the manifest version for this publish")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "assemble and validate without uploading")
	publishCmd.Flags().BoolVar(&publishAllowDirty, "allow-dirty", false, "skip the working tree cleanliness check")
	_ = publishCmd.MarkFlagRequired("registry")
	_ = publishCmd.MarkFlagRequired("repository")
}
