package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/buffrscfg"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/install"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "resolve and vendor a package's dependencies",
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

		c, err := cache.Open(cfg.Cache)
		if err != nil {
			fatalf("%v", err)
		}

		creds, err := credentials.Load(cfg.CredentialsPath())
		if err != nil {
			fatalf("%v", err)
		}

		ins := install.New(c, creds)
		if err := ins.Install(context.Background(), dir, install.Options{}); err != nil {
			fatalf("%v", err)
		}
	},
}
