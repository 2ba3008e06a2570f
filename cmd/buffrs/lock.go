package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/buffrscfg"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/install"
)

var lockCheck bool

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "inspect or validate the lockfile",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !lockCheck {
			fatalf("lock: specify --check")
		}

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
		upToDate, err := ins.Check(context.Background(), dir)
		if err != nil {
			fatalf("%v", err)
		}
		if !upToDate {
			fmt.Fprintln(os.Stderr, "Proto.lock is out of date; run \"buffrs install\"")
			os.Exit(1)
		}
	},
}

func init() {
	lockCmd.Flags().BoolVar(&lockCheck, "check", false, "fail if the lockfile does not match a fresh resolve")
}
