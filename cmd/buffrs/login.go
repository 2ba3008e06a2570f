package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buffrs-dev/buffrs/buffrscfg"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/registry"
)

var loginCmd = &cobra.Command{
	Use:   "login <registry>",
	Short: "store a bearer token for a registry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		uri, err := regurl.Parse(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		token, err := readToken()
		if err != nil {
			fatalf("%v", err)
		}

		cfg, err := buffrscfg.Resolve()
		if err != nil {
			fatalf("%v", err)
		}

		store, err := credentials.Load(cfg.CredentialsPath())
		if err != nil {
			fatalf("%v", err)
		}

		if !cfg.Testsuite {
			client, err := registry.New(uri, tokenOnly{token})
			if err != nil {
				fatalf("%v", err)
			}
			if err := client.Ping(context.Background()); err != nil {
				fatalf("could not authenticate with %s: %v", uri.String(), err)
			}
		}

		if err := store.Login(uri, token); err != nil {
			fatalf("%v", err)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <registry>",
	Short: "forget a registry's stored bearer token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		uri, err := regurl.Parse(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		cfg, err := buffrscfg.Resolve()
		if err != nil {
			fatalf("%v", err)
		}

		store, err := credentials.Load(cfg.CredentialsPath())
		if err != nil {
			fatalf("%v", err)
		}

		if err := store.Logout(uri); err != nil {
			fatalf("%v", err)
		}
	},
}

// tokenOnly is a one-shot credentials.Provider for the token a `login`
// invocation is about to validate, before it has been persisted.
type tokenOnly struct {
	token string
}

func (t tokenOnly) Token(regurl.URI) (string, bool) { return t.token, true }

func readToken() (string, error) {
	fmt.Fprint(os.Stderr, "token: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
