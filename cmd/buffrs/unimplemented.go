package main

import (
	"github.com/spf13/cobra"
)

// lintCmd and generateCmd are documented stubs: .proto syntax
// validation and codegen invocation are external collaborators, not
// part of this package manager (§1 Non-goals).
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "(unimplemented) validate .proto sources",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fatalf("lint: not implemented; invoke a protobuf linter directly against proto/")
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "(unimplemented) invoke a protobuf compiler",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fatalf("generate: not implemented; invoke protoc or buf directly against proto/")
	},
}
