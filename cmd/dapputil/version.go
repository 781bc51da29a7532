package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the version of the application.
// This can be overridden at build time using ldflags.
var Version = "v0.1.0"

// Commit is the git commit hash.
// This can be overridden at build time using ldflags.
var Commit = "dev"

// BuildTime is the build timestamp.
// This can be overridden at build time using ldflags.
var BuildTime = "unknown"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// 不需要加载配置
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dapputil %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime)
			return err
		},
	}
}
