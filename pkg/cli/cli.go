// Package cli defines the napcat-email command tree: serve runs the plugin
// service, send delivers a one-shot message, version prints the build
// version.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MY-Final/napcat-plugin-email/pkg/version"
)

// NewRootCommand builds the napcat-email command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "napcat-email",
		Short:         "Email notification plugin for the napcat chat-bot host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newSendCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plugin version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}

// getEnvString returns the environment variable value or the default.
func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvBool returns true when the environment variable is set to "true"
// (case-insensitive), otherwise the default.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true")
}
