package main

import (
	"fmt"
	"os"

	"github.com/MY-Final/napcat-plugin-email/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
