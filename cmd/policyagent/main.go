package main

import (
	"fmt"
	"os"

	"github.com/oakline/policyagent/cmd/policyagent/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
