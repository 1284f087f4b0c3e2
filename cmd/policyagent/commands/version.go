package commands

import (
	"fmt"

	"github.com/oakline/policyagent/internal/version"
	"github.com/spf13/cobra"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show PolicyAgent version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("policyagent %s\n", version.Version)
		},
	}
}
