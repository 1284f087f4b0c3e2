package commands

import (
	"github.com/oakline/policyagent/internal/config"
	"github.com/spf13/cobra"
)

var logLevelOverride string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policyagent",
		Short: "PolicyAgent - Corporate Policy Q&A Agent",
		Long:  `PolicyAgent answers corporate policy questions through a guarded tool-use loop with audit logging and human escalation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return configureLogger(config.DefaultConfig(), logLevelOverride, false)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride, cmd.Name() == "ask")
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewAskCmd(),
		NewEvalCmd(),
		NewIndexCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return cmd
}
