package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oakline/policyagent/internal/agent"
	"github.com/oakline/policyagent/internal/config"
	"github.com/spf13/cobra"
)

func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a policy question",
		Long: `Ask answers one policy question and prints the structured decision.
Without arguments it starts an interactive session.

Prefix the question with your employee id so the agent can look you up,
e.g. 'Employee emp001: Can I fly business class to Tokyo?'`,
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildAgent(ctx, cfg)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		return askOnce(ctx, a, strings.Join(args, " "))
	}

	fmt.Println("PolicyAgent ready. Type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			break
		}
		if input == "" {
			continue
		}

		if err := askOnce(ctx, a, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	return nil
}

// askOnce streams one answer to stdout and prints the decision panel.
func askOnce(ctx context.Context, a *agent.Agent, question string) error {
	stream, err := a.RunStream(ctx, question)
	if err != nil {
		var rejected *agent.InputRejectedError
		if errors.As(err, &rejected) {
			fmt.Println(rejectedStyle.Render("INPUT REJECTED"))
			fmt.Printf("%s %s\n", labelStyle.Render("Reason:"), rejected.Result.ErrorMessage)
			return nil
		}
		return err
	}
	defer stream.Close()

	for {
		ev, ok := stream.Recv()
		if !ok {
			break
		}
		switch ev.Type {
		case agent.StreamText:
			fmt.Print(ev.Text)
		case agent.StreamToolStart:
			fmt.Println("\n" + renderToolStart(ev.Tool))
		case agent.StreamToolEnd:
			fmt.Println(renderToolEnd(ev.Tool))
		}
	}

	resp, err := stream.Final()
	if err != nil && !errors.Is(err, agent.ErrMaxIterations) {
		return err
	}
	if errors.Is(err, agent.ErrMaxIterations) {
		fmt.Println("\n" + escalationStyle.Render("⚠ Iteration budget exhausted; showing partial result."))
	}

	fmt.Println()
	fmt.Println(renderDecision(resp))
	return nil
}
