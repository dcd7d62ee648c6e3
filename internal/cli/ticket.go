package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cliadapter "github.com/kawanishi0117/agent-company-sub008/internal/adapters/cli"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Manage the ticket hierarchy",
	Long:  "Create, inspect, pause, decompose and dispatch parent, child and grandchild tickets",
}

var ticketCreateCmd = &cobra.Command{
	Use:   "create [project] [instruction]",
	Short: "Create a parent ticket from an instruction",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, _ := cmd.Flags().GetString("priority")
		deadline, _ := cmd.Flags().GetString("deadline")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		_, err := wire.TicketAdapter().Create(cmd.Context(), args[0], strings.Join(args[1:], " "), models.TicketMetadata{
			Priority: priority,
			Deadline: deadline,
			Tags:     tags,
		})
		return err
	},
}

var ticketListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List the parent tickets of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.TicketAdapter().List(cmd.Context(), args[0])
		return err
	},
}

var ticketStatusCmd = &cobra.Command{
	Use:   "status [ticket-id]",
	Short: "Show a ticket at any level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.TicketAdapter().Status(cmd.Context(), args[0])
		return err
	},
}

var ticketPauseCmd = &cobra.Command{
	Use:   "pause [ticket-id]",
	Short: "Pause a ticket and everything below it",
	Long: `Pause a ticket. Dispatch skips paused tickets and their descendants.
Agents already running are not interrupted. Terminal tickets cannot be paused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := wire.TicketAdapter().Pause(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return actionExit(result)
	},
}

var ticketResumeCmd = &cobra.Command{
	Use:   "resume [ticket-id]",
	Short: "Resume a paused ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := wire.TicketAdapter().Resume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return actionExit(result)
	},
}

var ticketDecomposeCmd = &cobra.Command{
	Use:   "decompose [parent-id]",
	Short: "Split a parent ticket into children and grandchildren",
	Long: `Apply a decomposition plan to a parent ticket.

The plan is a YAML file:

  children:
    - title: Cart API
      workerType: developer
      grandchildren:
        - title: Add endpoint
          acceptanceCriteria: ["returns 200"]

Examples:
  agentco ticket decompose shop-0001 --plan plan.yaml
  agentco ticket decompose shop-0001 --child research:"Survey payment providers"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath, _ := cmd.Flags().GetString("plan")
		childLines, _ := cmd.Flags().GetStringArray("child")

		var plan models.DecompositionPlan
		switch {
		case planPath != "" && len(childLines) > 0:
			return fmt.Errorf("use either --plan or --child, not both")
		case planPath != "":
			p, err := readPlan(planPath)
			if err != nil {
				return err
			}
			plan = p
		case len(childLines) > 0:
			p, err := cliadapter.ParsePlanLines(childLines)
			if err != nil {
				return err
			}
			plan = p
		default:
			return fmt.Errorf("a plan is required: pass --plan or --child")
		}

		_, err := wire.TicketAdapter().Decompose(cmd.Context(), args[0], plan)
		return err
	},
}

var ticketDispatchCmd = &cobra.Command{
	Use:   "dispatch [ticket-id]",
	Short: "Hand grandchild tickets to a coding agent",
	Long: `Dispatch one grandchild, or every dispatchable grandchild under a child or
parent ticket. Each run is recorded, its QA output judged, and the ticket
moved to completed, revision_required or failed.

Examples:
  agentco ticket dispatch shop-0001-01-01 --workdir ../shop
  agentco ticket dispatch shop-0001 --workdir ../shop --agent codex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, _ := cmd.Flags().GetString("workdir")
		agentName, _ := cmd.Flags().GetString("agent")
		model, _ := cmd.Flags().GetString("model")
		waiverID, _ := cmd.Flags().GetString("waiver")

		abs, err := filepath.Abs(workDir)
		if err != nil {
			return fmt.Errorf("failed to resolve workdir: %w", err)
		}

		summary, err := wire.DispatchAdapter().Dispatch(cmd.Context(), primary.DispatchRequest{
			TicketID: args[0],
			WorkDir:  abs,
			Agent:    agentName,
			Model:    model,
			WaiverID: waiverID,
		})
		if err != nil {
			return err
		}
		if summary.Failed() {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

var ticketTreeCmd = &cobra.Command{
	Use:   "tree [project]",
	Short: "Show every ticket of a project as a tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.TicketAdapter().Tree(cmd.Context(), args[0])
	},
}

// actionExit maps a rejected pause or resume onto exit code 1.
func actionExit(result *primary.TicketActionResult) error {
	if !result.Success {
		return &ExitError{Code: 1}
	}
	return nil
}

// readPlan loads a YAML (or JSON, which is valid YAML) decomposition plan.
func readPlan(path string) (models.DecompositionPlan, error) {
	var plan models.DecompositionPlan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("failed to read plan: %w", err)
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return plan, nil
}

func init() {
	ticketCreateCmd.Flags().String("priority", "", "Priority hint (low, medium, high)")
	ticketCreateCmd.Flags().String("deadline", "", "Deadline hint (YYYY-MM-DD)")
	ticketCreateCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")

	ticketDecomposeCmd.Flags().String("plan", "", "Path to a YAML decomposition plan")
	ticketDecomposeCmd.Flags().StringArray("child", nil, "Child as workerType:title (repeatable)")

	ticketDispatchCmd.Flags().String("workdir", "", "Working directory the agent runs in (required)")
	ticketDispatchCmd.Flags().String("agent", "", "Agent adapter (defaults to agent.default)")
	ticketDispatchCmd.Flags().String("model", "", "Model override passed to the agent")
	ticketDispatchCmd.Flags().String("waiver", "", "Waiver id applied when judging each run")
	ticketDispatchCmd.MarkFlagRequired("workdir")

	ticketCmd.AddCommand(ticketCreateCmd)
	ticketCmd.AddCommand(ticketListCmd)
	ticketCmd.AddCommand(ticketStatusCmd)
	ticketCmd.AddCommand(ticketPauseCmd)
	ticketCmd.AddCommand(ticketResumeCmd)
	ticketCmd.AddCommand(ticketDecomposeCmd)
	ticketCmd.AddCommand(ticketDispatchCmd)
	ticketCmd.AddCommand(ticketTreeCmd)
}

// TicketCmd returns the ticket command
func TicketCmd() *cobra.Command {
	return ticketCmd
}
