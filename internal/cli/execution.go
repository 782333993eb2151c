package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionLogsCmd(clientFn, outputFn),
		newExecutionWatchCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW_ID", "STATUS", "TOKENS", "CREATED"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{
					e.ID, e.WorkflowID, e.Status,
					fmt.Sprintf("%d", e.TokenUsage.TotalTokens), e.CreatedAt,
				}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (QUEUED, RUNNING, COMPLETED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a new execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.StartExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))

			if watch {
				return watchExecution(cmd, client, out, exec.ID)
			}

			out.Print(
				[]string{"ID", "WORKFLOW_ID", "STATUS", "CREATED"},
				[][]string{{exec.ID, exec.WorkflowID, exec.Status, exec.CreatedAt}},
				exec,
			)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream events until the execution finishes")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "WORKFLOW_ID", "STATUS", "TOKENS", "COST", "ERROR", "CREATED"},
				[][]string{{
					exec.ID, exec.WorkflowID, exec.Status,
					fmt.Sprintf("%d", exec.TokenUsage.TotalTokens),
					fmt.Sprintf("$%.4f", exec.TokenUsage.EstimatedCost),
					exec.Error, exec.CreatedAt,
				}},
				exec,
			)
			return nil
		},
	}
}

func newExecutionLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs ID",
		Short: "Show execution logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			logs, err := client.GetExecutionLogs(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "LEVEL", "CATEGORY", "MESSAGE"}
			rows := make([][]string, len(logs))
			for i, entry := range logs {
				rows[i] = []string{entry.Timestamp, entry.Level, entry.Category, entry.Message}
			}

			out.Print(headers, rows, logs)
			return nil
		},
	}
}

func newExecutionWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Stream live events of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchExecution(cmd, clientFn(), outputFn(), args[0])
		},
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.CancelExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution cancelled: %s (status: %s)", exec.ID, exec.Status))
			return nil
		},
	}
}

// errWatchDone сигнализирует о терминальном событии в стриме.
var errWatchDone = fmt.Errorf("watch done")

// watchExecution стримит события execution в stdout до терминального
// события или Ctrl+C.
func watchExecution(cmd *cobra.Command, client *Client, out *Output, executionID string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.WatchEvents(ctx, executionID, func(ev EventMessage) error {
		switch ev.Type {
		case "log":
			var payload struct {
				Entry LogEntryResponse `json:"entry"`
			}
			if err := json.Unmarshal(ev.Payload, &payload); err == nil {
				out.Line(fmt.Sprintf("[%s] %s: %s", payload.Entry.Level, payload.Entry.Category, payload.Entry.Message))
			}
		case "progress":
			var payload struct {
				CurrentStep int `json:"current_step"`
				TotalSteps  int `json:"total_steps"`
			}
			if err := json.Unmarshal(ev.Payload, &payload); err == nil {
				out.Line(fmt.Sprintf("step %d/%d", payload.CurrentStep, payload.TotalSteps))
			}
		case "completed", "failed", "cancelled":
			out.Line(fmt.Sprintf("execution %s", ev.Type))
			return errWatchDone
		default:
			out.Line(fmt.Sprintf("event: %s", ev.Type))
		}
		return nil
	})

	if err == errWatchDone || err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Прервано пользователем
		return nil
	}
	return err
}
