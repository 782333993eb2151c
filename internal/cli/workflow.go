package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "MODE", "STEPS", "CREATED"}
			rows := make([][]string, len(workflows))
			for i, w := range workflows {
				rows[i] = []string{w.ID, w.Name, w.Mode, strconv.Itoa(len(w.Steps)), w.CreatedAt}
			}

			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a JSON definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			definition, err := readDefinition(file)
			if err != nil {
				return err
			}

			workflow, err := client.CreateWorkflow(definition)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", workflow.ID))
			out.Print(
				[]string{"ID", "NAME", "MODE", "STEPS"},
				[][]string{{workflow.ID, workflow.Name, workflow.Mode, strconv.Itoa(len(workflow.Steps))}},
				workflow,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to workflow JSON ('-' for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "MODE", "STEPS", "CREATED", "UPDATED"},
				[][]string{{
					workflow.ID, workflow.Name, workflow.Mode,
					strconv.Itoa(len(workflow.Steps)), workflow.CreatedAt, workflow.UpdatedAt,
				}},
				workflow,
			)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a workflow from a JSON definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			definition, err := readDefinition(file)
			if err != nil {
				return err
			}

			workflow, err := client.UpdateWorkflow(args[0], definition)
			if err != nil {
				return err
			}

			out.Success("Workflow updated")
			out.Print(
				[]string{"ID", "NAME", "MODE", "STEPS"},
				[][]string{{workflow.ID, workflow.Name, workflow.Mode, strconv.Itoa(len(workflow.Steps))}},
				workflow,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to workflow JSON ('-' for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

// readDefinition читает JSON-определение из файла или stdin.
func readDefinition(path string) (json.RawMessage, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("definition is not valid JSON")
	}

	return json.RawMessage(data), nil
}
