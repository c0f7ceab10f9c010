package cli

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для запуска workflow.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run workflows",
	}

	cmd.AddCommand(newWorkflowRunCmd(clientFn, outputFn))

	return cmd
}

func newWorkflowRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string
	var contextPairs []string
	var async bool

	cmd := &cobra.Command{
		Use:   "run --file FILE",
		Short: "Run a workflow from a JSON file",
		Long: `Run a workflow described in a JSON file ("-" reads stdin).

The file holds either an array of steps or an object
{"steps": [...], "context": {...}}. Each step is
{"task_type": "crawler", "task_data": {...}}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := readWorkflowFile(file)
			if err != nil {
				return err
			}

			extra, err := parseKeyValues(contextPairs)
			if err != nil {
				return err
			}
			if len(extra) > 0 {
				if req.Context == nil {
					req.Context = make(map[string]any, len(extra))
				}
				maps.Copy(req.Context, extra)
			}

			if async {
				resp, err := client.SubmitWorkflow(cmd.Context(), req)
				if err != nil {
					return err
				}
				out.Notef("Workflow submitted: %s", resp.WorkflowID)
				out.Print(
					[]string{"WORKFLOW_ID", "STATUS"},
					[][]string{{resp.WorkflowID, resp.Status}},
					resp,
				)
				return nil
			}

			result, err := client.RunWorkflow(cmd.Context(), req)
			if err != nil {
				return err
			}

			out.Outcomes(result.Results, result)
			if len(result.Context) > 0 && !out.JSONMode() {
				out.Notef("Context: %s", formatMap(result.Context, 60))
			}

			if n := len(result.Results); n > 0 && !result.Results[n-1].OK() {
				return fmt.Errorf("workflow stopped at step %d: %s", n, result.Results[n-1].Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow JSON file (- for stdin)")
	cmd.Flags().StringSliceVar(&contextPairs, "context", nil, "Initial context as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&async, "async", false, "Submit to the queue instead of waiting")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
