package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для запуска одной задачи.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Run single tasks",
	}

	cmd.AddCommand(newTaskRunCmd(clientFn, outputFn))

	return cmd
}

func newTaskRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "run TASK_TYPE",
		Short: "Run a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			input, err := parseKeyValues(inputs)
			if err != nil {
				return err
			}

			outcome, err := client.RunTask(cmd.Context(), TaskRequest{TaskType: args[0], Input: input})
			if err != nil {
				return err
			}

			out.Outcomes([]TaskOutcome{*outcome}, outcome)

			if !outcome.OK() {
				return fmt.Errorf("task failed (%s): %s", outcome.ErrorKind, outcome.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")

	return cmd
}

// NewAgentCmd создаёт группу команд для просмотра зарегистрированных агентов.
func NewAgentCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect registered agents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered task types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			types, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t}
			}
			out.Print([]string{"TASK_TYPE"}, rows, types)
			return nil
		},
	})

	return cmd
}
