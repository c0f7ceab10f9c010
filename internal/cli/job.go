package cli

import (
	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для просмотра jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect job records",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListJobsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			page, err := client.ListJobs(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out.Jobs(page)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (pending, running, success, failed)")
	cmd.Flags().StringVar(&opts.TaskType, "type", "", "Filter by task type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Page size (1..100, default 20)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of jobs to skip")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Job(job)
			return nil
		},
	}
}
