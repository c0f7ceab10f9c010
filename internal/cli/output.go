package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты команд: таблицей или JSON (--json).
// Данные идут в stdout, сводки и подсказки в stderr.
type Output struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewOutput создаёт Output поверх os.Stdout и os.Stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками вывода.
func NewOutputTo(jsonMode bool, stdout, stderr io.Writer) *Output {
	return &Output{jsonMode: jsonMode, stdout: stdout, stderr: stderr}
}

// JSONMode возвращает true, если включён вывод в JSON.
func (o *Output) JSONMode() bool {
	return o.jsonMode
}

// Print выводит v как JSON или rows как таблицу.
func (o *Output) Print(headers []string, rows [][]string, v any) {
	if o.jsonMode {
		o.JSON(v)
		return
	}
	o.Table(headers, rows)
}

// Table выводит таблицу. Пустые ячейки печатаются как "-".
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.stdout, 0, 0, 2, ' ', 0)
	writeRow(tw, headers)
	for _, row := range rows {
		writeRow(tw, row)
	}
	tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	line := make([]string, len(cells))
	for i, c := range cells {
		if c == "" {
			c = "-"
		}
		line[i] = strings.ReplaceAll(c, "\t", " ")
	}
	fmt.Fprintln(w, strings.Join(line, "\t"))
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Notef пишет строку в stderr. В JSON режиме stdout остаётся чистым JSON.
func (o *Output) Notef(format string, args ...any) {
	fmt.Fprintf(o.stderr, format+"\n", args...)
}

// Outcomes выводит результаты задач: по строке на шаг.
func (o *Output) Outcomes(outcomes []TaskOutcome, v any) {
	rows := make([][]string, len(outcomes))
	for i, r := range outcomes {
		detail := r.Error
		if r.OK() {
			detail = formatMap(r.Output, 40)
		} else if r.ErrorKind != "" {
			detail = r.ErrorKind + ": " + r.Error
		}
		rows[i] = []string{strconv.Itoa(i + 1), r.TaskType, r.Status, r.JobID, detail}
	}
	o.Print([]string{"STEP", "TASK_TYPE", "STATUS", "JOB_ID", "DETAIL"}, rows, v)
}

// Jobs выводит страницу jobs и сводку по пагинации.
func (o *Output) Jobs(page *JobPage) {
	rows := make([][]string, len(page.Items))
	for i, j := range page.Items {
		rows[i] = []string{j.ID, j.TaskType, j.Status, formatDuration(j.DurationMs), j.CreatedAt}
	}
	o.Print([]string{"ID", "TASK_TYPE", "STATUS", "DURATION", "CREATED"}, rows, page)
	if !o.jsonMode {
		o.Notef("Showing %d of %d (offset %d)", len(page.Items), page.Total, page.Offset)
	}
}

// Job выводит один job вертикально: поле и значение.
func (o *Output) Job(job *JobResponse) {
	if o.jsonMode {
		o.JSON(job)
		return
	}
	target := ""
	if job.TargetID != "" {
		target = job.TargetType + "/" + job.TargetID
	}
	o.Table([]string{"FIELD", "VALUE"}, [][]string{
		{"id", job.ID},
		{"task_type", job.TaskType},
		{"status", job.Status},
		{"target", target},
		{"duration", formatDuration(job.DurationMs)},
		{"error", job.Error},
		{"input", formatMap(job.Input, 60)},
		{"output", formatMap(job.Output, 60)},
		{"created_at", job.CreatedAt},
	})
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return strconv.FormatInt(*ms, 10) + "ms"
}
