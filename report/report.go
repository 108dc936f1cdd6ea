package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gidra39/clearml-results/results"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Task is the read side of results.ExperimentResults used by the report.
type Task interface {
	TaskID() string
	TaskName() (string, error)
	TaskStatus() (string, error)
	TaskLastIteration() (int64, error)
	MetricTitles() []string
	PlotTitles() []string
	MetricLastValues(title string) (map[string]float64, error)
	PlotData(title string) (map[string]results.Series, error)
}

type identity struct {
	name     string
	status   string
	lastIter int64
}

func readIdentity(task Task) (identity, error) {
	var (
		id  identity
		err error
	)
	if id.name, err = task.TaskName(); err != nil {
		return id, errors.Wrap(err, "read task name")
	}
	if id.status, err = task.TaskStatus(); err != nil {
		return id, errors.Wrap(err, "read task status")
	}
	if id.lastIter, err = task.TaskLastIteration(); err != nil {
		return id, errors.Wrap(err, "read task last iteration")
	}
	return id, nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
	}
	table.SetAutoWrapText(false)
	return table
}

// PrintTask writes the identity, metric and plot titles of the task, then
// the last values of metricTitle and the series of plotTitle.
func PrintTask(w io.Writer, task Task, metricTitle, plotTitle string) error {
	id, err := readIdentity(task)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nInformation on task id %s\n", task.TaskID())
	table := newTable(w)
	table.AppendBulk([][]string{
		{"Name", id.name},
		{"Status", id.status},
		{"Last iteration", humanize.Comma(id.lastIter)},
	})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	printTitles(w, "Task's available metrics", task.MetricTitles())
	printTitles(w, "Task's available plots", task.PlotTitles())

	fmt.Fprintf(w, "\nRetrieving data from metric %q:\n", metricTitle)
	values, err := task.MetricLastValues(metricTitle)
	if err != nil {
		return err
	}
	table = newTable(w, "Variant", "Last value")
	for _, variant := range sortedKeys(values) {
		table.Append([]string{variant, strconv.FormatFloat(values[variant], 'g', -1, 64)})
	}
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	fmt.Fprintf(w, "\nRetrieving data from plot %q:\n", plotTitle)
	data, err := task.PlotData(plotTitle)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(data) {
		series := data[name]
		fmt.Fprintf(w, "\n%s:\n", name)
		fmt.Fprintf(w, "x values = %s\n", formatValues(series.X))
		fmt.Fprintf(w, "y values = %s\n", formatValues(series.Y))
	}

	return nil
}

func printTitles(w io.Writer, caption string, titles []string) {
	fmt.Fprintf(w, "\n%s (%s):\n", caption, humanize.Comma(int64(len(titles))))
	table := newTable(w, "#", "Title")
	for i, title := range titles {
		table.Append([]string{humanize.Comma(int64(i + 1)), title})
	}
	table.Render()
}

// Summary is a short plain-text description of the task used as a
// notification body.
func Summary(task Task) (string, error) {
	id, err := readIdentity(task)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task %s (%s)\n", id.name, task.TaskID())
	fmt.Fprintf(&b, "Status: %s\n", id.status)
	fmt.Fprintf(&b, "Last iteration: %s\n", humanize.Comma(id.lastIter))
	fmt.Fprintf(&b, "Metrics: %s, plots: %s",
		humanize.Comma(int64(len(lo.Uniq(task.MetricTitles())))),
		humanize.Comma(int64(len(lo.Uniq(task.PlotTitles())))))
	return b.String(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func formatValues(values []any) string {
	return "[" + strings.Join(lo.Map(values, func(v any, _ int) string {
		return fmt.Sprint(v)
	}), ", ") + "]"
}
