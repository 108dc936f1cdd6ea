// Package results reads the outcome of a single tracked task: its identity,
// the last value of every scalar metric and the series of every plot.
package results

import (
	"context"
	"sync/atomic"

	"github.com/gidra39/clearml-results/types"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Fetcher is the part of the tracking server client used to load a task.
type Fetcher interface {
	GetTaskLatestScalarValues(ctx context.Context, taskID string) (*types.TaskSnapshot, error)
	GetTaskPlots(ctx context.Context, taskID string) (*types.PlotSnapshot, error)
}

// snapshot pairs the two payloads of one fetch. It is never mutated after
// being stored.
type snapshot struct {
	scalars *types.TaskSnapshot
	plots   *types.PlotSnapshot
}

// ExperimentResults exposes the fetched payloads of a task as flat values.
// Refresh replaces both payloads in one atomic swap, so every accessor call
// reads a consistent pair.
type ExperimentResults struct {
	taskID  string
	fetcher Fetcher
	current atomic.Pointer[snapshot]
}

// New fetches the scalar values and plots of taskID.
func New(ctx context.Context, fetcher Fetcher, taskID string) (*ExperimentResults, error) {
	r := &ExperimentResults{taskID: taskID, fetcher: fetcher}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh fetches both payloads again. On failure the previous snapshot is
// kept.
func (r *ExperimentResults) Refresh(ctx context.Context) error {
	scalars, err := r.fetcher.GetTaskLatestScalarValues(ctx, r.taskID)
	if err != nil {
		return &FetchError{Op: "latest scalar values", TaskID: r.taskID, Err: err}
	}

	plots, err := r.fetcher.GetTaskPlots(ctx, r.taskID)
	if err != nil {
		return &FetchError{Op: "plots", TaskID: r.taskID, Err: err}
	}

	if scalars == nil {
		scalars = &types.TaskSnapshot{}
	}
	if plots == nil {
		plots = &types.PlotSnapshot{}
	}

	r.current.Store(&snapshot{scalars: scalars, plots: plots})

	log.Debug().
		Str("task_id", r.taskID).
		Int("metrics", len(scalars.Metrics)).
		Int("plots", len(plots.Plots)).
		Msg("task results fetched")
	return nil
}

// TaskID returns the id the results were fetched for.
func (r *ExperimentResults) TaskID() string {
	return r.taskID
}

// TaskName returns the task name reported by the server.
func (r *ExperimentResults) TaskName() (string, error) {
	name := r.current.Load().scalars.Name
	if name == nil {
		return "", &MissingFieldError{Field: "name"}
	}
	return *name, nil
}

// TaskStatus returns the task status, e.g. "in_progress" or "completed".
func (r *ExperimentResults) TaskStatus() (string, error) {
	status := r.current.Load().scalars.Status
	if status == nil {
		return "", &MissingFieldError{Field: "status"}
	}
	return *status, nil
}

// TaskLastIteration returns the last iteration the task reported.
func (r *ExperimentResults) TaskLastIteration() (int64, error) {
	lastIter := r.current.Load().scalars.LastIter
	if lastIter == nil {
		return 0, &MissingFieldError{Field: "last_iter"}
	}
	return *lastIter, nil
}

// MetricTitles lists metric names in the order the server returned them.
// Duplicates are kept.
func (r *ExperimentResults) MetricTitles() []string {
	return metricTitles(r.current.Load())
}

// PlotTitles lists plot metric names in the order the server returned them.
func (r *ExperimentResults) PlotTitles() []string {
	return plotTitles(r.current.Load())
}

// Metrics returns a copy of the metric records of the current snapshot.
func (r *ExperimentResults) Metrics() []types.MetricRecord {
	return append([]types.MetricRecord{}, r.current.Load().scalars.Metrics...)
}

// Plots returns a copy of the plot records of the current snapshot.
func (r *ExperimentResults) Plots() []types.PlotRecord {
	return append([]types.PlotRecord{}, r.current.Load().plots.Plots...)
}

// MetricLastValues maps each variant of the metric to its last reported
// value. When several records share the title, or a variant name repeats,
// the later entry wins.
func (r *ExperimentResults) MetricLastValues(title string) (map[string]float64, error) {
	snap := r.current.Load()
	if !lo.Contains(metricTitles(snap), title) {
		return nil, errors.Wrapf(ErrInvalidArgument,
			"there is no metric titled %q in task %s, use MetricTitles() to list the available metric titles", title, r.taskID)
	}

	values := map[string]float64{}
	for _, metric := range snap.scalars.Metrics {
		if metric.Name != title {
			continue
		}
		for _, variant := range metric.Variants {
			values[variant.Name] = variant.LastValue
		}
	}
	return values, nil
}

// PlotData maps each series of the plot to its coordinates. Values are
// passed through without conversion. Later series with the same name
// overwrite earlier ones.
func (r *ExperimentResults) PlotData(title string) (map[string]Series, error) {
	snap := r.current.Load()
	if !lo.Contains(plotTitles(snap), title) {
		return nil, errors.Wrapf(ErrInvalidArgument,
			"there is no plot titled %q in task %s, use PlotTitles() to list the available plot titles", title, r.taskID)
	}

	data := map[string]Series{}
	for _, plot := range snap.plots.Plots {
		if plot.Metric != title {
			continue
		}
		if err := parsePlotSeries(title, plot.PlotStr, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func metricTitles(snap *snapshot) []string {
	return lo.Map(snap.scalars.Metrics, func(metric types.MetricRecord, _ int) string {
		return metric.Name
	})
}

func plotTitles(snap *snapshot) []string {
	return lo.Map(snap.plots.Plots, func(plot types.PlotRecord, _ int) string {
		return plot.Metric
	})
}
