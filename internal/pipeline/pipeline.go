// Package pipeline runs entities through extract, clean and load.
//
// Entities run one at a time in the order given. A failing entity is
// recorded in the run report and the next entity still runs; a destination
// table is only replaced after its entity extracted and cleaned cleanly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/extract"
	"github.com/JonMunkholm/salesetl/internal/load"
	"github.com/JonMunkholm/salesetl/internal/logging"
)

// Stage names used in StageError.
const (
	StageExtract  = "extract"
	StageClean    = "clean"
	StageLoad     = "load"
	StageSnapshot = "snapshot"
)

// StageError is the failure of one entity at one stage.
type StageError struct {
	Entity string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Entity, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrUnknownEntity is returned for a step naming an unregistered entity.
var ErrUnknownEntity = errors.New("unknown entity")

// Step pairs a registered entity with the extractor for its source.
type Step struct {
	Entity    string
	Extractor extract.Extractor
}

// Snapshotter writes a cleaned batch to a named side file.
type Snapshotter interface {
	Write(name string, b core.Batch) (string, error)
}

// Pipeline runs steps against one loader.
type Pipeline struct {
	loader    load.Loader
	snapshots Snapshotter
	log       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSnapshots writes every cleaned batch through s before loading.
func WithSnapshots(s Snapshotter) Option {
	return func(p *Pipeline) { p.snapshots = s }
}

// WithLogger sets the logger for progress and drop reports.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New creates a pipeline that loads into loader.
func New(loader load.Loader, opts ...Option) *Pipeline {
	p := &Pipeline{loader: loader}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Run executes steps in order. The run ID is taken from ctx when it was
// tagged with logging.WithRunID, otherwise a new one is generated.
func (p *Pipeline) Run(ctx context.Context, steps []Step) RunReport {
	id := logging.RunID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logging.WithRunID(ctx, id)
	}
	log := logging.Enrich(ctx, p.log)

	report := RunReport{ID: id, StartedAt: time.Now()}
	log.Info("run started", "entities", len(steps))

	for _, step := range steps {
		res := p.RunEntity(ctx, step)
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now()
	log.Info("run finished", "report", report)
	return report
}

// RunEntity runs a single step. Failures, including panics, are returned
// in the result rather than propagated.
func (p *Pipeline) RunEntity(ctx context.Context, step Step) (res EntityResult) {
	start := time.Now()
	res.Entity = step.Entity
	log := logging.Enrich(ctx, p.log).With("entity", step.Entity)

	stage := StageClean
	defer func() {
		if r := recover(); r != nil {
			res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: fmt.Errorf("panic: %v", r)})
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			log.Error("entity failed", "error", res.Err, "duration", res.Duration)
			return
		}
		log.Info("entity loaded",
			"table", res.Table,
			"rows_in", res.RowsIn,
			"rows_out", res.RowsOut,
			"loaded", res.Loaded,
			"duration", res.Duration,
		)
	}()

	def, ok := core.Get(step.Entity)
	if !ok {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: ErrUnknownEntity})
		return res
	}
	res.Table = def.Info.Table

	stage = StageExtract
	if step.Extractor == nil {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: errors.New("no extractor configured")})
		return res
	}
	if err := ctx.Err(); err != nil {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: err})
		return res
	}
	raw, err := step.Extractor.Extract(ctx)
	if err != nil {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: err})
		return res
	}
	res.RowsIn = raw.Len()
	log.Debug("extracted", "rows", raw.Len(), "columns", len(raw.Columns))

	stage = StageClean
	cleaned, report, err := core.Clean(def, raw, log)
	if err != nil {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: err})
		return res
	}
	res.RowsOut = report.RowsOut
	res.Dropped = make(map[string]int, len(report.Dropped))
	for _, d := range report.Dropped {
		res.Dropped[d.Reason] = d.Rows
	}

	if p.snapshots != nil && def.Info.Snapshot != "" {
		stage = StageSnapshot
		path, err := p.snapshots.Write(def.Info.Snapshot, cleaned)
		if err != nil {
			res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: err})
			return res
		}
		res.Snapshot = path
	}

	stage = StageLoad
	n, err := p.loader.Replace(ctx, def.Info.Table, cleaned)
	if err != nil {
		res.fail(&StageError{Entity: step.Entity, Stage: stage, Err: err})
		return res
	}
	res.Loaded = n
	return res
}
