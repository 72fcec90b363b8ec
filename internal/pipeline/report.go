package pipeline

import (
	"log/slog"
	"time"
)

// EntityResult is the outcome of one entity in a run.
type EntityResult struct {
	Entity   string         `json:"entity"`
	Table    string         `json:"table"`
	RowsIn   int            `json:"rows_in"`
	RowsOut  int            `json:"rows_out"`
	Loaded   int64          `json:"loaded"`
	Dropped  map[string]int `json:"dropped,omitempty"`
	Snapshot string         `json:"snapshot,omitempty"`
	Duration time.Duration  `json:"duration"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r *EntityResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// OK reports whether the entity was loaded.
func (r EntityResult) OK() bool { return r.Err == nil && r.Error == "" }

// DroppedTotal returns the number of rows removed by cleaning.
func (r EntityResult) DroppedTotal() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

// RunReport summarises one pipeline run.
type RunReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitzero"`
	Results    []EntityResult `json:"results"`
}

// Failed returns the results of entities that did not load.
func (r RunReport) Failed() []EntityResult {
	var failed []EntityResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every entity loaded.
func (r RunReport) OK() bool { return len(r.Failed()) == 0 }

// Duration returns the wall time of the run, or 0 while it is running.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LogValue implements slog.LogValuer for structured logging.
func (r RunReport) LogValue() slog.Value {
	rows := 0
	for _, res := range r.Results {
		rows += int(res.Loaded)
	}
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.Int("entities", len(r.Results)),
		slog.Int("failed", len(r.Failed())),
		slog.Int("rows_loaded", rows),
		slog.Duration("duration", r.Duration()),
	)
}
