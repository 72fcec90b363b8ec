package web

//go:generate templ generate -f dashboard.templ

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
)

type dashboardData struct {
	Entities []core.EntityInfo
	Runs     []pipeline.RunReport
	Running  bool
	Next     time.Time
}

const timeLayout = "2006-01-02 15:04:05"

func runHref(id string) string { return "/api/runs/" + id }

func runDuration(run pipeline.RunReport) string {
	if run.FinishedAt.IsZero() {
		return "running"
	}
	return run.Duration().Round(time.Millisecond).String()
}

// resultText is the one-line summary of an entity result.
func resultText(res pipeline.EntityResult) string {
	if !res.OK() {
		return res.Entity + ": failed"
	}
	s := res.Entity + ": " + strconv.FormatInt(res.Loaded, 10) + " rows"
	if n := res.DroppedTotal(); n > 0 {
		s += fmt.Sprintf(" (%d dropped)", n)
	}
	return s
}

// droppedSummary lists drop reasons in name order.
func droppedSummary(dropped map[string]int) string {
	reasons := make([]string, 0, len(dropped))
	for reason := range dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = reason + "=" + strconv.Itoa(dropped[reason])
	}
	return strings.Join(parts, ", ")
}
