package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// CardColumns is the header of the card details PDF table.
var CardColumns = []string{"card_number", "expiry_date", "card_provider", "date_payment_confirmed"}

// PDFExtractor downloads a PDF holding one table spread over many pages
// and reads it back into rows by text position.
type PDFExtractor struct {
	URL    string
	Client *http.Client

	// Columns are the header names of the table. Defaults to CardColumns.
	Columns []string
}

// Extract downloads the document and reads every page.
func (e *PDFExtractor) Extract(ctx context.Context) (core.Batch, error) {
	data, err := fetchRaw(ctx, e.Client, e.URL)
	if err != nil {
		return core.Batch{}, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return core.Batch{}, fmt.Errorf("open pdf: %w", err)
	}

	var lines []textLine
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return core.Batch{}, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			line := make(textLine, 0, len(row.Content))
			for _, t := range row.Content {
				line = append(line, fragment{X: t.X, W: t.W, S: t.S})
			}
			lines = append(lines, line)
		}
	}

	columns := e.Columns
	if len(columns) == 0 {
		columns = CardColumns
	}
	return layoutTable(lines, columns)
}

// fragment is a run of text at a horizontal position.
type fragment struct {
	X, W float64
	S    string
}

// textLine is the text of one visual row of a page.
type textLine []fragment

// wordGap is how far apart, in points, two fragments may be and still
// belong to the same word.
const wordGap = 1.5

// words merges adjacent fragments into words ordered by X.
func (l textLine) words() []fragment {
	frags := slices.Clone(l)
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

	var out []fragment
	space := false
	for _, f := range frags {
		if strings.TrimSpace(f.S) == "" {
			space = true
			continue
		}
		joined := !space
		space = false
		if n := len(out); n > 0 && joined && f.X-(out[n-1].X+out[n-1].W) <= wordGap {
			last := &out[n-1]
			last.S += f.S
			last.W = f.X + f.W - last.X
			continue
		}
		out = append(out, fragment{X: f.X, W: f.W, S: strings.TrimSpace(f.S)})
	}
	for i := range out {
		out[i].S = strings.TrimSpace(out[i].S)
	}
	return out
}

// layoutTable finds the header line and assigns the words of every later
// line to the header column whose start is closest on the left. Repeated
// header lines (one per page) are skipped.
func layoutTable(lines []textLine, columns []string) (core.Batch, error) {
	batch := core.NewBatch(columns...)

	var starts []float64
	for _, line := range lines {
		words := line.words()
		if len(words) == 0 {
			continue
		}

		if x, ok := headerStarts(words, columns); ok {
			starts = x
			continue
		}
		if starts == nil {
			continue
		}

		cells := make([][]string, len(columns))
		for _, w := range words {
			col := columnFor(w.X, starts)
			cells[col] = append(cells[col], w.S)
		}
		rec := make(core.Record, len(columns))
		for i, name := range columns {
			if len(cells[i]) == 0 {
				rec[name] = nil
				continue
			}
			rec[name] = strings.Join(cells[i], " ")
		}
		batch.Rows = append(batch.Rows, rec)
	}

	if starts == nil {
		return core.Batch{}, fmt.Errorf("pdf: header %v not found", columns)
	}
	return batch, nil
}

// headerStarts returns the X position of each column when words is a
// header line.
func headerStarts(words []fragment, columns []string) ([]float64, bool) {
	if len(words) != len(columns) {
		return nil, false
	}
	starts := make([]float64, len(columns))
	for i, name := range columns {
		j := slices.IndexFunc(words, func(w fragment) bool { return w.S == name })
		if j < 0 {
			return nil, false
		}
		starts[i] = words[j].X
	}
	return starts, true
}

// columnFor returns the column whose start is the right-most one at or
// left of x. Text left of every column goes to the left-most one.
func columnFor(x float64, starts []float64) int {
	best, bestX := -1, 0.0
	for i, s := range starts {
		if s <= x+wordGap && (best < 0 || s > bestX) {
			best, bestX = i, s
		}
	}
	if best >= 0 {
		return best
	}

	left := 0
	for i, s := range starts {
		if s < starts[left] {
			left = i
		}
	}
	return left
}
