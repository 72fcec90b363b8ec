package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// JSONFeedExtractor reads a JSON document over HTTP. Two shapes are
// accepted:
//
//	[{"col": v, ...}, ...]              one object per row
//	{"col": {"0": v, "1": v}, ...}      one object per column, keyed by row index
type JSONFeedExtractor struct {
	URL    string
	Client *http.Client
}

// Extract downloads and decodes the feed.
func (e *JSONFeedExtractor) Extract(ctx context.Context) (core.Batch, error) {
	data, err := fetch(ctx, e.Client, e.URL, nil)
	if err != nil {
		return core.Batch{}, err
	}
	b, err := decodeFeed(data)
	if err != nil {
		return core.Batch{}, fmt.Errorf("decode %s: %w", e.URL, err)
	}
	return b, nil
}

func decodeFeed(data []byte) (core.Batch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return core.Batch{}, errors.New("empty document")
	}

	switch data[0] {
	case '[':
		var objs []map[string]any
		if err := json.Unmarshal(data, &objs); err != nil {
			return core.Batch{}, err
		}
		batch := core.NewBatch()
		for _, obj := range objs {
			if obj != nil {
				batch.Append(flattenRecord(obj))
			}
		}
		return batch, nil
	case '{':
		return decodeColumns(data)
	default:
		return core.Batch{}, fmt.Errorf("unexpected JSON value starting with %q", data[0])
	}
}

// decodeColumns reads the column-oriented shape, keeping the column order
// of the document and ordering rows by numeric index.
func decodeColumns(data []byte) (core.Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return core.Batch{}, err
	}

	var columns []string
	values := map[string]map[string]any{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return core.Batch{}, err
		}
		col, ok := tok.(string)
		if !ok {
			return core.Batch{}, fmt.Errorf("unexpected token %v", tok)
		}
		var cells map[string]any
		if err := dec.Decode(&cells); err != nil {
			return core.Batch{}, fmt.Errorf("column %q: %w", col, err)
		}
		if _, seen := values[col]; !seen {
			columns = append(columns, col)
		}
		values[col] = cells
	}

	index := map[string]int{}
	for _, cells := range values {
		for k := range cells {
			if _, ok := index[k]; ok {
				continue
			}
			n, err := strconv.Atoi(k)
			if err != nil {
				return core.Batch{}, fmt.Errorf("row index %q is not a number", k)
			}
			index[k] = n
		}
	}
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return index[keys[i]] < index[keys[j]] })

	batch := core.NewBatch(columns...)
	for _, k := range keys {
		rec := make(core.Record, len(columns))
		for _, col := range columns {
			rec[col] = scalar(values[col][k])
		}
		batch.Rows = append(batch.Rows, rec)
	}
	return batch, nil
}

func scalar(v any) any {
	switch v.(type) {
	case nil, string, float64, bool:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
