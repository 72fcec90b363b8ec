package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/logging"
)

// StoreNumberPlaceholder is replaced by the store number in StoreURLTemplate.
const StoreNumberPlaceholder = "{store_number}"

// DefaultStoreConcurrency bounds parallel store requests when Concurrency is unset.
const DefaultStoreConcurrency = 8

// StoreAPIExtractor reads every store from the stores REST API, one
// request per store number.
type StoreAPIExtractor struct {
	CountURL         string
	StoreURLTemplate string
	APIKey           string
	Client           *http.Client
	Concurrency      int
}

func (e *StoreAPIExtractor) header() http.Header {
	h := http.Header{}
	if e.APIKey != "" {
		h.Set("x-api-key", e.APIKey)
	}
	return h
}

// NumberOfStores asks the API how many stores to fetch.
func (e *StoreAPIExtractor) NumberOfStores(ctx context.Context) (int, error) {
	data, err := fetch(ctx, e.Client, e.CountURL, e.header())
	if err != nil {
		return 0, fmt.Errorf("number of stores: %w", err)
	}

	var body struct {
		NumberStores *int `json:"number_stores"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("number of stores: decode: %w", err)
	}
	if body.NumberStores == nil {
		return 0, fmt.Errorf("number of stores: response has no number_stores")
	}
	return *body.NumberStores, nil
}

// StoreURL returns the details URL of one store.
func (e *StoreAPIExtractor) StoreURL(n int) string {
	return strings.ReplaceAll(e.StoreURLTemplate, StoreNumberPlaceholder, strconv.Itoa(n))
}

// Extract fetches stores 0..n-1 with bounded concurrency. A 404 marks the
// end of the range. Any other failed store is logged and skipped. Rows
// come back in store-number order.
func (e *StoreAPIExtractor) Extract(ctx context.Context) (core.Batch, error) {
	n, err := e.NumberOfStores(ctx)
	if err != nil {
		return core.Batch{}, err
	}
	log := logging.WithFields(ctx, "source", "stores_api")

	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultStoreConcurrency
	}

	stores := make([]core.Record, n)
	var (
		mu  sync.Mutex
		end = n
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range n {
		g.Go(func() error {
			rec, err := e.fetchStore(gctx, i)
			switch {
			case err == nil:
				stores[i] = rec
			case IsNotFound(err):
				mu.Lock()
				end = min(end, i)
				mu.Unlock()
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				log.Warn("store skipped", "store_number", i, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Batch{}, fmt.Errorf("fetch stores: %w", err)
	}

	batch := core.NewBatch()
	for _, rec := range stores[:end] {
		if rec != nil {
			batch.Append(rec)
		}
	}
	log.Info("stores fetched", "expected", n, "fetched", batch.Len())
	return batch, nil
}

func (e *StoreAPIExtractor) fetchStore(ctx context.Context, n int) (core.Record, error) {
	data, err := fetch(ctx, e.Client, e.StoreURL(n), e.header())
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("store %d: decode: %w", n, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("store %d: empty body", n)
	}
	return flattenRecord(obj), nil
}

// flattenRecord keeps scalar JSON values and encodes nested ones as text.
func flattenRecord(m map[string]any) core.Record {
	rec := make(core.Record, len(m))
	for k, v := range m {
		rec[k] = scalar(v)
	}
	return rec
}
