package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesetl/internal/config"
	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/core/entities"
	"github.com/JonMunkholm/salesetl/internal/extract"
	"github.com/JonMunkholm/salesetl/internal/logging"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
	"github.com/JonMunkholm/salesetl/internal/service"
)

type memLoader struct {
	mu     sync.Mutex
	tables map[string]int
}

func (l *memLoader) Replace(_ context.Context, table string, b core.Batch) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tables == nil {
		l.tables = map[string]int{}
	}
	l.tables[table] = b.Len()
	return int64(b.Len()), nil
}

func productsRaw() core.Batch {
	b := core.NewBatch("EAN", "date_added", "weight")
	b.Append(core.Record{"EAN": "1", "date_added": "2005-12-02", "weight": "1kg"})
	b.Append(core.Record{"EAN": "<b>", "date_added": "bad", "weight": "1kg"})
	return b
}

func newTestServer(t *testing.T, cfg config.ServerConfig, steps ...pipeline.Step) (*Server, *service.Service) {
	t.Helper()
	if len(steps) == 0 {
		steps = []pipeline.Step{
			{Entity: entities.Products, Extractor: extract.Static(productsRaw())},
			{Entity: entities.Orders, Extractor: extract.Func(func(context.Context) (core.Batch, error) {
				return core.Batch{}, errors.New("dial tcp: connection refused")
			})},
		}
	}
	p := pipeline.New(&memLoader{}, pipeline.WithLogger(logging.Discard()))
	svc := service.New(p, steps, service.WithLogger(logging.Discard()))
	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func waitIdle(t *testing.T, svc *service.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Running)
	assert.Equal(t, 1, body.Available)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListEntities(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/api/entities", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []EntityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, entities.Products, body[0].Key)
	assert.Equal(t, "dim_products", body[0].Table)
	assert.Equal(t, "cleaned_product_data.csv", body[0].Snapshot)
	assert.Equal(t, "orders_table", body[1].Table)
}

func TestStartRunAndFetchReport(t *testing.T) {
	srv, svc := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodPost, "/api/runs?entity=products", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started StartRunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))
	require.NotEmpty(t, started.ID)
	assert.Equal(t, "/api/runs/"+started.ID, rec.Header().Get("Location"))

	waitIdle(t, svc)

	rec = do(t, srv, http.MethodGet, started.StatusURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report pipeline.RunReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, started.ID, report.ID)
	require.Len(t, report.Results, 1)
	assert.Equal(t, int64(1), report.Results[0].Loaded)
	assert.Equal(t, 1, report.Results[0].Dropped["invalid_date_and_ean"])
	assert.False(t, report.FinishedAt.IsZero())

	rec = do(t, srv, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []pipeline.RunReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
}

func TestStartRun_FailedEntityIsReported(t *testing.T) {
	srv, svc := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodPost, "/api/runs", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitIdle(t, svc)

	runs := svc.Runs()
	require.Len(t, runs, 1)
	failed := runs[0].Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, entities.Orders, failed[0].Entity)
	assert.Contains(t, failed[0].Error, "connection refused")
}

func TestStartRun_UnknownEntity(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodPost, "/api/runs?entity=products,customers", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RUN002", body.Code)
}

type gate struct {
	started chan struct{}
	release chan struct{}
}

func (g *gate) Extract(context.Context) (core.Batch, error) {
	close(g.started)
	<-g.release
	return productsRaw(), nil
}

func TestStartRun_ConflictWhileRunning(t *testing.T) {
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	srv, svc := newTestServer(t, config.ServerConfig{},
		pipeline.Step{Entity: entities.Products, Extractor: g})

	rec := do(t, srv, http.MethodPost, "/api/runs", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-g.started

	rec = do(t, srv, http.MethodPost, "/api/runs", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RUN001", body.Code)

	rec = do(t, srv, http.MethodGet, "/healthz", nil)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.True(t, health.Running)
	assert.Zero(t, health.Available)

	close(g.release)
	waitIdle(t, svc)
}

func TestGetRun_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/api/runs/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RUN003", body.Code)
}

func TestStartRun_RequiresAPIKey(t *testing.T) {
	srv, svc := newTestServer(t, config.ServerConfig{APIKeys: []string{"k1", "k2"}})

	rec := do(t, srv, http.MethodPost, "/api/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/runs", http.Header{"X-Api-Key": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads do not need a key")

	rec = do(t, srv, http.MethodPost, "/api/runs", http.Header{"X-Api-Key": {"k2"}})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	waitIdle(t, svc)
}

func TestDashboard(t *testing.T) {
	srv, svc := newTestServer(t, config.ServerConfig{})
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<a href="/api/runs/`+report.ID+`">`)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Sales ETL</h1>")
	assert.Contains(t, body, "dim_products")
	assert.Contains(t, body, "products: 1 rows (1 dropped)")
	assert.Contains(t, body, "invalid_date_and_ean=1")
	assert.Contains(t, body, "orders: failed")
	assert.Contains(t, body, "Idle.")
}

func TestDashboard_EscapesErrors(t *testing.T) {
	srv, svc := newTestServer(t, config.ServerConfig{},
		pipeline.Step{Entity: entities.Products, Extractor: extract.Func(func(context.Context) (core.Batch, error) {
			return core.Batch{}, errors.New(`<script>alert("x")</script>`)
		})})
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.True(t, strings.Contains(rec.Body.String(), "&lt;script&gt;"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))
}
