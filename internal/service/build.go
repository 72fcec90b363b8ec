package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/salesetl/internal/config"
	"github.com/JonMunkholm/salesetl/internal/core/entities"
	"github.com/JonMunkholm/salesetl/internal/extract"
	"github.com/JonMunkholm/salesetl/internal/load"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
)

// Sources are the clients extractors read through. An entity whose source
// client is nil gets no extractor and fails at the extract stage.
type Sources struct {
	DB   extract.Querier
	HTTP *http.Client
	S3   extract.ObjectGetter
}

// Steps returns one step per entity, in pipeline order.
func Steps(cfg config.SourceConfig, src Sources) []pipeline.Step {
	var users, orders, products extract.Extractor
	if src.DB != nil {
		users = &extract.TableExtractor{DB: src.DB, Table: cfg.UsersTable}
		orders = &extract.TableExtractor{DB: src.DB, Table: cfg.OrdersTable}
	}
	if src.S3 != nil {
		products = &extract.S3CSVExtractor{Address: cfg.ProductsS3Address, Client: src.S3}
	}

	return []pipeline.Step{
		{Entity: entities.Users, Extractor: users},
		{Entity: entities.Cards, Extractor: &extract.PDFExtractor{URL: cfg.CardPDFURL, Client: src.HTTP}},
		{Entity: entities.Stores, Extractor: &extract.StoreAPIExtractor{
			CountURL:         cfg.StoresCountURL,
			StoreURLTemplate: cfg.StoreURLTemplate,
			APIKey:           cfg.StoresAPIKey,
			Client:           src.HTTP,
			Concurrency:      cfg.StoresConcurrency,
		}},
		{Entity: entities.Products, Extractor: products},
		{Entity: entities.Orders, Extractor: orders},
		{Entity: entities.DateTimes, Extractor: &extract.JSONFeedExtractor{URL: cfg.DateEventsURL, Client: src.HTTP}},
	}
}

// OpenPool connects a pgx pool to dbURL and verifies it with a ping.
func OpenPool(ctx context.Context, dbURL string, maxConns, minConns int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// databaseName returns the database path of a connection URL for logging.
func databaseName(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Resources are the connections opened by Build.
type Resources struct {
	Source    *pgxpool.Pool
	Warehouse load.Loader
	closers   []func()
}

// Close releases every connection in reverse order of opening.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// OpenWarehouse opens the configured destination.
func OpenWarehouse(ctx context.Context, cfg config.WarehouseConfig) (load.Loader, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		db, err := load.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return &load.SQLiteLoader{DB: db}, func() { db.Close() }, nil

	case "postgres":
		dbURL, err := cfg.ResolveURL()
		if err != nil {
			return nil, nil, err
		}
		if dbURL == "" {
			return nil, nil, fmt.Errorf("warehouse: no database URL configured")
		}
		pool, err := OpenPool(ctx, dbURL, cfg.MaxConns, cfg.MinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("warehouse: %w", err)
		}
		return &load.PostgresLoader{DB: pool}, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("warehouse: unknown driver %q", cfg.Driver)
	}
}

// Build opens sources and the warehouse described by cfg and returns a
// service over them. Callers must Close the returned resources.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Service, *Resources, error) {
	res := &Resources{}
	fail := func(err error) (*Service, *Resources, error) {
		res.Close()
		return nil, nil, err
	}

	src := Sources{HTTP: extract.NewHTTPClient(cfg.Source.HTTPTimeout)}

	srcURL, err := cfg.Source.ResolveURL()
	if err != nil {
		return fail(err)
	}
	if srcURL != "" {
		pool, err := OpenPool(ctx, srcURL, cfg.Warehouse.MaxConns, cfg.Warehouse.MinConns)
		if err != nil {
			return fail(fmt.Errorf("source: %w", err))
		}
		res.Source = pool
		res.closers = append(res.closers, pool.Close)
		src.DB = pool
		log.Info("connected to source database", "name", databaseName(srcURL))
	} else {
		log.Warn("no source database configured; users and orders will fail")
	}

	s3Client, err := extract.NewS3Client(ctx, cfg.Source.AWSRegion, cfg.Source.AWSAnonymous)
	if err != nil {
		return fail(err)
	}
	src.S3 = s3Client

	loader, closeLoader, err := OpenWarehouse(ctx, cfg.Warehouse)
	if err != nil {
		return fail(err)
	}
	res.Warehouse = loader
	res.closers = append(res.closers, closeLoader)
	log.Info("warehouse opened", "driver", cfg.Warehouse.Driver)

	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.Warehouse.SnapshotDir != "" {
		opts = append(opts, pipeline.WithSnapshots(&load.SnapshotWriter{Dir: cfg.Warehouse.SnapshotDir}))
	}
	p := pipeline.New(loader, opts...)

	svc := New(p, Steps(cfg.Source, src), WithLogger(log), WithHistory(cfg.Run.History))
	return svc, res, nil
}
