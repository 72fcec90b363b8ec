// Command etl runs the sales data pipeline once and exits.
//
// Usage:
//
//	etl                         run every entity
//	etl -entities users,cards   run only the named entities
//	etl -list-tables            print the tables in the source database
//	etl -list                   print the registered entities
//
// The exit status is 1 when any entity fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/salesetl/internal/config"
	"github.com/JonMunkholm/salesetl/internal/core"
	_ "github.com/JonMunkholm/salesetl/internal/core/entities" // Register all entities
	"github.com/JonMunkholm/salesetl/internal/extract"
	"github.com/JonMunkholm/salesetl/internal/logging"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
	"github.com/JonMunkholm/salesetl/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	only := flag.String("entities", "", "comma-separated entity keys to run (default: all)")
	listTables := flag.Bool("list-tables", false, "list source database tables and exit")
	listEntities := flag.Bool("list", false, "list registered entities and exit")
	flag.Parse()

	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	if *listEntities {
		printEntities()
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listTables {
		return printTables(ctx, cfg)
	}

	svc, res, err := service.Build(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer res.Close()

	report, err := svc.Run(ctx, splitList(*only)...)
	if err != nil {
		slog.Error("run failed", "error", err)
		return 1
	}

	printReport(report)
	if !report.OK() {
		return 1
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printEntities() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTABLE\tSNAPSHOT")
	for _, def := range core.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Info.Key, def.Info.Table, def.Info.Snapshot)
	}
	tw.Flush()
}

func printTables(ctx context.Context, cfg *config.Config) int {
	dbURL, err := cfg.Source.ResolveURL()
	if err != nil {
		slog.Error("failed to resolve source database", "error", err)
		return 1
	}
	if dbURL == "" {
		slog.Error("no source database configured; set SOURCE_DATABASE_URL or SOURCE_CREDS_FILE")
		return 1
	}

	pool, err := service.OpenPool(ctx, dbURL, cfg.Warehouse.MaxConns, cfg.Warehouse.MinConns)
	if err != nil {
		slog.Error("failed to connect to source database", "error", err)
		return 1
	}
	defer pool.Close()

	tables, err := extract.ListTables(ctx, pool)
	if err != nil {
		slog.Error("failed to list tables", "error", err)
		return 1
	}
	for _, t := range tables {
		fmt.Println(t)
	}
	return 0
}

func printReport(r pipeline.RunReport) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTABLE\tIN\tOUT\tLOADED\tDROPPED\tSTATUS")
	for _, res := range r.Results {
		status := "ok"
		if !res.OK() {
			status = res.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			res.Entity, res.Table, res.RowsIn, res.RowsOut, res.Loaded, res.DroppedTotal(), status)
	}
	tw.Flush()
	fmt.Printf("run %s finished in %s\n", r.ID, r.Duration().Round(time.Millisecond))
}
