package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"listingmatch/internal"
	"listingmatch/internal/catalog"
	"listingmatch/internal/config"
	"listingmatch/internal/feed"
	"listingmatch/internal/listener"
	"listingmatch/internal/pipeline"
	"listingmatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()
	loader := feed.NewLoader(cfg, logger)

	cmd := os.Args[1]
	switch cmd {
	case "catalog:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		products := fs.String("products", "", "products feed path or URL")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--products", *products))
		svc := catalog.NewSyncService(db, loader, logger)
		count, err := svc.Load(ctx, *products)
		must(err)
		fmt.Printf("catalogue loaded: %d products indexed\n", count)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		listingsSrc := fs.String("listings", "", "listings feed path or URL")
		productsSrc := fs.String("products", "", "products feed path or URL (default: stored catalogue)")
		output := fs.String("output", "", "results JSONL path (default: stdout)")
		xlsxOut := fs.String("xlsx", "", "optional xlsx report path")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--listings", *listingsSrc))

		var products []*internal.Product
		if strings.TrimSpace(*productsSrc) != "" {
			products, err = loader.Products(ctx, *productsSrc)
		} else {
			products, err = catalog.NewSyncService(db, loader, logger).Stored(ctx)
		}
		must(err)
		listings, err := loader.Listings(ctx, *listingsSrc)
		must(err)

		res, err := pipeline.NewRunService(db, cfg, logger).Run(ctx, *listingsSrc, products, listings)
		must(err)

		if strings.TrimSpace(*output) == "" {
			must(pipeline.WriteJSONL(os.Stdout, res.Groups()))
		} else {
			must(pipeline.WriteJSONLFile(res.Groups(), *output))
		}
		if strings.TrimSpace(*xlsxOut) != "" {
			rows := pipeline.ExportRows(res, products, listings)
			must(pipeline.ExportRowsToXLSX(rows, &res.Counts, *xlsxOut))
		}
		fmt.Fprintf(os.Stderr, "run done id=%s listings=%d matched=%d kept=%d products=%d\n",
			res.RunID, res.Counts.Listings, res.Counts.Matched, res.Counts.Kept, res.Counts.Products)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("runId", "", "run id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--runId", *runID))
		must(cfg.Require("--out", *out))
		run, err := db.MustRun(ctx, *runID)
		must(err)
		rows, err := db.GetExportRows(ctx, *runID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for runId=%s", *runID))
		}
		must(pipeline.ExportRowsToXLSX(rows, &run.Counts, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(ctx, *limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s  %s  listings=%d matched=%d kept=%d products=%d  %s\n",
				r.ID, r.CreatedAt, r.Counts.Listings, r.Counts.Matched, r.Counts.Kept, r.Counts.Products, r.Source)
		}
	case "listings:watch":
		svc := listener.NewService(db, cfg, loader, catalog.NewSyncService(db, loader, logger), logger)
		sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(svc.Run(sigCtx))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: listingmatch <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:load --products=./data/products.txt")
	fmt.Println("  run --listings=./data/listings.txt [--products=...] [--output=results.txt] [--xlsx=report.xlsx]")
	fmt.Println("  export:xlsx --runId=... --out=./out/result.xlsx")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  listings:watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
