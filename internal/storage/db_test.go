package storage

import (
	"context"
	"path/filepath"
	"testing"

	"listingmatch/internal"
)

func sp(v string) *string { return &v }

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReplaceProductsKeepsOrder(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	products := []*internal.Product{
		{ProductName: "Sony_DSC-W310", Manufacturer: "Sony", Family: sp("Cyber-shot"), Model: "DSC-W310", AnnouncedDate: "2010-01-06T19:00:00.000-05:00"},
		{ProductName: "Canon_IXUS_300_HS", Manufacturer: "Canon", Family: sp("IXUS"), Model: "300 HS"},
		{ProductName: "Nikon_D90", Manufacturer: "Nikon", Model: "D90"},
		{ProductName: "Sony_DSC-W310", Manufacturer: "Sony", Model: "duplicate"},
	}
	if err := db.ReplaceProducts(ctx, products); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].ProductName != "Sony_DSC-W310" || got[0].Model != "DSC-W310" {
		t.Fatalf("first product wrong: %+v", got[0])
	}
	if got[2].Family != nil {
		t.Fatalf("family should be nil, got %q", *got[2].Family)
	}
	if got[3].ProductName != "Sony_DSC-W310" || got[3].Model != "duplicate" {
		t.Fatalf("repeated product name not kept: %+v", got[3])
	}

	if err := db.ReplaceProducts(ctx, products[2:3]); err != nil {
		t.Fatal(err)
	}
	got, err = db.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ProductName != "Nikon_D90" {
		t.Fatalf("replace did not swap catalogue: %+v", got)
	}
}

func TestInsertRunAndExportRows(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	if err := db.ReplaceProducts(ctx, []*internal.Product{
		{ProductName: "Canon_PowerShot_SX130_IS", Manufacturer: "Canon", Family: sp("PowerShot"), Model: "SX130 IS"},
	}); err != nil {
		t.Fatal(err)
	}

	l1 := &internal.Listing{Title: "Canon SX130IS", Manufacturer: "Canon", Currency: "USD", Price: "199.99"}
	l2 := &internal.Listing{Title: "Nikon D90 body", Manufacturer: "Nikon", Currency: "USD", Price: "599.00"}
	l3 := &internal.Listing{Title: "Canon PowerShot SX130 IS", Manufacturer: "Canon Canada", Currency: "CAD", Price: "209.00"}

	result := internal.NewMatchResult()
	result.Append("Nikon_D90", l2)
	result.Append("Canon_PowerShot_SX130_IS", l1)
	result.Append("Canon_PowerShot_SX130_IS", l3)

	run := internal.RunRow{
		ID:      "run-1",
		Source:  "listings.txt",
		Counts:  internal.RunCounts{Listings: 3, Matched: 3, Kept: 3, Products: 2},
		Timings: map[string]float64{"totalMs": 12},
	}
	if err := db.InsertRun(ctx, run, result, map[*internal.Listing]int{l1: 0, l2: 1, l3: 2}); err != nil {
		t.Fatal(err)
	}

	stored, err := db.MustRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Counts.Matched != 3 || stored.Timings["totalMs"] != 12 {
		t.Fatalf("unexpected run: %+v", stored)
	}

	rows, err := db.GetExportRows(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0].ProductName != "Nikon_D90" || rows[0].Manufacturer != "" {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].ListingSeq != 0 || rows[2].ListingSeq != 2 || rows[2].Currency != "CAD" {
		t.Fatalf("rows out of order: %+v", rows)
	}
	if rows[1].Family == nil || *rows[1].Family != "PowerShot" {
		t.Fatalf("family not joined: %+v", rows[1])
	}

	if _, err := db.MustRun(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing run")
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].Counts.Products != 2 {
		t.Fatalf("runs=%+v", runs)
	}
}

func TestMetadata(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	v, err := db.GetMetadata(ctx, "catalog.last_load")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil, got %q", *v)
	}
	if err := db.SetMetadata(ctx, "catalog.last_load", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata(ctx, "catalog.last_load", "b"); err != nil {
		t.Fatal(err)
	}
	v, err = db.GetMetadata(ctx, "catalog.last_load")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "b" {
		t.Fatalf("got %v", v)
	}
}
