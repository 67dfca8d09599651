package pipeline

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"listingmatch/internal"
	"listingmatch/internal/util"
)

// WriteJSONL writes one {"product_name", "listings"} object per line.
func WriteJSONL(w io.Writer, groups []internal.ProductListings) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, g := range groups {
		if err := enc.Encode(g); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteJSONLFile(groups []internal.ProductListings, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteJSONL(f, groups); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ExportRows flattens a run into report rows, products in output order.
func ExportRows(res RunResult, products []*internal.Product, listings []*internal.Listing) []internal.MatchExportRow {
	byName := make(map[string]*internal.Product, len(products))
	for _, p := range products {
		if _, ok := byName[p.ProductName]; !ok {
			byName[p.ProductName] = p
		}
	}
	seqOf := make(map[*internal.Listing]int, len(listings))
	for i, l := range listings {
		seqOf[l] = i
	}

	rows := make([]internal.MatchExportRow, 0, res.Result.Len())
	for _, name := range res.Result.Order {
		for _, l := range res.Result.Listings[name] {
			row := internal.MatchExportRow{
				ListingSeq:  seqOf[l],
				ProductName: name,
				Title:       l.Title,
				ListingManu: l.Manufacturer,
				Currency:    l.Currency,
				Price:       l.Price,
			}
			if p := byName[name]; p != nil {
				row.Manufacturer = p.Manufacturer
				row.Family = p.Family
				row.Model = p.Model
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func ExportRowsToXLSX(rows []internal.MatchExportRow, counts *internal.RunCounts, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "matches"); err != nil {
		return err
	}
	sheet = "matches"

	headers := []string{
		"listing_seq", "product_name", "manufacturer", "family", "model",
		"title", "listing_manufacturer", "currency", "price",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.ListingSeq)
		set(2, row.ProductName)
		set(3, row.Manufacturer)
		set(4, util.DerefString(row.Family))
		set(5, row.Model)
		set(6, row.Title)
		set(7, row.ListingManu)
		set(8, row.Currency)
		set(9, row.Price)
	}

	if counts != nil {
		if _, err := f.NewSheet("summary"); err != nil {
			return err
		}
		summary := [][]any{
			{"listings", counts.Listings},
			{"matched", counts.Matched},
			{"dropped", counts.Dropped},
			{"outliers_removed", counts.OutliersRemoved},
			{"kept", counts.Kept},
			{"products", counts.Products},
		}
		for i, kv := range summary {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			_ = f.SetSheetRow("summary", cell, &kv)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
