//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Creates sample gzipped coupon CSV files for COUPON_IMPORT_FILES.
// SAVE10 appears in both files; the row in the later file wins on import.
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	nextYear := time.Now().AddDate(1, 0, 0).Format(time.DateOnly)
	lastYear := time.Now().AddDate(-1, 0, 0).Format(time.DateOnly)

	files := map[string][][]string{
		"coupons-base.csv.gz": {
			{"SAVE10", nextYear, "10"},
			{"SAVE15", nextYear, "15"},
			{"EXPIRED20", lastYear, "20"},
		},
		"coupons-seasonal.csv.gz": {
			{"SAVE10", nextYear, "12.5"},
			{"SUMMER25", nextYear, "25"},
			{"BROKEN", nextYear, "not-a-number"},
		},
	}

	for filename, rows := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createCouponFile(filePath, rows); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d rows\n", filePath, len(rows))
	}

	fmt.Println("\nSet COUPON_IMPORT_FILES=data/coupons/coupons-base.csv.gz,data/coupons/coupons-seasonal.csv.gz")
	fmt.Println("BROKEN is skipped on import and EXPIRED20 is stored but cannot be applied.")
}

func createCouponFile(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	w := csv.NewWriter(gzipWriter)
	if err := w.Write([]string{"name", "expire", "discount"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write coupons: %w", err)
	}

	return nil
}
