// migration/normalize_dates.go
// Rewrites the Date column of the ledger sheets to YYYY-MM-DD.
//
// Rows entered by hand in the spreadsheet end up as day serials (46066) or
// free text (13 Feb 2026). Reads tolerate both, but sorting and filtering in
// the sheet itself only work on one format.

package migration

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

const isoDate = "2006-01-02"

// Result counts what a run did per sheet.
type Result struct {
	Sheet    string `json:"sheet"`
	Migrated int    `json:"migrated"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`
}

// Migrator works on the raw store so that no balance logic runs.
type Migrator struct {
	Store  services.SheetStore
	Retry  services.RetryPolicy
	Loc    *time.Location
	DryRun bool
}

// dateColumn is the position of Date in both ledger schemas.
const dateColumn = 1

// NormalizeDate returns the ISO form of raw and whether it differs.
// Empty and unparseable cells are left alone.
func NormalizeDate(raw string, loc *time.Location) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw, false
	}
	t, err := utils.ParseSheetDate(trimmed, loc)
	if err != nil {
		return raw, false
	}
	iso := t.Format(isoDate)
	return iso, iso != raw
}

// MigrateSheet rewrites one sheet's Date column.
func (m *Migrator) MigrateSheet(ctx context.Context, schema services.Schema) (Result, error) {
	res := Result{Sheet: schema.Sheet}

	var rows [][]interface{}
	err := m.Retry.Do(ctx, "read "+schema.Sheet, func(ctx context.Context) error {
		var err error
		rows, err = m.Store.ReadRange(ctx, schema.Range())
		return err
	})
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", schema.Sheet, err)
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) <= dateColumn {
			res.Skipped++
			continue
		}
		raw := fmt.Sprint(row[dateColumn])
		iso, changed := NormalizeDate(raw, m.Loc)
		if !changed {
			res.Skipped++
			continue
		}
		if m.DryRun {
			utils.SafeDebug("%s row %d: %q -> %s", schema.Sheet, i+1, raw, iso)
			res.Migrated++
			continue
		}

		rng := schema.CellRange(i-1, dateColumn, dateColumn)
		err := m.Retry.Do(ctx, "update "+rng, func(ctx context.Context) error {
			return m.Store.UpdateRange(ctx, rng, [][]interface{}{{iso}})
		})
		if err != nil {
			if services.IsAuthError(err) {
				return res, err
			}
			log.Printf("  ❌ %s row %d: %v", schema.Sheet, i+1, err)
			res.Errors++
			continue
		}
		res.Migrated++
	}
	return res, nil
}

// MigrateAll runs over Transactions and Inter_Partner_Transfers.
func (m *Migrator) MigrateAll(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, schema := range []services.Schema{services.TransactionsSchema, services.TransfersSchema} {
		log.Printf("📦 Sheet: %s", schema.Sheet)
		res, err := m.MigrateSheet(ctx, schema)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		log.Printf("📊 %s: %d migrated, %d skipped, %d errors", schema.Sheet, res.Migrated, res.Skipped, res.Errors)
	}
	return results, nil
}
