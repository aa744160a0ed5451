package expense

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendsheet/internal/sheetstore"
)

// dupKey identifies a transaction for duplicate detection: lowercased
// merchant plus the date normalized to YYYY-MM-DD.
type dupKey struct {
	merchant string
	date     string
}

func keyFor(merchant, date string) dupKey {
	return dupKey{
		merchant: strings.ToLower(strings.TrimSpace(merchant)),
		date:     normalizeDate(date),
	}
}

// tolerancePct and toleranceFloor define the duplicate rule: a new
// transaction is a duplicate of an existing one with the same key when the
// totals differ by at most 5% of the new total or one currency unit,
// whichever is larger. The rule is a known-imperfect heuristic kept for
// compatibility; do not tighten it without product direction.
var (
	tolerancePct   = decimal.NewFromFloat(0.05)
	toleranceFloor = decimal.NewFromInt(1)
)

func isDuplicate(newTotal, existingTotal decimal.Decimal) bool {
	tolerance := decimal.Max(newTotal.Mul(tolerancePct), toleranceFloor)
	return newTotal.Sub(existingTotal).Abs().LessThanOrEqual(tolerance)
}

// Append groups the line items into transactions, checks every group
// against the sheet's current contents for duplicates, and only then
// writes all rows in one batched append followed by best-effort merges.
// A duplicate anywhere aborts the whole call before anything is written.
func (s *Service) Append(ctx context.Context, spreadsheetID string, items []LineItem) (AppendResult, error) {
	if len(items) == 0 {
		return AppendResult{}, fmt.Errorf("Append: %w", ErrNoInput)
	}

	// Re-read the sheet on every call. No cross-call caching: staleness
	// would silently break duplicate detection after out-of-band edits.
	existingRows, err := s.store.Read(ctx, spreadsheetID, transactionsRange)
	if err != nil {
		return AppendResult{}, fmt.Errorf("Append: reading existing rows: %w", err)
	}

	groups := groupItems(items)

	existingTotals := existingTransactionTotals(existingRows)
	for _, g := range groups {
		newTotal := groupTotal(g)
		if existingTotal, ok := existingTotals[keyFor(g.Merchant, g.Date)]; ok && isDuplicate(newTotal, existingTotal) {
			s.log.Warn().
				Str("merchant", g.Merchant).
				Str("date", g.Date).
				Str("total", newTotal.StringFixed(2)).
				Msg("Duplicate transaction detected, aborting append")
			return AppendResult{}, fmt.Errorf("Append: %s on %s: %w", g.Merchant, g.Date, ErrDuplicate)
		}
	}

	rows, spans := buildRows(groups, len(existingRows))

	if err := s.store.Append(ctx, spreadsheetID, transactionsAppendRange, rows); err != nil {
		return AppendResult{}, fmt.Errorf("Append: writing rows: %w", err)
	}

	// Merging is a visual enhancement only. The rows are already written;
	// a merge failure degrades presentation, never the data.
	s.mergeGroupSpans(ctx, spreadsheetID, spans)

	s.log.Info().
		Int("rows", len(rows)).
		Int("transactions", len(groups)).
		Msg("Transactions appended")

	return AppendResult{RowsAdded: len(rows), TransactionsAdded: len(groups)}, nil
}

// groupItems partitions line items into transactions keyed by the exact
// (merchant, date) string pair, preserving first-seen order of distinct
// keys and within-group insertion order.
func groupItems(items []LineItem) []Transaction {
	type exactKey struct{ merchant, date string }

	var order []exactKey
	byKey := make(map[exactKey]*Transaction)

	for _, it := range items {
		k := exactKey{it.Merchant, it.Date}
		g, ok := byKey[k]
		if !ok {
			order = append(order, k)
			byKey[k] = &Transaction{Merchant: it.Merchant, Date: it.Date, Items: []LineItem{it}}
			continue
		}
		g.Items = append(g.Items, it)
	}

	groups := make([]Transaction, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byKey[k])
	}
	return groups
}

// existingTransactionTotals reconstructs the sheet's transactions with the
// same carry-forward rule the reader uses and sums their costs per
// duplicate key.
func existingTransactionTotals(rows [][]interface{}) map[dupKey]decimal.Decimal {
	totals := make(map[dupKey]decimal.Decimal)
	for _, tx := range parseTransactions(rows) {
		k := keyFor(tx.Merchant, tx.Date)
		totals[k] = totals[k].Add(groupTotal(tx))
	}
	return totals
}

func groupTotal(tx Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, it := range tx.Items {
		total = total.Add(decimal.NewFromFloat(it.Cost))
	}
	return total
}

// rowSpan records where a group landed in the sheet, for merging.
// startRow is zero-based and includes the header row offset.
type rowSpan struct {
	startRow int64
	length   int64
}

// buildRows emits one sheet row per line item, group by group. Only a
// group's first row carries merchant and date; continuation rows leave
// them blank for the later merge. existingCount is the number of data
// rows already below the header, which fixes each group's start position
// because the append lands directly after existing data.
func buildRows(groups []Transaction, existingCount int) ([][]interface{}, []rowSpan) {
	var rows [][]interface{}
	spans := make([]rowSpan, 0, len(groups))

	// First data row is sheet row 2, zero-based index 1.
	next := int64(existingCount) + 1

	for _, g := range groups {
		spans = append(spans, rowSpan{startRow: next, length: int64(len(g.Items))})
		for i, it := range g.Items {
			merchant, date := "", ""
			if i == 0 {
				merchant = g.Merchant
				date = sheetDate(g.Date)
			}
			rows = append(rows, []interface{}{merchant, date, it.Category, it.Item, it.Cost})
		}
		next += int64(len(g.Items))
	}

	return rows, spans
}

// mergeGroupSpans merges the Merchant and Date columns across every
// multi-row group. Failures are logged and swallowed.
func (s *Service) mergeGroupSpans(ctx context.Context, spreadsheetID string, spans []rowSpan) {
	var needed bool
	for _, sp := range spans {
		if sp.length > 1 {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	sheetID, err := s.store.SheetID(ctx, spreadsheetID, sheetstore.TransactionsSheet)
	if err != nil {
		s.log.Warn().Err(err).Msg("Cannot resolve sheet ID, skipping cell merges")
		return
	}

	for _, sp := range spans {
		if sp.length < 2 {
			continue
		}
		// Merchant column, then Date column, over the same row span.
		for col := int64(0); col <= 1; col++ {
			if err := s.store.MergeCells(ctx, spreadsheetID, sheetID, sp.startRow, sp.startRow+sp.length, col, col+1); err != nil {
				s.log.Warn().Err(err).Int64("row", sp.startRow).Int64("col", col).Msg("Cell merge failed")
			}
		}
	}
}
