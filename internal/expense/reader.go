package expense

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReadTransactions reads all stored rows and reconstructs transaction
// groupings, undoing the merged-cell representation.
func (s *Service) ReadTransactions(ctx context.Context, spreadsheetID string) ([]Transaction, error) {
	rows, err := s.store.Read(ctx, spreadsheetID, transactionsRange)
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: %w", err)
	}
	return parseTransactions(rows), nil
}

// parseTransactions folds over the raw rows with carry-forward merchant
// and date. A populated merchant cell starts a new transaction; blank
// merchant/date cells continue the previous one (merged cells read back
// blank below their first row). Rows missing merchant, date or item after
// substitution are skipped, tolerating blanks and hand-edited data.
func parseTransactions(rows [][]interface{}) []Transaction {
	var (
		txs      []Transaction
		merchant string
		date     string
		startNew bool
	)

	for _, row := range rows {
		if m := cellString(row, 0); m != "" {
			merchant = m
			startNew = true
		}
		if d := cellString(row, 1); d != "" {
			date = d
		}

		item := cellString(row, 3)
		if merchant == "" || date == "" || item == "" {
			continue
		}

		if startNew || len(txs) == 0 {
			txs = append(txs, Transaction{Merchant: merchant, Date: date})
			startNew = false
		}

		last := &txs[len(txs)-1]
		last.Items = append(last.Items, LineItem{
			Merchant: merchant,
			Date:     date,
			Category: cellString(row, 2),
			Item:     item,
			Cost:     parseCost(cellString(row, 4)),
		})
	}

	return txs
}

// cellString returns the cell at index i as a trimmed string, tolerating
// short rows and non-string cell values.
func cellString(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[i]))
}

// parseCost converts a formatted cost cell ("$1,234.56", "£12.00") to a
// number, defaulting to 0 rather than failing on junk.
func parseCost(s string) float64 {
	cleaned := strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// normalizeDate maps the two date forms that occur in the sheet —
// YYYY-MM-DD (extraction output) and M/D/YYYY (how Sheets echoes date
// cells) — onto YYYY-MM-DD. Other forms are returned unchanged so exact
// string comparison still applies to them.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("1/2/2006", s); err == nil {
		return t.Format("2006-01-02")
	}
	return s
}

// sheetDate converts a normalized YYYY-MM-DD string into the M/D/YYYY form
// the append path writes, which USER_ENTERED input reliably parses as a
// genuine date cell. Strings that do not parse pass through unchanged.
func sheetDate(s string) string {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err == nil {
		return t.Format("1/2/2006")
	}
	return s
}
