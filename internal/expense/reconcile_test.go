package expense

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGroupItemsPreservesOrder(t *testing.T) {
	items := []LineItem{
		{Merchant: "Acme", Date: "2024-03-01", Item: "A", Cost: 1},
		{Merchant: "Bravo", Date: "2024-03-02", Item: "B", Cost: 2},
		{Merchant: "Acme", Date: "2024-03-01", Item: "C", Cost: 3},
		{Merchant: "Acme", Date: "2024-03-02", Item: "D", Cost: 4},
	}

	groups := groupItems(items)
	if len(groups) != 3 {
		t.Fatalf("groupItems produced %d groups, want 3", len(groups))
	}
	if groups[0].Merchant != "Acme" || groups[0].Date != "2024-03-01" {
		t.Errorf("group 0 = %s/%s, want Acme/2024-03-01", groups[0].Merchant, groups[0].Date)
	}
	if got := []string{groups[0].Items[0].Item, groups[0].Items[1].Item}; !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("group 0 items = %v, want [A C]", got)
	}
	if groups[1].Merchant != "Bravo" {
		t.Errorf("group 1 merchant = %s, want Bravo", groups[1].Merchant)
	}
	if groups[2].Date != "2024-03-02" || groups[2].Merchant != "Acme" {
		t.Errorf("group 2 = %s/%s, want Acme/2024-03-02", groups[2].Merchant, groups[2].Date)
	}
}

func TestIsDuplicateToleranceBoundary(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		new      string
		want     bool
	}{
		{"exact match", "100.00", "100.00", true},
		{"5 percent delta is duplicate", "100.00", "105.00", true},
		{"6 percent delta is not", "100.00", "106.00", false},
		{"within dollar floor", "10.00", "10.99", true},
		{"just past dollar floor", "10.00", "11.01", false},
		{"floor applies on small totals", "2.00", "3.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := decimal.RequireFromString(tt.existing)
			newTotal := decimal.RequireFromString(tt.new)
			if got := isDuplicate(newTotal, existing); got != tt.want {
				t.Errorf("isDuplicate(%s, %s) = %v, want %v", tt.new, tt.existing, got, tt.want)
			}
		})
	}
}

// existingAcmeRows is a stored representation of one Acme transaction on
// 2024-03-01 totaling 100.00, in the sheet's M/D/YYYY date form with a
// merged (blank) continuation row.
func existingAcmeRows() [][]interface{} {
	return [][]interface{}{
		{"Acme", "3/1/2024", "Misc", "Thing one", "60.00"},
		{"", "", "Misc", "Thing two", "$40.00"},
	}
}

func TestAppendDuplicateAbortsEverything(t *testing.T) {
	appendCalled := false
	store := &fakeStore{
		ReadFunc: func(ctx context.Context, id, rng string) ([][]interface{}, error) {
			return existingAcmeRows(), nil
		},
		AppendFunc: func(ctx context.Context, id, rng string, rows [][]interface{}) error {
			appendCalled = true
			return nil
		},
	}
	svc := newTestService(store, &fakeCompleter{}, nil)

	// First group duplicates the stored Acme transaction (within 5%);
	// second group is novel. Nothing at all may be written.
	items := []LineItem{
		{Merchant: "acme", Date: "2024-03-01", Category: "Misc", Item: "Thing one again", Cost: 105.00},
		{Merchant: "Fresh Mart", Date: "2024-03-02", Category: "Groceries", Item: "Apples", Cost: 5.00},
	}

	_, err := svc.Append(context.Background(), "sheet-id", items)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Append = %v, want ErrDuplicate", err)
	}
	if appendCalled {
		t.Fatal("Append wrote rows despite a duplicate in the batch")
	}
}

func TestAppendNearMissIsNotDuplicate(t *testing.T) {
	store := &fakeStore{
		ReadFunc: func(ctx context.Context, id, rng string) ([][]interface{}, error) {
			return existingAcmeRows(), nil
		},
	}
	svc := newTestService(store, &fakeCompleter{}, nil)

	items := []LineItem{
		{Merchant: "Acme", Date: "2024-03-01", Category: "Misc", Item: "Bigger thing", Cost: 106.00},
	}

	res, err := svc.Append(context.Background(), "sheet-id", items)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if res.RowsAdded != 1 || res.TransactionsAdded != 1 {
		t.Errorf("Append result = %+v, want 1 row / 1 transaction", res)
	}
}

func TestAppendRowLayoutAndMerges(t *testing.T) {
	var gotRows [][]interface{}
	type merge struct{ startRow, endRow, startCol, endCol int64 }
	var merges []merge

	store := &fakeStore{
		ReadFunc: func(ctx context.Context, id, rng string) ([][]interface{}, error) {
			return existingAcmeRows(), nil // 2 existing data rows
		},
		AppendFunc: func(ctx context.Context, id, rng string, rows [][]interface{}) error {
			gotRows = rows
			return nil
		},
		SheetIDFunc: func(ctx context.Context, id, title string) (int64, error) {
			return 77, nil
		},
		MergeCellsFunc: func(ctx context.Context, id string, sheetID, startRow, endRow, startCol, endCol int64) error {
			if sheetID != 77 {
				t.Errorf("merge on sheet %d, want 77", sheetID)
			}
			merges = append(merges, merge{startRow, endRow, startCol, endCol})
			return nil
		},
	}
	svc := newTestService(store, &fakeCompleter{}, nil)

	items := []LineItem{
		{Merchant: "Fresh Mart", Date: "2024-03-02", Category: "Groceries", Item: "Apples", Cost: 5.25},
		{Merchant: "Fresh Mart", Date: "2024-03-02", Category: "Groceries", Item: "Bananas", Cost: 2.10},
		{Merchant: "Gasoline Co", Date: "2024-03-03", Category: "Transport", Item: "Fuel", Cost: 40.00},
	}

	res, err := svc.Append(context.Background(), "sheet-id", items)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if res.RowsAdded != 3 || res.TransactionsAdded != 2 {
		t.Fatalf("Append result = %+v, want 3 rows / 2 transactions", res)
	}

	want := [][]interface{}{
		{"Fresh Mart", "3/2/2024", "Groceries", "Apples", 5.25},
		{"", "", "Groceries", "Bananas", 2.10},
		{"Gasoline Co", "3/3/2024", "Transport", "Fuel", 40.00},
	}
	if !reflect.DeepEqual(gotRows, want) {
		t.Errorf("appended rows:\n%v\nwant:\n%v", gotRows, want)
	}

	// Two existing data rows put the first new row at zero-based index 3.
	// Only the two-item group gets merges: merchant column and date column.
	wantMerges := []merge{
		{3, 5, 0, 1},
		{3, 5, 1, 2},
	}
	if !reflect.DeepEqual(merges, wantMerges) {
		t.Errorf("merges = %v, want %v", merges, wantMerges)
	}
}

func TestAppendMergeFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{
		SheetIDFunc: func(ctx context.Context, id, title string) (int64, error) {
			return 0, errors.New("metadata unavailable")
		},
	}
	svc := newTestService(store, &fakeCompleter{}, nil)

	items := []LineItem{
		{Merchant: "Fresh Mart", Date: "2024-03-02", Category: "Groceries", Item: "Apples", Cost: 5.25},
		{Merchant: "Fresh Mart", Date: "2024-03-02", Category: "Groceries", Item: "Bananas", Cost: 2.10},
	}

	res, err := svc.Append(context.Background(), "sheet-id", items)
	if err != nil {
		t.Fatalf("Append failed on merge error: %v", err)
	}
	if res.RowsAdded != 2 {
		t.Errorf("Append result = %+v, want 2 rows", res)
	}
}

func TestAppendReadFailurePropagates(t *testing.T) {
	store := &fakeStore{
		ReadFunc: func(ctx context.Context, id, rng string) ([][]interface{}, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newTestService(store, &fakeCompleter{}, nil)

	_, err := svc.Append(context.Background(), "sheet-id", []LineItem{
		{Merchant: "A", Date: "2024-03-01", Category: "C", Item: "I", Cost: 1},
	})
	if err == nil {
		t.Fatal("Append succeeded despite read failure")
	}
}

func TestAppendEmptyItems(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeCompleter{}, nil)
	if _, err := svc.Append(context.Background(), "sheet-id", nil); !errors.Is(err, ErrNoInput) {
		t.Fatalf("Append(nil) = %v, want ErrNoInput", err)
	}
}

// Both stored date forms must match a new YYYY-MM-DD transaction.
func TestDuplicateAcrossDateForms(t *testing.T) {
	tests := []struct {
		name       string
		storedDate string
	}{
		{"stored as M/D/YYYY", "3/1/2024"},
		{"stored as YYYY-MM-DD", "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				ReadFunc: func(ctx context.Context, id, rng string) ([][]interface{}, error) {
					return [][]interface{}{
						{"Acme", tt.storedDate, "Misc", "Thing", "100.00"},
					}, nil
				},
			}
			svc := newTestService(store, &fakeCompleter{}, nil)

			_, err := svc.Append(context.Background(), "sheet-id", []LineItem{
				{Merchant: "ACME", Date: "2024-03-01", Category: "Misc", Item: "Thing", Cost: 100.00},
			})
			if !errors.Is(err, ErrDuplicate) {
				t.Fatalf("Append = %v, want ErrDuplicate", err)
			}
		})
	}
}
