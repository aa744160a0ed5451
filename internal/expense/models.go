// Package expense implements the receipt-to-spreadsheet pipeline: LLM
// extraction of line items, duplicate-aware reconciliation against the
// sheet, merged-cell-aware read-back, and spending Q&A.
package expense

// LineItem is one extracted purchase entry. Date is a normalized
// YYYY-MM-DD string; Cost is always numeric, never a formatted string.
type LineItem struct {
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Item     string  `json:"item"`
	Cost     float64 `json:"cost"`
}

// Transaction is a group of line items sharing merchant and date. In the
// sheet it is a contiguous row span with merchant and date only on the
// first row, visually unified by cell merges.
type Transaction struct {
	Merchant string     `json:"merchant"`
	Date     string     `json:"date"`
	Items    []LineItem `json:"items"`
}

// Total is the summed cost of the transaction's items.
func (t Transaction) Total() float64 {
	var sum float64
	for _, it := range t.Items {
		sum += it.Cost
	}
	return sum
}

// ChatEntry is one persisted chat message.
type ChatEntry struct {
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChartPoint is one datum of a chart the model proposes alongside an
// answer.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Chart is an optional chart spec returned with an insight answer.
type Chart struct {
	Type string       `json:"type"` // "bar" or "line"
	Data []ChartPoint `json:"data"`
}

// Insight is the structured answer to a spending question.
type Insight struct {
	Content          string   `json:"content"`
	Chart            *Chart   `json:"chart,omitempty"`
	SuggestedPrompts []string `json:"suggestedPrompts,omitempty"`
}

// AppendResult reports what an append call wrote.
type AppendResult struct {
	RowsAdded         int `json:"rows_added"`
	TransactionsAdded int `json:"transactions_added"`
}
