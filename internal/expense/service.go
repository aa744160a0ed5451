package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spendsheet/internal/llm"
	"spendsheet/internal/sheetstore"
)

// Store is the slice of the spreadsheet adapter the pipeline needs.
// Implemented by *sheetstore.Client; faked in tests.
type Store interface {
	Read(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	Append(ctx context.Context, spreadsheetID, appendRange string, rows [][]interface{}) error
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
	MergeCells(ctx context.Context, spreadsheetID string, sheetID, startRow, endRow, startCol, endCol int64) error
}

// Archiver keeps an immutable copy of scanned receipt images. Optional.
type Archiver interface {
	Save(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Service wires the store and the completion client into the exposed
// operations. It holds no per-request state: every operation re-reads the
// sheet, which is what makes duplicate detection and append positioning
// survive process restarts (though not true concurrent writers).
type Service struct {
	store   Store
	llm     llm.Completer
	archive Archiver // nil when archival is not configured
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates the expense service. archive may be nil.
func NewService(store Store, completer llm.Completer, archive Archiver, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		llm:     completer,
		archive: archive,
		now:     time.Now,
		log:     log,
	}
}

const (
	transactionsRange       = sheetstore.TransactionsSheet + "!A2:E"
	transactionsAppendRange = sheetstore.TransactionsSheet + "!A:E"
	chatRange               = "'" + sheetstore.ChatSheet + "'!A2:C"
	chatAppendRange         = "'" + sheetstore.ChatSheet + "'!A:C"
)

// AppendChatEntry appends one chat message row. Chat history is
// append-only with no grouping semantics.
func (s *Service) AppendChatEntry(ctx context.Context, spreadsheetID, role, message string) error {
	row := []interface{}{role, message, s.now().Format(time.RFC3339)}
	if err := s.store.Append(ctx, spreadsheetID, chatAppendRange, [][]interface{}{row}); err != nil {
		return fmt.Errorf("AppendChatEntry: %w", err)
	}
	return nil
}

// ReadChatHistory returns all persisted chat messages in sheet order.
func (s *Service) ReadChatHistory(ctx context.Context, spreadsheetID string) ([]ChatEntry, error) {
	rows, err := s.store.Read(ctx, spreadsheetID, chatRange)
	if err != nil {
		return nil, fmt.Errorf("ReadChatHistory: %w", err)
	}

	entries := make([]ChatEntry, 0, len(rows))
	for _, row := range rows {
		entry := ChatEntry{
			Role:      cellString(row, 0),
			Message:   cellString(row, 1),
			Timestamp: cellString(row, 2),
		}
		if entry.Role == "" && entry.Message == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
