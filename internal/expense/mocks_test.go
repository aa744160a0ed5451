package expense

import (
	"context"
	"io"
	"time"

	"spendsheet/internal/llm"
	"spendsheet/internal/logger"
)

// fakeStore is a func-field fake of the Store interface. Unset funcs fall
// back to benign defaults.
type fakeStore struct {
	ReadFunc       func(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	AppendFunc     func(ctx context.Context, spreadsheetID, appendRange string, rows [][]interface{}) error
	SheetIDFunc    func(ctx context.Context, spreadsheetID, title string) (int64, error)
	MergeCellsFunc func(ctx context.Context, spreadsheetID string, sheetID, startRow, endRow, startCol, endCol int64) error
}

func (f *fakeStore) Read(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	if f.ReadFunc != nil {
		return f.ReadFunc(ctx, spreadsheetID, readRange)
	}
	return nil, nil
}

func (f *fakeStore) Append(ctx context.Context, spreadsheetID, appendRange string, rows [][]interface{}) error {
	if f.AppendFunc != nil {
		return f.AppendFunc(ctx, spreadsheetID, appendRange, rows)
	}
	return nil
}

func (f *fakeStore) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	if f.SheetIDFunc != nil {
		return f.SheetIDFunc(ctx, spreadsheetID, title)
	}
	return 0, nil
}

func (f *fakeStore) MergeCells(ctx context.Context, spreadsheetID string, sheetID, startRow, endRow, startCol, endCol int64) error {
	if f.MergeCellsFunc != nil {
		return f.MergeCellsFunc(ctx, spreadsheetID, sheetID, startRow, endRow, startCol, endCol)
	}
	return nil
}

// fakeCompleter is a func-field fake of llm.Completer.
type fakeCompleter struct {
	CompleteFunc func(ctx context.Context, req llm.Request) ([]byte, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	if f.CompleteFunc != nil {
		return f.CompleteFunc(ctx, req)
	}
	return []byte(`{}`), nil
}

// fakeArchiver is a func-field fake of Archiver.
type fakeArchiver struct {
	SaveFunc func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (f *fakeArchiver) Save(ctx context.Context, data []byte, mimeType string) (string, error) {
	if f.SaveFunc != nil {
		return f.SaveFunc(ctx, data, mimeType)
	}
	return "gs://bucket/object", nil
}

// newTestService builds a Service around the given fakes with a fixed
// clock, so default dates in prompts are deterministic.
func newTestService(store *fakeStore, completer *fakeCompleter, archive Archiver) *Service {
	s := NewService(store, completer, archive, logger.NewWithWriter(io.Discard))
	s.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return s
}
