// Package sheetstore adapts a user-owned Google Spreadsheet into the
// tabular store the expense pipeline writes to. It exposes range-based
// read and append plus the structural operations (merges, formats) the
// transaction layout depends on.
package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9\-_]+)`)

// ResolveSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// Returns false when the URL does not look like a spreadsheet link; callers
// must treat that as a client input error, not a server failure.
func ResolveSpreadsheetID(rawURL string) (string, bool) {
	m := spreadsheetURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client wraps the Sheets v4 service. Credentials come from Application
// Default Credentials; the client is safe for concurrent use.
type Client struct {
	svc *sheets.Service
	log zerolog.Logger
}

// New creates a Sheets client with full spreadsheet scope.
func New(ctx context.Context, log zerolog.Logger) (*Client, error) {
	svc, err := sheets.NewService(ctx, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheetstore.New: create sheets service: %w", err)
	}
	return &Client{svc: svc, log: log}, nil
}

// Read returns the raw cell values for the given A1 range, e.g.
// "Transactions!A2:E". A missing sheet surfaces as ErrSheetNotFound.
func (c *Client) Read(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheetstore.Read %q: %w", readRange, classifyError(err))
	}
	return resp.Values, nil
}

// Append inserts rows after the existing data in the given column range.
// Values are written with USER_ENTERED interpretation so date-like and
// number-like strings become genuine date/number cells; column formatting
// applied by Initialize then renders them correctly.
func (c *Client) Append(ctx context.Context, spreadsheetID, appendRange string, rows [][]interface{}) error {
	body := &sheets.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, appendRange, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheetstore.Append %q: %w", appendRange, classifyError(err))
	}
	return nil
}

// SheetID looks up the numeric sheet ID for a sheet title, needed for
// structural requests (merges, formats) which address sheets by ID.
func (c *Client) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheetstore.SheetID: %w", classifyError(err))
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheetstore.SheetID %q: %w", title, ErrSheetNotFound)
}

// EnsureSheet returns the ID of the named sheet, creating it when absent.
// Existing sheets are returned untouched.
func (c *Client) EnsureSheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	id, err := c.SheetID(ctx, spreadsheetID, title)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrSheetNotFound) {
		return 0, err
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheetstore.EnsureSheet %q: add sheet: %w", title, classifyError(err))
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("sheetstore.EnsureSheet %q: add sheet returned no properties", title)
	}

	c.log.Info().Str("sheet", title).Msg("Created missing sheet")
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// BatchUpdate applies a list of structural requests in one call.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheetstore.BatchUpdate: %w", classifyError(err))
	}
	return nil
}

// MergeCells merges the rectangular region given by half-open, zero-based
// row and column bounds. Used for the Merchant and Date columns across a
// transaction's row span.
func (c *Client) MergeCells(ctx context.Context, spreadsheetID string, sheetID, startRow, endRow, startCol, endCol int64) error {
	req := &sheets.Request{
		MergeCells: &sheets.MergeCellsRequest{
			MergeType: "MERGE_ALL",
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
		},
	}
	return c.BatchUpdate(ctx, spreadsheetID, []*sheets.Request{req})
}

// classifyError maps Sheets API failures onto the package's error
// taxonomy. The Values API reports a missing sheet as a 400 "Unable to
// parse range" rather than a 404, so both are treated as not-found.
func classifyError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 404 {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, gerr.Message)
		}
		if gerr.Code == 400 && strings.Contains(gerr.Message, "Unable to parse range") {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, gerr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
