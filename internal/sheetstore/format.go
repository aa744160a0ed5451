package sheetstore

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// Sheet titles of the two tables the app maintains.
const (
	TransactionsSheet = "Transactions"
	ChatSheet         = "Chat History"
)

// borderedRows is the fixed depth the grid borders are applied through, so
// appends never need per-row border updates.
const borderedRows = 2000

// TransactionsHeader is the exact header row of the Transactions sheet.
var TransactionsHeader = []string{"Merchant", "Date", "Category", "Item", "Cost"}

// ChatHeader is the exact header row of the Chat History sheet.
var ChatHeader = []string{"Role", "Message", "Timestamp"}

// Initialize brings both sheets to their canonical shape: headers written
// into row 1, column formats, frozen header, borders and widths. It is safe
// to call repeatedly; formatting never touches cell values below row 1.
func (c *Client) Initialize(ctx context.Context, spreadsheetID string) error {
	txID, err := c.EnsureSheet(ctx, spreadsheetID, TransactionsSheet)
	if err != nil {
		return fmt.Errorf("sheetstore.Initialize: %w: %v", ErrInitializeFailed, err)
	}
	chatID, err := c.EnsureSheet(ctx, spreadsheetID, ChatSheet)
	if err != nil {
		return fmt.Errorf("sheetstore.Initialize: %w: %v", ErrInitializeFailed, err)
	}

	requests := append(transactionsFormatRequests(txID), chatFormatRequests(chatID)...)
	if err := c.BatchUpdate(ctx, spreadsheetID, requests); err != nil {
		return fmt.Errorf("sheetstore.Initialize: %w: %v", ErrInitializeFailed, err)
	}

	c.log.Info().Str("spreadsheet_id", spreadsheetID).Msg("Spreadsheet initialized")
	return nil
}

// transactionsFormatRequests builds the full formatting request list for
// the Transactions sheet. The same input always yields the same requests,
// which is what makes Initialize idempotent.
func transactionsFormatRequests(sheetID int64) []*sheets.Request {
	return []*sheets.Request{
		headerRequest(sheetID, TransactionsHeader),
		freezeHeaderRequest(sheetID),
		// Merchant: plain left-aligned text.
		columnFormatRequest(sheetID, 0, &sheets.CellFormat{
			HorizontalAlignment: "LEFT",
		}, "userEnteredFormat(horizontalAlignment)"),
		// Date: rendered as "Month D, YYYY".
		columnFormatRequest(sheetID, 1, &sheets.CellFormat{
			NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "mmmm d, yyyy"},
		}, "userEnteredFormat(numberFormat)"),
		// Category: plain left-aligned text.
		columnFormatRequest(sheetID, 2, &sheets.CellFormat{
			HorizontalAlignment: "LEFT",
		}, "userEnteredFormat(horizontalAlignment)"),
		// Item: wrapped so long descriptions stay readable.
		columnFormatRequest(sheetID, 3, &sheets.CellFormat{
			WrapStrategy: "WRAP",
		}, "userEnteredFormat(wrapStrategy)"),
		// Cost: currency, right-aligned.
		columnFormatRequest(sheetID, 4, &sheets.CellFormat{
			NumberFormat:        &sheets.NumberFormat{Type: "CURRENCY", Pattern: "$#,##0.00"},
			HorizontalAlignment: "RIGHT",
		}, "userEnteredFormat(numberFormat,horizontalAlignment)"),
		borderRequest(sheetID, int64(len(TransactionsHeader))),
		columnWidthRequest(sheetID, 0, 150),
		columnWidthRequest(sheetID, 1, 130),
		columnWidthRequest(sheetID, 2, 120),
		columnWidthRequest(sheetID, 3, 320),
		columnWidthRequest(sheetID, 4, 90),
	}
}

// chatFormatRequests builds the formatting request list for the Chat
// History sheet.
func chatFormatRequests(sheetID int64) []*sheets.Request {
	return []*sheets.Request{
		headerRequest(sheetID, ChatHeader),
		freezeHeaderRequest(sheetID),
		// Message: wrapped text.
		columnFormatRequest(sheetID, 1, &sheets.CellFormat{
			WrapStrategy: "WRAP",
		}, "userEnteredFormat(wrapStrategy)"),
		borderRequest(sheetID, int64(len(ChatHeader))),
		columnWidthRequest(sheetID, 0, 90),
		columnWidthRequest(sheetID, 1, 460),
		columnWidthRequest(sheetID, 2, 180),
	}
}

// headerRequest overwrites row 1 with the given header text, bold and
// left/middle aligned. Overwriting (not appending) is what guarantees the
// header contract regardless of what the sheet held before.
func headerRequest(sheetID int64, headers []string) *sheets.Request {
	cells := make([]*sheets.CellData, len(headers))
	for i, h := range headers {
		text := h
		cells[i] = &sheets.CellData{
			UserEnteredValue: &sheets.ExtendedValue{StringValue: &text},
			UserEnteredFormat: &sheets.CellFormat{
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "LEFT",
				VerticalAlignment:   "MIDDLE",
			},
		}
	}

	return &sheets.Request{
		UpdateCells: &sheets.UpdateCellsRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    0,
				EndRowIndex:      1,
				StartColumnIndex: 0,
				EndColumnIndex:   int64(len(headers)),
			},
			Rows:   []*sheets.RowData{{Values: cells}},
			Fields: "userEnteredValue,userEnteredFormat(textFormat,horizontalAlignment,verticalAlignment)",
		},
	}
}

func freezeHeaderRequest(sheetID int64) *sheets.Request {
	return &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:        sheetID,
				GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
			},
			Fields: "gridProperties.frozenRowCount",
		},
	}
}

// columnFormatRequest applies a cell format to one whole column below the
// header row. Fields limits the update to presentation only, so existing
// values are untouched.
func columnFormatRequest(sheetID, column int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    1,
				StartColumnIndex: column,
				EndColumnIndex:   column + 1,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}

func borderRequest(sheetID, columns int64) *sheets.Request {
	border := &sheets.Border{
		Style: "SOLID",
		Color: &sheets.Color{Red: 0.85, Green: 0.85, Blue: 0.85},
	}
	return &sheets.Request{
		UpdateBorders: &sheets.UpdateBordersRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    0,
				EndRowIndex:      borderedRows,
				StartColumnIndex: 0,
				EndColumnIndex:   columns,
			},
			Top:             border,
			Bottom:          border,
			Left:            border,
			Right:           border,
			InnerHorizontal: border,
			InnerVertical:   border,
		},
	}
}

func columnWidthRequest(sheetID, column, pixels int64) *sheets.Request {
	return &sheets.Request{
		UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
			Range: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: column,
				EndIndex:   column + 1,
			},
			Properties: &sheets.DimensionProperties{PixelSize: pixels},
			Fields:     "pixelSize",
		},
	}
}
