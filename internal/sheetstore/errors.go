package sheetstore

import "errors"

var (
	// ErrSheetNotFound indicates the named sheet (tab) does not exist in the
	// spreadsheet. Callers can use this to decide whether to run Initialize.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrUnavailable indicates a transport or API failure talking to the
	// Sheets service.
	ErrUnavailable = errors.New("spreadsheet service unavailable")

	// ErrInitializeFailed indicates sheet creation or formatting failed.
	// The spreadsheet must not be used for typed writes until Initialize
	// succeeds.
	ErrInitializeFailed = errors.New("spreadsheet initialization failed")
)
