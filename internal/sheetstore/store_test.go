package sheetstore

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestResolveSpreadsheetID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			name:   "full edit URL",
			url:    "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit#gid=0",
			wantID: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
			wantOK: true,
		},
		{
			name:   "bare share URL",
			url:    "https://docs.google.com/spreadsheets/d/abc-DEF_123/",
			wantID: "abc-DEF_123",
			wantOK: true,
		},
		{
			name:   "no trailing slash",
			url:    "https://docs.google.com/spreadsheets/d/abc123",
			wantID: "abc123",
			wantOK: true,
		},
		{
			name:   "not a spreadsheet URL",
			url:    "https://docs.google.com/document/d/abc123/edit",
			wantOK: false,
		},
		{
			name:   "empty string",
			url:    "",
			wantOK: false,
		},
		{
			name:   "random text",
			url:    "my budget sheet",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ResolveSpreadsheetID(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ResolveSpreadsheetID(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("ResolveSpreadsheetID(%q) = %q, want %q", tt.url, id, tt.wantID)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "unparseable range means missing sheet",
			err:  &googleapi.Error{Code: 400, Message: "Unable to parse range: Transactions!A2:E"},
			want: ErrSheetNotFound,
		},
		{
			name: "explicit not found",
			err:  &googleapi.Error{Code: 404, Message: "Requested entity was not found."},
			want: ErrSheetNotFound,
		},
		{
			name: "other API error is unavailable",
			err:  &googleapi.Error{Code: 500, Message: "Internal error"},
			want: ErrUnavailable,
		},
		{
			name: "bad request without range message is unavailable",
			err:  &googleapi.Error{Code: 400, Message: "Invalid value"},
			want: ErrUnavailable,
		},
		{
			name: "plain transport error is unavailable",
			err:  fmt.Errorf("connection refused"),
			want: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
