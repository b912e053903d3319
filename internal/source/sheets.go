package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads ranges from a Google Sheets spreadsheet using formatted
// cell values, the same text a person sees in the browser.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	tokens        Tokens
}

// NewSheetsSource creates a read-only Sheets client. With an empty
// credentialsFile the client falls back to application default credentials.
func NewSheetsSource(ctx context.Context, spreadsheetID, credentialsFile string, tokens Tokens) (*SheetsSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsSource{svc: svc, spreadsheetID: spreadsheetID, tokens: tokens}, nil
}

// Name implements Source.
func (s *SheetsSource) Name() string { return "sheets:" + s.spreadsheetID }

// Fetch implements Source.
func (s *SheetsSource) Fetch(ctx context.Context, sheet, rng string) (Grid, error) {
	ref := Request{Sheet: sheet, Range: rng}.A1()
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, ref).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusBadRequest) {
			return Grid{}, fmt.Errorf("%w: %s: %v", ErrSheetNotFound, ref, err)
		}
		return Grid{}, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return FromValues(s.tokens, resp.Values), nil
}
