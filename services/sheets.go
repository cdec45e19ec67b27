package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetStore is the remote spreadsheet boundary. Ranges use A1 notation
// ("Transactions!A:K", "Settings!B3:C3"). Row indices passed to DeleteRows
// are 0-based sheet rows, header included, end exclusive.
type SheetStore interface {
	ReadRange(ctx context.Context, rng string) ([][]interface{}, error)
	AppendRows(ctx context.Context, rng string, rows [][]interface{}) error
	UpdateRange(ctx context.Context, rng string, rows [][]interface{}) error
	AddSheet(ctx context.Context, title string) error
	DeleteRows(ctx context.Context, sheet string, start, end int64) error
	ListSheets(ctx context.Context) ([]string, error)
}

const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

// GoogleSheetStore talks to one spreadsheet through the Sheets v4 API.
type GoogleSheetStore struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewGoogleSheetStore builds a store authenticated either with a service
// account credentials file or with a user token source.
func NewGoogleSheetStore(ctx context.Context, spreadsheetID, credentialsFile string, ts oauth2.TokenSource) (*GoogleSheetStore, error) {
	if spreadsheetID == "" {
		return nil, errors.New("SPREADSHEET_ID is required")
	}

	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile), option.WithScopes(sheets.SpreadsheetsScope))
	case ts != nil:
		opts = append(opts, option.WithTokenSource(ts))
	default:
		return nil, errors.New("no Google credentials configured")
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &GoogleSheetStore{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleSheetStore) ReadRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify("read "+rng, err)
	}
	if resp.Values == nil {
		return [][]interface{}{}, nil
	}
	return resp.Values, nil
}

func (g *GoogleSheetStore) AppendRows(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := g.srv.Spreadsheets.Values.Append(g.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do()
	return classify("append "+rng, err)
}

func (g *GoogleSheetStore) UpdateRange(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := g.srv.Spreadsheets.Values.Update(g.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).
		Context(ctx).Do()
	return classify("update "+rng, err)
}

func (g *GoogleSheetStore) AddSheet(ctx context.Context, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}
	_, err := g.srv.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return classify("add sheet "+title, err)
}

func (g *GoogleSheetStore) DeleteRows(ctx context.Context, sheet string, start, end int64) error {
	sheetID, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   end,
					// the first sheet has id 0 and the header row index 0
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err = g.srv.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return classify("delete rows "+sheet, err)
}

func (g *GoogleSheetStore) ListSheets(ctx context.Context) ([]string, error) {
	ss, err := g.srv.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, classify("list sheets", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (g *GoogleSheetStore) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := g.srv.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, classify("lookup sheet "+title, err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %s: %w", title, ErrNotFound)
}

// classify turns API failures into the service error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAuthError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return &RemoteError{Op: op, Status: gerr.Code, Err: fmt.Errorf("%w: %s", ErrTokenExpired, gerr.Message)}
		case http.StatusForbidden:
			return &RemoteError{Op: op, Status: gerr.Code, Err: fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)}
		}
		return &RemoteError{Op: op, Status: gerr.Code, Err: err}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &RemoteError{Op: op, Err: fmt.Errorf("%w: %v", ErrTokenExpired, err)}
	}
	return &RemoteError{Op: op, Err: err}
}
