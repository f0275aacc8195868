package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Scopes requested for the service account: spreadsheet and file storage read/write.
var Scopes = []string{gsheets.SpreadsheetsScope, drive.DriveScope}

// GoogleBackend talks to one Google Sheets spreadsheet.
type GoogleBackend struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// CredentialOptions builds client options from a service-account key given
// either inline or as a file path. Inline JSON wins when both are set.
func CredentialOptions(credentialsFile, credentialsJSON string) ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithScopes(Scopes...)}
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	default:
		return nil, errors.New("no service account credentials configured")
	}
	return opts, nil
}

func NewGoogleBackend(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleBackend, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is not configured")
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &GoogleBackend{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}, nil
}

func (g *GoogleBackend) Worksheet(ctx context.Context, title string) (*Worksheet, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	for _, s := range ss.Sheets {
		p := s.Properties
		if p == nil || p.Title != title {
			continue
		}
		ws := &Worksheet{ID: p.SheetId, Title: p.Title}
		if p.GridProperties != nil {
			ws.Rows = int(p.GridProperties.RowCount)
			ws.Cols = int(p.GridProperties.ColumnCount)
		}
		return ws, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, title)
}

func (g *GoogleBackend) DeleteWorksheet(ctx context.Context, ws *Worksheet) error {
	_, err := g.batchUpdate(ctx, &gsheets.Request{
		DeleteSheet: &gsheets.DeleteSheetRequest{
			SheetId:         ws.ID,
			ForceSendFields: []string{"SheetId"},
		},
	})
	return err
}

func (g *GoogleBackend) AddWorksheet(ctx context.Context, title string, rows, cols int) (*Worksheet, error) {
	resp, err := g.batchUpdate(ctx, &gsheets.Request{
		AddSheet: &gsheets.AddSheetRequest{
			Properties: &gsheets.SheetProperties{
				Title: title,
				GridProperties: &gsheets.GridProperties{
					RowCount:    int64(rows),
					ColumnCount: int64(cols),
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, errors.New("add sheet returned no properties")
	}

	p := resp.Replies[0].AddSheet.Properties
	return &Worksheet{ID: p.SheetId, Title: p.Title, Rows: rows, Cols: cols}, nil
}

func (g *GoogleBackend) Update(ctx context.Context, ws *Worksheet, startCell string, values [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1Range(ws.Title, startCell), valueRange(values)).
		ValueInputOption(ValueInputOption).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleBackend) AppendRows(ctx context.Context, ws *Worksheet, values [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1Range(ws.Title, ""), valueRange(values)).
		ValueInputOption(ValueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleBackend) FormatHeader(ctx context.Context, ws *Worksheet, format HeaderFormat) error {
	_, err := g.batchUpdate(ctx, &gsheets.Request{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId:         ws.ID,
				StartRowIndex:   0,
				EndRowIndex:     1,
				ForceSendFields: []string{"SheetId", "StartRowIndex"},
			},
			Cell: &gsheets.CellData{
				UserEnteredFormat: &gsheets.CellFormat{
					BackgroundColor: &gsheets.Color{
						Red:             format.Background.Red,
						Green:           format.Background.Green,
						Blue:            format.Background.Blue,
						ForceSendFields: []string{"Red", "Green", "Blue"},
					},
					TextFormat: &gsheets.TextFormat{
						Bold:            format.Bold,
						ForceSendFields: []string{"Bold"},
					},
				},
			},
			Fields: "userEnteredFormat(backgroundColor,textFormat.bold)",
		},
	})
	return err
}

func (g *GoogleBackend) batchUpdate(ctx context.Context, reqs ...*gsheets.Request) (*gsheets.BatchUpdateSpreadsheetResponse, error) {
	return g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
}

// a1Range quotes title for A1 notation; an empty cell addresses the whole sheet.
func a1Range(title, cell string) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

func valueRange(values [][]string) *gsheets.ValueRange {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		rows[i] = cells
	}
	return &gsheets.ValueRange{Values: rows}
}
