// Package sheets writes lead tables to worksheets of a remote spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrWorksheetNotFound is returned when no worksheet has the requested title.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// ValueInputOption makes the spreadsheet parse written cells as if typed,
// so dates and numbers land as typed values rather than text.
const ValueInputOption = "USER_ENTERED"

// Worksheet is a single tab of the target spreadsheet.
type Worksheet struct {
	ID    int64
	Title string
	Rows  int
	Cols  int
}

// Color components are in the 0..1 range.
type Color struct {
	Red, Green, Blue float64
}

// HeaderFormat is the styling applied to a worksheet's first row.
type HeaderFormat struct {
	Bold       bool
	Background Color
}

// DefaultHeaderFormat is bold text on a light-gray background.
var DefaultHeaderFormat = HeaderFormat{
	Bold:       true,
	Background: Color{Red: 0.85, Green: 0.85, Blue: 0.85},
}

// Backend is the set of remote spreadsheet operations the writer needs.
// Implementations address one fixed spreadsheet.
type Backend interface {
	// Worksheet returns ErrWorksheetNotFound when title does not exist.
	Worksheet(ctx context.Context, title string) (*Worksheet, error)
	DeleteWorksheet(ctx context.Context, ws *Worksheet) error
	AddWorksheet(ctx context.Context, title string, rows, cols int) (*Worksheet, error)
	// Update writes values starting at the A1-notation cell startCell.
	Update(ctx context.Context, ws *Worksheet, startCell string, values [][]string) error
	AppendRows(ctx context.Context, ws *Worksheet, values [][]string) error
	FormatHeader(ctx context.Context, ws *Worksheet, format HeaderFormat) error
}

// RemoteError is a failed backend call.
type RemoteError struct {
	Sheet string
	Op    string // "lookup", "delete", "create", "update", "append", "format"
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s worksheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteErr(sheet, op string, err error) *RemoteError {
	return &RemoteError{Sheet: sheet, Op: op, Err: err}
}
