package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/nconklindev/roas/internal/types"

	"go.uber.org/zap"
)

// Extra rows and columns a replaced worksheet gets beyond the table size.
const (
	RowMargin = 10
	ColMargin = 5
)

// Writer pushes tables to worksheets through a Backend.
type Writer struct {
	backend Backend
	logger  *zap.Logger
	format  HeaderFormat
}

func NewWriter(backend Backend, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		backend: backend,
		logger:  logger,
		format:  DefaultHeaderFormat,
	}
}

// Write stores data in sheetName using mode. REPLACE styles the new header row
// once the data landed; APPEND leaves the existing header alone. A styling
// failure is reported in the result, not as an error.
func (w *Writer) Write(ctx context.Context, sheetName string, data *types.FileData, mode types.WriteMode) (*types.UploadResult, error) {
	var (
		ws  *Worksheet
		err error
	)

	switch mode {
	case types.ModeReplace:
		ws, err = w.replace(ctx, sheetName, data)
	case types.ModeAppend:
		ws, err = w.append(ctx, sheetName, data)
	default:
		return nil, fmt.Errorf("invalid write mode: %q", mode)
	}
	if err != nil {
		return nil, err
	}

	result := &types.UploadResult{
		Sheet:       sheetName,
		Mode:        mode,
		RowsWritten: len(data.Rows),
		Columns:     len(data.Headers),
	}

	if mode != types.ModeReplace {
		return result, nil
	}
	if err := w.backend.FormatHeader(ctx, ws, w.format); err != nil {
		result.FormatErr = remoteErr(sheetName, "format", err)
		w.logger.Warn("header formatting failed",
			zap.String("sheet", sheetName),
			zap.Error(err))
	}

	return result, nil
}

func (w *Writer) replace(ctx context.Context, sheetName string, data *types.FileData) (*Worksheet, error) {
	old, err := w.backend.Worksheet(ctx, sheetName)
	switch {
	case err == nil:
		if err := w.backend.DeleteWorksheet(ctx, old); err != nil {
			return nil, remoteErr(sheetName, "delete", err)
		}
		w.logger.Debug("deleted worksheet", zap.String("sheet", sheetName), zap.Int64("id", old.ID))
	case errors.Is(err, ErrWorksheetNotFound):
	default:
		return nil, remoteErr(sheetName, "lookup", err)
	}

	grid := data.Grid()
	ws, err := w.backend.AddWorksheet(ctx, sheetName, len(grid)+RowMargin, len(data.Headers)+ColMargin)
	if err != nil {
		return nil, remoteErr(sheetName, "create", err)
	}

	if err := w.backend.Update(ctx, ws, "A1", grid); err != nil {
		return nil, remoteErr(sheetName, "update", err)
	}
	return ws, nil
}

func (w *Writer) append(ctx context.Context, sheetName string, data *types.FileData) (*Worksheet, error) {
	ws, err := w.backend.Worksheet(ctx, sheetName)
	if err != nil {
		return nil, remoteErr(sheetName, "lookup", err)
	}

	if len(data.Rows) == 0 {
		return ws, nil
	}
	if err := w.backend.AppendRows(ctx, ws, data.Rows); err != nil {
		return nil, remoteErr(sheetName, "append", err)
	}
	return ws, nil
}
