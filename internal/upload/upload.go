// Package upload runs one export file through detection, normalization and
// the sheet writer.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nconklindev/roas/internal/converter"
	"github.com/nconklindev/roas/internal/schema"
	"github.com/nconklindev/roas/internal/sheets"
	"github.com/nconklindev/roas/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadError wraps any failure of an upload with the sheet it targeted.
type UploadError struct {
	Sheet string
	Mode  types.WriteMode
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload to %q: %v", e.Sheet, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Request describes one operator action.
type Request struct {
	// InputFile is informational when Data is set, otherwise it is read.
	InputFile string
	Data      *types.FileData
	Sheet     string
	Mode      types.WriteMode
	// ExportFile, if set, receives the normalized table before the upload.
	ExportFile string
}

// Preview is what the operator sees before choosing a sheet.
type Preview struct {
	Data      *types.FileData
	Kind      types.SchemaKind
	Missing   []string
	FirstDate time.Time
	LastDate  time.Time
	HasDates  bool
}

type Service struct {
	writer *sheets.Writer
	logger *zap.Logger
	opts   converter.Options
}

func NewService(backend sheets.Backend, logger *zap.Logger, opts converter.Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		writer: sheets.NewWriter(backend, logger),
		logger: logger,
		opts:   opts,
	}
}

// Inspect reads a file and classifies it without writing anything.
func Inspect(path string) (*Preview, error) {
	data, err := converter.ReadFileData(path)
	if err != nil {
		return nil, err
	}
	return Describe(data), nil
}

// Describe classifies already loaded data.
func Describe(data *types.FileData) *Preview {
	p := &Preview{
		Data: data,
		Kind: schema.Detect(data.Headers),
	}
	if p.Kind != types.KindUnknown {
		p.Missing = schema.Missing(data.Headers, p.Kind)
		p.FirstDate, p.LastDate, p.HasDates = converter.DateRange(data, converter.LeadDateColumn(p.Kind))
	}
	return p
}

// Upload validates and writes one table. Nothing reaches the worksheet unless
// the header carries every mandatory field of its detected kind.
func (s *Service) Upload(ctx context.Context, req Request) (*types.UploadResult, error) {
	id := uuid.NewString()
	log := s.logger.With(
		zap.String("upload_id", id),
		zap.String("sheet", req.Sheet),
		zap.String("mode", string(req.Mode)),
		zap.String("file", req.InputFile))

	fail := func(err error) (*types.UploadResult, error) {
		log.Error("upload failed", zap.Error(err))
		return nil, &UploadError{Sheet: req.Sheet, Mode: req.Mode, Err: err}
	}

	if strings.TrimSpace(req.Sheet) == "" {
		return fail(errors.New("sheet name is required"))
	}

	data := req.Data
	if data == nil {
		var err error
		if data, err = converter.ReadFileData(req.InputFile); err != nil {
			return fail(err)
		}
	}

	kind, err := schema.Classify(data.Headers)
	if err != nil {
		return fail(err)
	}
	log = log.With(zap.Stringer("kind", kind))

	canonical := converter.Normalize(data, kind, s.opts)

	if req.ExportFile != "" {
		if err := converter.Export(canonical, req.ExportFile, req.Sheet); err != nil {
			return fail(fmt.Errorf("export %s: %w", req.ExportFile, err))
		}
		log.Debug("exported normalized table", zap.String("export", req.ExportFile))
	}

	result, err := s.writer.Write(ctx, req.Sheet, canonical, req.Mode)
	if err != nil {
		return fail(err)
	}

	result.ID = id
	result.InputFile = req.InputFile
	result.Kind = kind

	log.Info("upload complete",
		zap.Int("rows", result.RowsWritten),
		zap.Int("columns", result.Columns),
		zap.Bool("header_formatted", result.FormatErr == nil))

	return result, nil
}

// Message renders an upload outcome for the operator.
func Message(result *types.UploadResult, err error) string {
	if err != nil {
		return err.Error()
	}
	switch result.Mode {
	case types.ModeAppend:
		return fmt.Sprintf("%d rows appended to %s.", result.RowsWritten, result.Sheet)
	default:
		return fmt.Sprintf("%s replaced successfully (%d rows).", result.Sheet, result.RowsWritten)
	}
}
