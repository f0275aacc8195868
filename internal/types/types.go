package types

import "fmt"

// FileData is a table read from an export file. Headers is row 0 of the file.
type FileData struct {
	Headers []string
	Rows    [][]string
}

// Index returns the position of the first header named name, or -1.
func (d *FileData) Index(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Grid returns the header followed by every data row.
func (d *FileData) Grid() [][]string {
	grid := make([][]string, 0, len(d.Rows)+1)
	grid = append(grid, d.Headers)
	grid = append(grid, d.Rows...)
	return grid
}

// SchemaKind identifies the upstream provider an export came from.
type SchemaKind int

const (
	KindUnknown SchemaKind = iota
	KindMCAI
	KindWhatConverts
)

func (k SchemaKind) String() string {
	switch k {
	case KindMCAI:
		return "MCAI"
	case KindWhatConverts:
		return "WhatConverts"
	default:
		return "Unknown"
	}
}

// WriteMode selects how a table lands in the worksheet.
type WriteMode string

const (
	// ModeReplace deletes and recreates the worksheet before writing.
	ModeReplace WriteMode = "replace"
	// ModeAppend adds data rows to an existing worksheet.
	ModeAppend WriteMode = "append"
)

// ParseWriteMode converts a flag value to a WriteMode.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case ModeReplace, ModeAppend:
		return WriteMode(s), nil
	default:
		return "", fmt.Errorf("invalid mode: %s (must be replace or append)", s)
	}
}

// UploadResult describes a table that was written to a worksheet.
type UploadResult struct {
	ID          string
	InputFile   string
	Sheet       string
	Mode        WriteMode
	Kind        SchemaKind
	RowsWritten int
	Columns     int
	// FormatErr is set when the data was written but header styling failed.
	FormatErr error
}
