package converter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/roas/internal/types"

	"github.com/xuri/excelize/v2"
)

const (
	// PreviewRows is how many data rows the preview shows.
	PreviewRows = 5

	utf8BOM = "\ufeff"
)

// SupportedExtensions lists the input file types ReadFileData accepts.
var SupportedExtensions = []string{".csv", ".xlsx"}

// HeaderFill is the light-gray background applied to exported header rows.
const HeaderFill = "D9D9D9"

// ReadFileData reads a whole export file. Row 0 is the header and every cell is
// kept as text.
func ReadFileData(filePath string) (*types.FileData, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv":
		rows, err = readCSVRows(filePath)
	case ".xlsx":
		rows, err = readXLSXRows(filePath)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	rows = dropEmptyRecords(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	rectangularize(rows)

	return &types.FileData{
		Headers: rows[0],
		Rows:    rows[1:],
	}, nil
}

func readCSVRows(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}
	return records, nil
}

func readXLSXRows(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	return f.GetRows(sheetName)
}

// dropEmptyRecords removes records with no cells at all, which is how excelize
// reports a blank worksheet row. A delimiter-only CSV line such as ",,," has
// cells and is kept as a row of empty strings.
func dropEmptyRecords(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

// rectangularize pads every row, header included, to the widest row.
func rectangularize(rows [][]string) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
}

// Export writes data, header first, to a local .csv or .xlsx file.
func Export(data *types.FileData, outputFile, sheetName string) error {
	ext := strings.ToLower(filepath.Ext(outputFile))

	switch ext {
	case ".csv":
		return exportCSV(data, outputFile)
	case ".xlsx":
		return exportXLSX(data, outputFile, sheetName)
	default:
		return fmt.Errorf("unsupported file type: %s", ext)
	}
}

func exportCSV(data *types.FileData, outputFile string) error {
	outFile, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)
	if err := writer.WriteAll(data.Grid()); err != nil {
		return err
	}
	return outFile.Close()
}

func exportXLSX(data *types.FileData, outputFile, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	for i, row := range data.Grid() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if len(data.Headers) > 0 {
		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{HeaderFill}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		lastCell, err := excelize.CoordinatesToCellName(len(data.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", lastCell, style); err != nil {
			return err
		}
	}

	return f.SaveAs(outputFile)
}
