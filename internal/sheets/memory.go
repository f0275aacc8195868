package sheets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"
)

// MemoryBackend keeps worksheets in process. It backs dry runs and tests.
type MemoryBackend struct {
	mu     sync.Mutex
	nextID int64
	sheets map[string]*memSheet

	// Failures makes the named operation ("delete", "create", "update",
	// "append", "format", "lookup") return the given error.
	Failures map[string]error
}

type memSheet struct {
	ws     Worksheet
	values [][]string
	format *HeaderFormat
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nextID:   1,
		sheets:   make(map[string]*memSheet),
		Failures: make(map[string]error),
	}
}

func (m *MemoryBackend) fail(op string) error {
	return m.Failures[op]
}

func (m *MemoryBackend) Worksheet(_ context.Context, title string) (*Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("lookup"); err != nil {
		return nil, err
	}
	s, ok := m.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, title)
	}
	ws := s.ws
	return &ws, nil
}

func (m *MemoryBackend) DeleteWorksheet(_ context.Context, ws *Worksheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("delete"); err != nil {
		return err
	}
	s, ok := m.sheets[ws.Title]
	if !ok || s.ws.ID != ws.ID {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, ws.Title)
	}
	delete(m.sheets, ws.Title)
	return nil
}

func (m *MemoryBackend) AddWorksheet(_ context.Context, title string, rows, cols int) (*Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("create"); err != nil {
		return nil, err
	}
	if _, exists := m.sheets[title]; exists {
		return nil, fmt.Errorf("a sheet with the name %q already exists", title)
	}
	ws := Worksheet{ID: m.nextID, Title: title, Rows: rows, Cols: cols}
	m.nextID++
	m.sheets[title] = &memSheet{ws: ws}
	return &ws, nil
}

func (m *MemoryBackend) Update(_ context.Context, ws *Worksheet, startCell string, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("update"); err != nil {
		return err
	}
	s, err := m.lookup(ws)
	if err != nil {
		return err
	}
	col, row, err := excelize.CellNameToCoordinates(startCell)
	if err != nil {
		return err
	}

	for i, vals := range values {
		r := row - 1 + i
		for len(s.values) <= r {
			s.values = append(s.values, nil)
		}
		need := col - 1 + len(vals)
		if len(s.values[r]) < need {
			grown := make([]string, need)
			copy(grown, s.values[r])
			s.values[r] = grown
		}
		copy(s.values[r][col-1:], vals)
	}
	s.grow()
	return nil
}

func (m *MemoryBackend) AppendRows(_ context.Context, ws *Worksheet, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("append"); err != nil {
		return err
	}
	s, err := m.lookup(ws)
	if err != nil {
		return err
	}
	s.values = trimTrailingEmpty(s.values)
	for _, row := range values {
		s.values = append(s.values, append([]string(nil), row...))
	}
	s.grow()
	return nil
}

func (m *MemoryBackend) FormatHeader(_ context.Context, ws *Worksheet, format HeaderFormat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("format"); err != nil {
		return err
	}
	s, err := m.lookup(ws)
	if err != nil {
		return err
	}
	f := format
	s.format = &f
	return nil
}

// Values returns a copy of the populated rows of title.
func (m *MemoryBackend) Values(title string) ([][]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sheets[title]
	if !ok {
		return nil, false
	}
	rows := trimTrailingEmpty(s.values)
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Dimensions returns the grid size of title.
func (m *MemoryBackend) Dimensions(title string) (rows, cols int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sheets[title]
	if !ok {
		return 0, 0, false
	}
	return s.ws.Rows, s.ws.Cols, true
}

// HeaderFormatted reports the format last applied to title's header row.
func (m *MemoryBackend) HeaderFormatted(title string) (HeaderFormat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sheets[title]
	if !ok || s.format == nil {
		return HeaderFormat{}, false
	}
	return *s.format, true
}

// Titles lists worksheet titles in sorted order.
func (m *MemoryBackend) Titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	titles := make([]string, 0, len(m.sheets))
	for t := range m.sheets {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

func (m *MemoryBackend) lookup(ws *Worksheet) (*memSheet, error) {
	s, ok := m.sheets[ws.Title]
	if !ok || s.ws.ID != ws.ID {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, ws.Title)
	}
	return s, nil
}

// grow extends the grid size to cover written values, as the remote store does.
func (s *memSheet) grow() {
	if len(s.values) > s.ws.Rows {
		s.ws.Rows = len(s.values)
	}
	for _, r := range s.values {
		if len(r) > s.ws.Cols {
			s.ws.Cols = len(r)
		}
	}
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
