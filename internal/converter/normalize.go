package converter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nconklindev/roas/internal/types"
)

// Canonical column names shared by both providers.
const (
	ColQuotable = "Quotable"
	ColNotes    = "Notes"
	ColDate     = "Date"

	colPotentialLead  = "Potential Lead?"
	colAIAttribution  = "Final AI Attribution"
	colMCAIDate       = "Date Created (PST)"
	phoneHeaderMarker = "phone"
)

// Options tunes Normalize beyond the canonical remapping.
type Options struct {
	NormalizePhones bool
}

// Normalize returns a copy of data remapped to the canonical lead schema.
// The input is not modified.
func Normalize(data *types.FileData, kind types.SchemaKind, opts Options) *types.FileData {
	out := clone(data)

	quotable := ensureColumn(out, ColQuotable)
	notes := ensureColumn(out, ColNotes)

	if kind == types.KindMCAI {
		copyColumn(out, out.Index(colPotentialLead), quotable)
		copyColumn(out, out.Index(colAIAttribution), notes)

		if src := out.Index(colMCAIDate); src >= 0 {
			copyColumn(out, src, ensureColumn(out, ColDate))
		}
	}

	if opts.NormalizePhones {
		for i, h := range out.Headers {
			if strings.Contains(strings.ToLower(h), phoneHeaderMarker) {
				for _, row := range out.Rows {
					row[i] = NormalizePhone(row[i])
				}
			}
		}
	}

	for _, row := range out.Rows {
		row[quotable] = strings.TrimSpace(row[quotable])
		row[notes] = strings.TrimSpace(row[notes])
	}

	return out
}

func clone(data *types.FileData) *types.FileData {
	out := &types.FileData{
		Headers: append([]string(nil), data.Headers...),
		Rows:    make([][]string, len(data.Rows)),
	}
	for i, row := range data.Rows {
		r := make([]string, len(out.Headers))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// ensureColumn returns the index of name, appending an empty column if absent.
func ensureColumn(data *types.FileData, name string) int {
	if idx := data.Index(name); idx >= 0 {
		return idx
	}
	data.Headers = append(data.Headers, name)
	for i := range data.Rows {
		data.Rows[i] = append(data.Rows[i], "")
	}
	return len(data.Headers) - 1
}

// copyColumn overwrites dst with src row by row. A missing src blanks dst.
func copyColumn(data *types.FileData, src, dst int) {
	for _, row := range data.Rows {
		if src >= 0 {
			row[dst] = row[src]
		} else {
			row[dst] = ""
		}
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone formats a North American number as (AAA) BBB-CCCC.
// Values that do not reduce to ten digits are returned as bare digits.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	d := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(d, "92") && len(d) == 12 {
		d = "0" + d[2:]
	}
	if len(d) == 11 && strings.HasPrefix(d, "1") {
		d = d[1:]
	}
	if len(d) == 10 {
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	}
	return d
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses the date formats the lead exports use.
func ParseDate(val string) (time.Time, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateRange returns the earliest and latest parseable dates in column.
func DateRange(data *types.FileData, column string) (first, last time.Time, ok bool) {
	idx := data.Index(column)
	if idx < 0 {
		return first, last, false
	}
	for _, row := range data.Rows {
		if idx >= len(row) {
			continue
		}
		t, parsed := ParseDate(row[idx])
		if !parsed {
			continue
		}
		if !ok || t.Before(first) {
			first = t
		}
		if !ok || t.After(last) {
			last = t
		}
		ok = true
	}
	return first, last, ok
}

// LeadDateColumn returns the column holding the lead date for kind.
func LeadDateColumn(kind types.SchemaKind) string {
	if kind == types.KindMCAI {
		return colMCAIDate
	}
	return ColDate
}
