// Package schema classifies lead export headers by provider.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nconklindev/roas/internal/types"
)

// ErrUnknownFormat means the header matched no known provider.
var ErrUnknownFormat = errors.New("unknown file format: must be an MCAI or WhatConverts export")

// MissingFieldsError lists mandatory columns absent from a header.
type MissingFieldsError struct {
	Kind    types.SchemaKind
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("mandatory fields missing for %s export: %s", e.Kind, strings.Join(e.Missing, ", "))
}

type rule struct {
	Kind      types.SchemaKind
	Markers   []string
	Mandatory []string
}

// Rules are evaluated in order and the first full marker match wins.
// A header carrying both marker sets is classified as MCAI.
var rules = []rule{
	{
		Kind:      types.KindMCAI,
		Markers:   []string{"Date Created (PST)", "Final AI Attribution", "Potential Lead?"},
		Mandatory: []string{"Date Created (PST)", "Lead ID", "Lead Type", "Answered?", "Sales Call Score"},
	},
	{
		Kind:      types.KindWhatConverts,
		Markers:   []string{"Account", "Profile", "Quotable"},
		Mandatory: []string{"Lead ID", "Account", "Profile"},
	},
}

// Detect returns the provider whose marker columns are all present in header.
func Detect(header []string) types.SchemaKind {
	present := headerSet(header)
	for _, r := range rules {
		if containsAll(present, r.Markers) {
			return r.Kind
		}
	}
	return types.KindUnknown
}

// MandatoryFields returns the columns an export of kind must carry: the
// detection markers followed by the remaining required columns.
func MandatoryFields(kind types.SchemaKind) []string {
	for _, r := range rules {
		if r.Kind != kind {
			continue
		}
		fields := append([]string(nil), r.Markers...)
		seen := headerSet(fields)
		for _, f := range r.Mandatory {
			if !seen[f] {
				fields = append(fields, f)
				seen[f] = true
			}
		}
		return fields
	}
	return nil
}

// Missing returns the mandatory fields of kind absent from header, in list order.
func Missing(header []string, kind types.SchemaKind) []string {
	present := headerSet(header)
	var missing []string
	for _, f := range MandatoryFields(kind) {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate checks header against the mandatory list for kind.
func Validate(header []string, kind types.SchemaKind) error {
	if kind == types.KindUnknown {
		return ErrUnknownFormat
	}
	if missing := Missing(header, kind); len(missing) > 0 {
		return &MissingFieldsError{Kind: kind, Missing: missing}
	}
	return nil
}

// Classify detects and validates in one step.
func Classify(header []string) (types.SchemaKind, error) {
	kind := Detect(header)
	if err := Validate(header, kind); err != nil {
		return kind, err
	}
	return kind, nil
}

func headerSet(header []string) map[string]bool {
	set := make(map[string]bool, len(header))
	for _, h := range header {
		set[h] = true
	}
	return set
}

func containsAll(set map[string]bool, names []string) bool {
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}
