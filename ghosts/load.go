/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ghosts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultNameColumn = "Ghost name"

	firstColumn  = "First name"
	familyColumn = "Family name"
	emailColumn  = "Email"
	takenColumn  = "Taken"
)

type LoadOptions struct {
	// NameColumn is the header of the unique name column. Empty means
	// DefaultNameColumn.
	NameColumn string
}

// LoadFile reads a CSV pool from path.
func LoadFile(path string, opts LoadOptions, storeOpts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f, opts, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// Load reads a CSV pool with a header row. Only the name column is
// required; holder columns, when present, prefill claims.
func Load(r io.Reader, opts LoadOptions, storeOpts ...Option) (*Store, error) {
	nameColumn := opts.NameColumn
	if nameColumn == "" {
		nameColumn = DefaultNameColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, nameColumn)
	}
	if err != nil {
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := columns[h]; !ok {
			columns[h] = i
		}
	}

	if _, ok := columns[nameColumn]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, nameColumn)
	}

	field := func(row []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		records []Record
		seen    = make(map[string]int)
		holders = make(map[string]int)
	)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)

		name := field(row, nameColumn)
		if name == "" {
			return nil, fmt.Errorf("line %d: %w", line, ErrEmptyName)
		}
		if first, ok := seen[name]; ok {
			return nil, fmt.Errorf("line %d: %w: %q (first seen on line %d)", line, ErrDuplicateName, name, first)
		}
		seen[name] = line

		rec := Record{
			Name: name,
			Holder: Holder{
				First:  field(row, firstColumn),
				Family: field(row, familyColumn),
				Email:  field(row, emailColumn),
			},
		}

		rec.Taken, _ = strconv.ParseBool(field(row, takenColumn))
		if !rec.Taken {
			rec.Holder = Holder{}
		}

		if email := rec.Holder.Email; rec.Taken && email != "" {
			if first, ok := holders[email]; ok {
				return nil, fmt.Errorf("line %d: %w: %s (first seen on line %d)", line, ErrDuplicateHolder, email, first)
			}
			holders[email] = line
		}

		records = append(records, rec)
	}

	return New(records, storeOpts...)
}
