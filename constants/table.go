// Package constants resolves named physical constants against an in-memory dataset.
//
// The dataset is a CSV file with the columns name, value and an optional unit.
// Blank lines and lines starting with '#' are ignored, and a leading
// "name,value,unit" header row is skipped. Names are matched exactly and are
// case sensitive, so "G" and "g" are different constants.
package constants

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
)

// Constant is a single dataset row.
type Constant struct {
	Name  string
	Value float64
	Unit  string
}

// Table is an immutable name index over a set of constants.
type Table struct {
	byName map[string]Constant
	names  []string
}

// NewTable indexes constants by name. Duplicate or empty names and
// non-finite values are rejected.
func NewTable(constants []Constant) (*Table, error) {
	t := &Table{
		byName: make(map[string]Constant, len(constants)),
		names:  make([]string, 0, len(constants)),
	}
	for _, c := range constants {
		if c.Name == "" {
			return nil, errors.New("constant with empty name")
		}
		if !isFinite(c.Value) {
			return nil, fmt.Errorf("constant %q has non-finite value %v", c.Name, c.Value)
		}
		if _, ok := t.byName[c.Name]; ok {
			return nil, fmt.Errorf("duplicate constant %q", c.Name)
		}
		t.byName[c.Name] = c
		t.names = append(t.names, c.Name)
	}
	return t, nil
}

// EmptyTable returns a table with no constants.
func EmptyTable() *Table {
	return &Table{byName: map[string]Constant{}}
}

// Lookup returns the constant stored under name.
func (t *Table) Lookup(name string) (Constant, bool) {
	if t == nil {
		return Constant{}, false
	}
	c, ok := t.byName[name]
	return c, ok
}

// Len returns the number of constants in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Names returns constant names in dataset order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// ParseCSV reads a dataset from r.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows  []Constant
		first = true
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		c, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, c)
	}

	t, err := NewTable(rows)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return t, nil
}

// LoadCSV parses the dataset at path. A missing file yields an empty table.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return EmptyTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	t, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func isHeader(record []string) bool {
	return len(record) >= 2 &&
		strings.EqualFold(strings.TrimSpace(record[0]), "name") &&
		strings.EqualFold(strings.TrimSpace(record[1]), "value")
}

func parseRecord(record []string) (Constant, error) {
	if len(record) < 2 || len(record) > 3 {
		return Constant{}, fmt.Errorf("expected 2 or 3 columns, got %d", len(record))
	}

	name := strings.TrimSpace(record[0])
	if name == "" {
		return Constant{}, errors.New("missing constant name")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return Constant{}, fmt.Errorf("invalid value for %q: %w", name, err)
	}
	// NaN and Inf parse but cannot be encoded as JSON.
	if !isFinite(value) {
		return Constant{}, fmt.Errorf("invalid value for %q: %s is not finite", name, strings.TrimSpace(record[1]))
	}

	var unit string
	if len(record) == 3 {
		unit = strings.TrimSpace(record[2])
	}

	return Constant{Name: name, Value: value, Unit: unit}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
