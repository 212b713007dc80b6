// Package dataset provides the small delimited-table utilities that surround
// a descriptor calculation: reading a Dragon output table, merging descriptor
// columns with external variables, splitting features from targets, and
// writing results back to disk.  These are thin I/O wrappers; no statistics
// or transformation logic lives here.
package dataset

import (
	"encoding/csv"
	"os"

	"github.com/chemkit/dragonctl/pkg/errors"
)

// Table is an in-memory rectangular table of string cells with an optional
// header row.  Dragon emits descriptor values as text; numeric interpretation
// is the consumer's concern.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumRows returns the number of data rows (the header is not counted).
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the column count, derived from the header when present and
// from the first data row otherwise.
func (t *Table) NumCols() int {
	if len(t.Header) > 0 {
		return len(t.Header)
	}
	if len(t.Rows) > 0 {
		return len(t.Rows[0])
	}
	return 0
}

// ReadTable reads a delimited file into a Table.  When hasHeader is true the
// first record becomes the header row.  Records are required to be
// rectangular; a ragged file is a read error.
func ReadTable(path string, delimiter rune, hasHeader bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableReadFailed,
			"failed to open table").WithDetail(path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableReadFailed,
			"failed to read table").WithDetail(path)
	}

	t := &Table{}
	if hasHeader && len(records) > 0 {
		t.Header = records[0]
		t.Rows = records[1:]
	} else {
		t.Rows = records
	}
	return t, nil
}

// Save writes the table to path with the given delimiter, header first when
// present.
func (t *Table) Save(path string, delimiter rune) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed,
			"failed to create table file").WithDetail(path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			return errors.Wrap(err, errors.ErrCodeTableWriteFailed,
				"failed to write header").WithDetail(path)
		}
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed,
			"failed to write rows").WithDetail(path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed,
			"failed to flush table").WithDetail(path)
	}
	return nil
}

// Merge concatenates the columns of two tables with identical row counts.
// Headers are concatenated when both tables carry one; a header on only one
// side is a shape mismatch.
func Merge(a, b *Table) (*Table, error) {
	if a.NumRows() != b.NumRows() {
		return nil, errors.Newf(errors.ErrCodeTableShapeMismatch,
			"cannot merge tables with %d and %d rows", a.NumRows(), b.NumRows())
	}
	if (len(a.Header) > 0) != (len(b.Header) > 0) {
		return nil, errors.New(errors.ErrCodeTableShapeMismatch,
			"cannot merge a table with a header into one without")
	}

	out := &Table{}
	if len(a.Header) > 0 {
		out.Header = append(append([]string{}, a.Header...), b.Header...)
	}
	out.Rows = make([][]string, a.NumRows())
	for i := range a.Rows {
		out.Rows[i] = append(append([]string{}, a.Rows[i]...), b.Rows[i]...)
	}
	return out, nil
}

// Split divides a table column-wise: the first table keeps columns [0, k),
// the second the rest.  k must lie strictly inside the column range.
func Split(t *Table, k int) (*Table, *Table, error) {
	cols := t.NumCols()
	if k < 1 || k >= cols {
		return nil, nil, errors.Newf(errors.ErrCodeTableBadSplit,
			"split point %d must be in range 1 to %d", k, cols-1)
	}

	left := &Table{}
	right := &Table{}
	if len(t.Header) > 0 {
		left.Header = append([]string{}, t.Header[:k]...)
		right.Header = append([]string{}, t.Header[k:]...)
	}
	left.Rows = make([][]string, len(t.Rows))
	right.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != cols {
			return nil, nil, errors.Newf(errors.ErrCodeTableShapeMismatch,
				"row %d has %d columns, expected %d", i, len(row), cols)
		}
		left.Rows[i] = append([]string{}, row[:k]...)
		right.Rows[i] = append([]string{}, row[k:]...)
	}
	return left, right, nil
}
