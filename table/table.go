// Package table renders aligned text tables for the command line tools
package table

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// FormatFunc colours a cell after its width has been measured
type FormatFunc func(value string) string

// Column describes one column of a table
type Column struct {
	Header string
	Right  bool       // Right align, used for numbers and addresses
	Format FormatFunc // Applied only when the table is coloured
}

// Table collects rows and writes them with every column padded to its widest cell
type Table struct {
	columns []Column
	rows    [][]string
	widths  []int

	// Color enables header styling and column formatters
	Color bool
}

func New(cols ...Column) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}
	for i, col := range cols {
		t.widths[i] = utf8.RuneCountInString(col.Header)
	}
	return t
}

// AddRow appends a row. Missing cells render as "-", extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		row[i] = "-"
		if i < len(cells) && cells[i] != "" {
			row[i] = cells[i]
		}
		t.widths[i] = max(t.widths[i], utf8.RuneCountInString(row[i]))
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	rules := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(i, col.Header)
		if t.Color {
			headers[i] = coloransi.Foreground(coloransi.Cyan, headers[i])
		}
		rules[i] = strings.Repeat("-", t.widths[i])
	}

	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(headers, " "), " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(rules, " ")); err != nil {
		return err
	}

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, val := range row {
			cells[i] = t.pad(i, val)
			if t.Color && t.columns[i].Format != nil {
				cells[i] = strings.Replace(cells[i], val, t.columns[i].Format(val), 1)
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " ")); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) pad(col int, s string) string {
	fill := t.widths[col] - utf8.RuneCountInString(s)
	if fill <= 0 {
		return s
	}
	if t.columns[col].Right {
		return strings.Repeat(" ", fill) + s
	}
	return s + strings.Repeat(" ", fill)
}
