package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders aligned columns without visible borders. Columns listed as
// numeric are right-aligned.
type Table struct {
	headers []string
	rows    [][]string
	numeric map[int]bool
	width   int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, numeric: make(map[int]bool)}
}

// Numeric marks columns to right-align.
func (t *Table) Numeric(cols ...int) *Table {
	for _, c := range cols {
		t.numeric[c] = true
	}
	return t
}

// Width caps the rendered width; long cells are truncated to fit.
func (t *Table) Width(w int) *Table {
	t.width = w
	return t
}

// AddRow adds a row, padding or trimming it to the header count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// String renders the table, or "" when it has no rows.
func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}

	rows := t.rows
	if t.width > 0 {
		rows = t.fit()
	}

	lt := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		Headers(t.headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(1)
			if t.numeric[col] {
				s = s.Align(lipgloss.Right)
			}
			if row == table.HeaderRow {
				return s.Inherit(Muted)
			}
			return s
		})
	return strings.TrimRight(lt.String(), "\n") + "\n"
}

// fit truncates the widest column until the table fits t.width.
func (t *Table) fit() [][]string {
	widths := make([]int, len(t.headers))
	measure := func(row []string) {
		for i, c := range row {
			if w := lipgloss.Width(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, r := range t.rows {
		measure(r)
	}

	total := 0
	widest := 0
	for i, w := range widths {
		total += w + 2
		if w > widths[widest] {
			widest = i
		}
	}
	over := total - t.width
	if over <= 0 {
		return t.rows
	}
	limit := widths[widest] - over
	if limit < 8 {
		limit = 8
	}

	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := append([]string(nil), r...)
		row[widest] = Truncate(row[widest], limit)
		out[i] = row
	}
	return out
}
