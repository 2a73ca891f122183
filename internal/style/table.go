// Package style renders the small tables rvfuzz's CLI prints, such as the
// info subcommand's segment layout.
package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	addrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Table renders a header row and a set of data rows as fixed-width
// columns, right-padded to the widest cell in each column.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns a Table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Row appends one data row. Its length should match the header count.
func (t *Table) Row(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Render lays the table out as a string, ready to print.
func (t *Table) Render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, cellFn func(string) string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			padded := c + strings.Repeat(" ", widths[i]-len(c))
			parts[i] = cellStyle.Render(cellFn(padded))
		}
		b.WriteString(strings.Join(parts, borderStyle.Render("|")))
		b.WriteString("\n")
	}

	writeRow(t.headers, headerStyle.Render)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w+2)
	}
	b.WriteString(borderStyle.Render(strings.Join(sep, "+")))
	b.WriteString("\n")
	for _, row := range t.rows {
		writeRow(row, func(s string) string { return s })
	}
	return b.String()
}

// Addr renders a hex address with a consistent accent color across every
// table that includes one.
func Addr(s string) string {
	return addrStyle.Render(s)
}
