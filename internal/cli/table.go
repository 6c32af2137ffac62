package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// table renders aligned columns with a colored header.
type table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

func newTable(w io.Writer, headers ...string) *table {
	return &table{w: w, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	for i, h := range t.headers {
		header.Fprint(t.w, pad(h, widths[i], i == len(t.headers)-1))
	}
	fmt.Fprintln(t.w)

	sep := color.New(color.FgHiBlack)
	for i, width := range widths {
		sep.Fprint(t.w, pad(strings.Repeat("-", width), width, i == len(widths)-1))
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprint(t.w, pad(cell, widths[i], i == len(widths)-1))
		}
		fmt.Fprintln(t.w)
	}
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return s + strings.Repeat(" ", width-len(s)+2)
}

// title prints a bold section heading.
func title(w io.Writer, format string, args ...any) {
	color.New(color.Bold).Fprintf(w, format+"\n", args...)
}
