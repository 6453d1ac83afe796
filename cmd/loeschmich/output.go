package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

const maxCellWidth = 40

// writeTable prints rows in aligned columns. Widths are measured in terminal
// cells so umlauts and wide characters line up.
func writeTable(w io.Writer, header []string, rows [][]string) {
	all := rows
	if header != nil {
		all = append([][]string{header}, rows...)
	}
	var widths []int
	for _, row := range all {
		for i, cell := range row {
			cw := min(runewidth.StringWidth(cell), maxCellWidth)
			if i >= len(widths) {
				widths = append(widths, cw)
			} else if cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	for _, row := range all {
		cells := make([]string, len(row))
		for i, cell := range row {
			cell = runewidth.Truncate(cell, maxCellWidth, "…")
			if i < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[i])
			}
			cells[i] = cell
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}
