package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"bookcsv/models"
)

// PreviewWriter renders a bounded, aligned table to the console. Field
// values are capped at ColWidth characters for display only; file output
// is never truncated.
type PreviewWriter struct {
	out      io.Writer
	maxRows  int
	colWidth int

	shown int
	total int
}

// NewPreviewWriter builds a preview writer printing at most maxRows rows.
func NewPreviewWriter(out io.Writer, maxRows, colWidth int) *PreviewWriter {
	if maxRows <= 0 {
		maxRows = 10
	}
	if colWidth <= 0 {
		colWidth = 80
	}
	return &PreviewWriter{
		out:      out,
		maxRows:  maxRows,
		colWidth: colWidth,
	}
}

// Write renders the first maxRows records as an aligned table.
func (pw *PreviewWriter) Write(records []*models.Record) error {
	pw.total += len(records)

	tw := tabwriter.NewWriter(pw.out, 0, 4, 2, ' ', 0)
	if pw.shown == 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(models.Header(), "\t")); err != nil {
			return fmt.Errorf("write preview header: %w", err)
		}
	}

	for _, record := range records {
		if pw.shown >= pw.maxRows {
			break
		}
		cells := recordRow(record)
		for i, cell := range cells {
			cells[i] = truncate(cell, pw.colWidth)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("write preview row: %w", err)
		}
		pw.shown++
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush preview table: %w", err)
	}
	return nil
}

// Close prints a trailer when rows were withheld from the preview.
func (pw *PreviewWriter) Close() error {
	if pw.total > pw.shown {
		if _, err := fmt.Fprintf(pw.out, "(showing first %d of %d rows)\n", pw.shown, pw.total); err != nil {
			return fmt.Errorf("write preview trailer: %w", err)
		}
	}
	return nil
}

// Validate is a no-op for console output.
func (pw *PreviewWriter) Validate() error {
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
