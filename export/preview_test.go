package export

import (
	"fmt"
	"strings"
	"testing"

	"bookcsv/models"
)

func manyRecords(n int) []*models.Record {
	records := make([]*models.Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, &models.Record{
			Title:    fmt.Sprintf("Book %d", i),
			Authors:  "Some Author",
			Language: "en",
		})
	}
	return records
}

func TestPreviewWriterBoundsRows(t *testing.T) {
	var buf strings.Builder
	writer := NewPreviewWriter(&buf, 10, 80)

	if err := writer.Write(manyRecords(15)); err != nil {
		t.Fatalf("write preview: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close preview: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header + 10 rows + trailer
	if len(lines) != 12 {
		t.Fatalf("lines=%d, want 12:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "title") {
		t.Fatalf("missing header line: %q", lines[0])
	}
	if !strings.Contains(lines[11], "showing first 10 of 15 rows") {
		t.Fatalf("missing trailer: %q", lines[11])
	}
	if strings.Contains(out, "Book 11") {
		t.Fatalf("row past the preview bound was printed")
	}
}

func TestPreviewWriterNoTrailerWhenAllShown(t *testing.T) {
	var buf strings.Builder
	writer := NewPreviewWriter(&buf, 10, 80)

	if err := writer.Write(manyRecords(3)); err != nil {
		t.Fatalf("write preview: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close preview: %v", err)
	}

	if strings.Contains(buf.String(), "showing first") {
		t.Fatalf("unexpected trailer:\n%s", buf.String())
	}
}

func TestPreviewWriterTruncatesWideCells(t *testing.T) {
	var buf strings.Builder
	writer := NewPreviewWriter(&buf, 10, 20)

	long := strings.Repeat("verylongtitle", 10)
	if err := writer.Write([]*models.Record{{Title: long}}); err != nil {
		t.Fatalf("write preview: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close preview: %v", err)
	}

	if strings.Contains(buf.String(), long) {
		t.Fatalf("wide cell was not truncated")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Fatalf("truncated cell missing ellipsis:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly ten..", max: 13, want: "exactly ten.."},
		{in: "abcdefghij", max: 5, want: "ab..."},
		{in: "abc", max: 2, want: "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
