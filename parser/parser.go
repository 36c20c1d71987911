// Package parser flattens raw volume items into fixed-shape records.
package parser

import (
	"strconv"
	"strings"

	"bookcsv/models"
)

// listSeparator joins multi-valued fields (authors, categories) into one cell.
const listSeparator = ", "

// Flatten maps one raw item to a Record. It never fails: every lookup is
// defensive, and absent or mistyped fields fall back to the zero value
// (empty string for text, 0 for numbers).
func Flatten(item models.Item) *models.Record {
	volume := subMap(item, "volumeInfo")

	return &models.Record{
		Title:         stringField(volume, "title"),
		Authors:       joinField(volume, "authors"),
		Publisher:     stringField(volume, "publisher"),
		PublishedDate: stringField(volume, "publishedDate"),
		Categories:    joinField(volume, "categories"),
		PageCount:     intField(volume, "pageCount"),
		AverageRating: floatField(volume, "averageRating"),
		Language:      stringField(volume, "language"),
		InfoLink:      stringField(volume, "infoLink"),
	}
}

// VolumeID extracts the upstream volume identifier, used for de-duplication
// across pages. Empty when the item carries no usable id.
func VolumeID(item models.Item) string {
	if item == nil {
		return ""
	}
	if id, ok := item["id"].(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// joinField joins a list of strings into a single delimited cell. A bare
// string passes through unchanged; non-string list elements are skipped.
func joinField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, listSeparator)
	case []string:
		return strings.Join(v, listSeparator)
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}
