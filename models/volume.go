// Package models defines data structures shared across the exporter.
package models

import "time"

// Item is one raw search result as returned by the volumes endpoint.
// It stays an untyped map so that lookups can be defensive per-field:
// one malformed item must never abort an otherwise-successful run.
type Item map[string]any

// SearchResponse is one page of the volumes search endpoint.
type SearchResponse struct {
	Kind       string `json:"kind"`
	TotalItems int    `json:"totalItems"`
	Items      []Item `json:"items"`
}

// Record is the flattened, fixed-shape row derived from one Item.
// Field order here is the CSV column order.
type Record struct {
	Title         string  `csv:"title" json:"title"`
	Authors       string  `csv:"authors" json:"authors"`
	Publisher     string  `csv:"publisher" json:"publisher"`
	PublishedDate string  `csv:"publishedDate" json:"publishedDate"`
	Categories    string  `csv:"categories" json:"categories"`
	PageCount     int     `csv:"pageCount" json:"pageCount"`
	AverageRating float64 `csv:"averageRating" json:"averageRating"`
	Language      string  `csv:"language" json:"language"`
	InfoLink      string  `csv:"infoLink" json:"infoLink"`
}

// Header is the fixed CSV header row, matching Record field order.
func Header() []string {
	return []string{
		"title", "authors", "publisher", "publishedDate", "categories",
		"pageCount", "averageRating", "language", "infoLink",
	}
}

// FetchResult holds the overall outcome of one fetch run.
type FetchResult struct {
	Records      []*Record
	StartTime    time.Time
	EndTime      time.Time
	TotalItems   int // count advertised by the upstream, informational only
	RequestCount int
	PageCount    int
	Duplicates   int
}
