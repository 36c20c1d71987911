// Package fetcher collects paginated search results from the volumes API.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookcsv/config"
	"bookcsv/models"
	"bookcsv/parser"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const snippetLimit = 200

// Fetcher issues paginated GET requests against the search endpoint and
// flattens the returned items. Execution is strictly sequential: one
// in-flight request at a time, no state shared across runs.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	// per-visit response slots, valid because requests are sequential
	page    *models.SearchResponse
	pageErr error
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}
	f.registerHandlers()
	return f, nil
}

func (f *Fetcher) registerHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		f.Metrics.IncRequest()
		slog.Debug("requesting page", slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.Metrics.ObserveDuration(time.Since(start))
		}

		var page models.SearchResponse
		if err := json.Unmarshal(r.Body, &page); err != nil {
			f.pageErr = ParseError{Err: err}
			return
		}
		f.page = &page
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		var body []byte
		if r != nil {
			statusCode = r.StatusCode
			body = r.Body
		}
		f.pageErr = classifyError(err, statusCode, body)
	})
}

// Fetch runs the pagination loop until MaxResults records are collected,
// the upstream signals exhaustion with a short or empty page, or a safety
// bound is reached. A failed page aborts the whole run; partial pages are
// discarded.
func (f *Fetcher) Fetch(ctx context.Context) (*models.FetchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	seen, err := lru.New[string, struct{}](f.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("init dedupe cache: %w", err)
	}

	result := &models.FetchResult{
		StartTime: time.Now(),
	}
	records := make([]*models.Record, 0, f.cfg.MaxResults)
	start := 0
	emptyStreak := 0

	for len(records) < f.cfg.MaxResults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageSize := f.cfg.PageSize
		if remaining := f.cfg.MaxResults - len(records); remaining < pageSize {
			pageSize = remaining
		}

		page, err := f.fetchPage(start, pageSize)
		if err != nil {
			slog.Error("page fetch failed",
				slog.Int("start_index", start),
				slog.String("category", errorTypeLabel(err)),
				slog.Any("error", err),
			)
			return nil, err
		}

		result.RequestCount++
		result.PageCount++
		f.Metrics.IncPage()
		if result.TotalItems == 0 {
			result.TotalItems = page.TotalItems
		}

		received := len(page.Items)
		if received == 0 {
			slog.Debug("empty page, stopping", slog.Int("start_index", start))
			break
		}

		added := 0
		for _, item := range page.Items {
			if len(records) >= f.cfg.MaxResults {
				break
			}
			if id := parser.VolumeID(item); id != "" {
				if ok, _ := seen.ContainsOrAdd(id, struct{}{}); ok {
					result.Duplicates++
					f.Metrics.IncDuplicate()
					continue
				}
			}
			records = append(records, parser.Flatten(item))
			added++
		}
		f.Metrics.AddItems(added)

		slog.Debug("page collected",
			slog.Int("start_index", start),
			slog.Int("received", received),
			slog.Int("added", added),
			slog.Int("collected", len(records)),
		)

		if received < pageSize {
			// short page signals exhaustion, regardless of totalItems
			break
		}

		if added == 0 {
			emptyStreak++
			if emptyStreak >= f.cfg.MaxEmptyPages {
				slog.Warn("consecutive pages added no new records, stopping",
					slog.Int("pages", emptyStreak))
				break
			}
		} else {
			emptyStreak = 0
		}

		// advance by items received, not by the requested cap: the upstream
		// may serve short pages for reasons other than exhaustion
		start += received

		if result.PageCount >= f.cfg.MaxPages {
			slog.Warn("page safety bound reached", slog.Int("pages", result.PageCount))
			break
		}

		// no delay after the final page
		if f.cfg.Delay > 0 && len(records) < f.cfg.MaxResults {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.cfg.Delay):
			}
		}
	}

	result.Records = records
	result.EndTime = time.Now()
	return result, nil
}

func (f *Fetcher) fetchPage(start, count int) (*models.SearchResponse, error) {
	f.page, f.pageErr = nil, nil

	params := url.Values{}
	params.Set("q", f.cfg.Query)
	params.Set("startIndex", strconv.Itoa(start))
	params.Set("maxResults", strconv.Itoa(count))
	if f.cfg.APIKey != "" {
		params.Set("key", f.cfg.APIKey)
	}

	visitErr := f.collector.Visit(f.cfg.BaseURL + "?" + params.Encode())

	if f.pageErr != nil {
		f.Metrics.IncError(errorTypeLabel(f.pageErr))
		return nil, f.pageErr
	}
	if f.page == nil {
		err := visitErr
		if err == nil {
			err = fmt.Errorf("no response received")
		}
		classified := classifyError(err, 0, nil)
		f.Metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}
	return f.page, nil
}

func classifyError(err error, statusCode int, body []byte) error {
	if statusCode >= 300 {
		return UpstreamError{
			StatusCode: statusCode,
			Snippet:    bodySnippet(body),
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	return err
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLimit {
		s = s[:snippetLimit]
	}
	return s
}
