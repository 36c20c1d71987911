package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookcsv/config"
	"bookcsv/export"
	"bookcsv/fetcher"
	"bookcsv/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	maxDefault := defaultCfg.MaxResults
	if value, ok, err := config.EnvInt("BOOKS_MAX"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid BOOKS_MAX: %v\n", err)
		os.Exit(1)
	} else if ok {
		maxDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("BOOKS_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("BOOKS_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	query := flag.String("q", "", "Search query (required), e.g. 'atomic habits'")
	maxResults := flag.Int("max", maxDefault, "Maximum results to fetch")
	pageSize := flag.Int("page-size", defaultCfg.PageSize, "Results per request (max 40)")
	outputFile := flag.String("out", outputDefault, "Output file path (omit for a console preview)")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Delay between page requests (milliseconds)")
	timeoutS := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Search endpoint base URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	apiKey, _ := config.EnvString("GOOGLE_BOOKS_API_KEY")

	cfg := buildConfigFromFlags(defaultCfg, *query, *maxResults, *pageSize, apiKey, *outputFile, *outputFormat, *delayMs, *timeoutS, *baseURL, *metricsAddr, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting search",
		slog.String("query", cfg.Query),
		slog.Int("max_results", cfg.MaxResults),
		slog.Bool("api_key", cfg.APIKey != ""),
	)

	f, err := fetcher.NewFetcher(cfg)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && f.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(f.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := f.Fetch(ctx)
	if err != nil {
		slog.Error("fetch failed", slog.Any("error", err))
		os.Exit(1)
	}

	if len(result.Records) == 0 {
		slog.Info("no results found", slog.String("query", cfg.Query))
		shutdownMetrics(metricsServer)
		return
	}

	writer, err := createWriter(cfg)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Write(result.Records); err != nil {
		writer.Close()
		slog.Error("writing output", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("closing writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownMetrics(metricsServer)

	if cfg.OutputFile != "" {
		printSummary(result, cfg.OutputFile)
	}
}

func buildConfigFromFlags(cfg *config.Config, query string, maxResults, pageSize int, apiKey, outputFile, outputFormat string, delayMs, timeoutS int, baseURL, metricsAddr string, verbose bool) *config.Config {
	cfg.Query = query
	cfg.MaxResults = maxResults
	cfg.PageSize = pageSize
	cfg.APIKey = apiKey
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.Delay = time.Duration(delayMs) * time.Millisecond
	cfg.Timeout = time.Duration(timeoutS) * time.Second
	cfg.BaseURL = baseURL
	cfg.MetricsAddr = metricsAddr
	cfg.Verbose = verbose
	return cfg
}

func createWriter(cfg *config.Config) (export.RecordWriter, error) {
	if cfg.OutputFile == "" {
		return export.NewPreviewWriter(os.Stdout, cfg.PreviewRows, cfg.PreviewColWidth), nil
	}
	switch cfg.OutputFormat {
	case "json":
		return export.NewJSONWriter(cfg.OutputFile)
	case "csv":
		return export.NewCSVWriter(cfg.OutputFile)
	case "dual":
		jsonFilename := strings.TrimSuffix(cfg.OutputFile, ".csv") + ".jsonl"
		return export.NewDualWriter(cfg.OutputFile, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(result *models.FetchResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Search complete")
	fmt.Printf("  Records:       %d\n", len(result.Records))
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	if result.Duplicates > 0 {
		fmt.Printf("  Duplicates:    %d\n", result.Duplicates)
	}
	fmt.Printf("  Advertised:    %d\n", result.TotalItems)
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
