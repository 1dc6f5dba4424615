package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"forum-scraper/pkg/config"
	applog "forum-scraper/pkg/log"
	"forum-scraper/pkg/orchestrate"
	"forum-scraper/pkg/parse"
	"forum-scraper/pkg/storage"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		os.Exit(runCrawl(os.Args[2:]))
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("forum-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsageTo(os.Stderr)
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `forum-scraper - Paginated forum crawler

Usage:
  forum-scraper <command> [options]

Commands:
  crawl       Crawl a page range and store the posts
  validate    Validate configuration file
  version     Show version info

Run 'forum-scraper <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// crawlOverrides holds CLI flags that take precedence over the config file; zero values are ignored
type crawlOverrides struct {
	from  int
	to    int
	limit int
	sink  string
}

// applyOverrides applies CLI flag overrides. Must run before Validate so defaults see them.
func applyOverrides(appCfg *config.AppConfig, o crawlOverrides, log *logrus.Logger) {
	if o.from > 0 {
		appCfg.PageFrom = o.from
		log.Infof("page_from overridden via CLI flag: %d", o.from)
	}
	if o.to > 0 {
		appCfg.PageTo = o.to
		log.Infof("page_to overridden via CLI flag: %d", o.to)
	}
	if o.limit > 0 {
		appCfg.MaxRequests = o.limit
		log.Infof("max_requests overridden via CLI flag: %d", o.limit)
	}
	if o.sink != "" {
		appCfg.Sink.Type = o.sink
		log.Infof("sink.type overridden via CLI flag: %s", o.sink)
	}
}

// runCrawl handles the crawl subcommand and returns the exit code
func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	from := fs.Int("from", 0, "First listing page (overrides page_from)")
	to := fs.Int("to", 0, "Last listing page (overrides page_to)")
	limit := fs.Int("limit", 0, "Max requests in flight (overrides max_requests)")
	sinkType := fs.String("sink", "", "Sink type: postgres, sqlite, badger or jsonl (overrides sink.type)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: forum-scraper crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  forum-scraper crawl -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  forum-scraper crawl -from 1 -to 4 -limit 2 -sink sqlite\n")
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	log := applog.NewLogger(os.Stderr, *logLevel)

	log.Infof("Loading configuration from %s", *configFile)
	appCfg, err := loadConfig(*configFile)
	if err != nil {
		log.Errorf("Config error: %v", err)
		return 1
	}
	applyOverrides(appCfg, crawlOverrides{from: *from, to: *to, limit: *limit, sink: *sinkType}, log)

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		return 1
	}
	logAppConfig(appCfg, log)
	startPprof(*pprofAddr, log)

	// --- Context & Signal Handling ---
	crawlCtx, cancelCrawl := context.WithCancel(context.Background())
	defer cancelCrawl()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		log.Warnf("Received signal: %v. Cancelling crawl...", sig)
		cancelCrawl()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	entry := logrus.NewEntry(log)

	sink, err := storage.NewSink(crawlCtx, appCfg.Sink, entry)
	if err != nil {
		log.Errorf("Failed to open sink: %v", err)
		return 1
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("Closing sink: %v", err)
		}
	}()

	orchestrator, err := orchestrate.NewOrchestrator(appCfg, entry)
	if err != nil {
		log.Errorf("Failed to initialize crawler: %v", err)
		return 1
	}

	result, err := orchestrator.RunAndStore(crawlCtx, sink)
	if err != nil {
		log.Errorf("Crawl finished with error: %v", err)
		return 1
	}

	log.Infof("Crawl completed: %d records from %d pages (%d failed).",
		result.Len(), len(result.Pages), len(result.FailedPages()))
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: forum-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if _, err := parse.NewExtractor(parse.RulesFromConfig(appCfg)); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	urls, err := orchestrate.PageURLs(appCfg.BaseURL, appCfg.ForumPath, appCfg.PageRange(), appCfg.PageSize)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "OK: pages %d-%d (%d listing URLs), first %s\n", appCfg.PageFrom, appCfg.PageTo, len(urls), urls[0])
	fmt.Fprintf(stdout, "OK: sink %s\n", appCfg.Sink.Type)

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr == "" {
		return
	}
	go func() {
		log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Errorf("Pprof server failed to start on %s: %v", addr, err)
		}
	}()
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Base:%s, Forum:%s, Pages:%d-%d, PageSize:%d",
		appCfg.BaseURL, appCfg.ForumPath, appCfg.PageFrom, appCfg.PageTo, appCfg.PageSize)
	log.Infof("Config: MaxReqs:%d, FetchTimeout:%v, MaxBody:%d bytes, Headers:%d",
		appCfg.MaxRequests, appCfg.FetchTimeout, appCfg.MaxBodyBytes, len(appCfg.Headers))
	log.Infof("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, TLSTimeout:%v, DialerTimeout:%v",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.IdleConnTimeout, appCfg.HTTPClientSettings.TLSHandshakeTimeout, appCfg.HTTPClientSettings.DialerTimeout)
	log.Infof("Config Sink: Type:%s, Collection:%s, Path:'%s'",
		appCfg.Sink.Type, appCfg.Sink.Collection, appCfg.Sink.Path)
}
