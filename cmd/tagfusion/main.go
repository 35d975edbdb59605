// cmd/tagfusion/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantara/tagfusion/internal/collector"
	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/extract"
	"github.com/vantara/tagfusion/internal/hostpage"
	"github.com/vantara/tagfusion/internal/identity"
	"github.com/vantara/tagfusion/internal/monitoring"
	"github.com/vantara/tagfusion/internal/pipeline"
	"github.com/vantara/tagfusion/internal/pixels"
	"github.com/vantara/tagfusion/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "test-selector":
		testSelectorCmd(os.Args[2:])
	case "version":
		fmt.Printf("tagfusion %s (built %s)\n", version, buildTime)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: tagfusion <command> [flags]

commands:
  run            run the tracking pipeline against a page
  validate       check a bootstrap configuration file
  test-selector  dry-run a CSS selector against a page
  version        print version information`)
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("c", "tagfusion.yaml", "bootstrap configuration file")
	pageURL := fs.String("u", "", "page URL to track")
	htmlFile := fs.String("f", "", "local HTML file to track (overrides -u for loading)")
	once := fs.Bool("once", false, "run a single cycle and exit")
	fs.Parse(args)

	cfg, err := config.LoadBootstrap(*configFile)
	if err != nil {
		fatal(err)
	}
	if *pageURL == "" && *htmlFile == "" {
		fatal(fmt.Errorf("one of -u or -f is required"))
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	page, err := loadPage(ctx, cfg, *pageURL, *htmlFile)
	if err != nil {
		fatal(err)
	}

	cfgClient, err := config.NewClient(config.ClientOptions{
		Endpoint: cfg.ConfigURL,
		APIKey:   cfg.APIKey,
		Logger:   logger,
	})
	if err != nil {
		fatal(err)
	}

	collectorClient, err := collector.NewClient(collector.Options{
		Endpoint: cfg.CollectorURL,
		APIKey:   cfg.APIKey,
		Logger:   logger,
	})
	if err != nil {
		fatal(err)
	}

	durable, err := identity.NewSQLiteTier(cfg.IdentityPath)
	if err != nil {
		fatal(err)
	}
	defer durable.Close()
	idManager := identity.NewManager(logger, identity.NewMemoryTier(), durable)

	metrics := monitoring.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics, logger)
	}

	pipe := pipeline.New(pipeline.Options{
		Page:         page,
		ConfigClient: cfgClient,
		Collector:    collectorClient,
		PixelRuntime: pixels.NewScriptRuntime(10*time.Second, logger),
		Identity:     idManager,
		Metrics:      metrics,
		Logger:       logger,
		SettleDelay:  cfg.SettleDelay,
		PollInterval: cfg.PollInterval,
	})

	if err := pipe.Start(ctx); err != nil {
		// No tracking for this page; exit quietly with a nonzero code.
		os.Exit(1)
	}
	defer pipe.Stop()

	if *once {
		printDiagnostics(pipe)
		return
	}

	logger.Info("pipeline running, ctrl-c to stop")
	<-ctx.Done()
	printDiagnostics(pipe)
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("c", "tagfusion.yaml", "bootstrap configuration file")
	fs.Parse(args)

	if _, err := config.LoadBootstrap(*configFile); err != nil {
		fatal(err)
	}
	fmt.Printf("configuration file %q is valid\n", *configFile)
}

func testSelectorCmd(args []string) {
	fs := flag.NewFlagSet("test-selector", flag.ExitOnError)
	configFile := fs.String("c", "tagfusion.yaml", "bootstrap configuration file")
	pageURL := fs.String("u", "", "page URL")
	htmlFile := fs.String("f", "", "local HTML file")
	selector := fs.String("s", "", "CSS selector to test")
	fs.Parse(args)

	if *selector == "" {
		fatal(fmt.Errorf("-s selector is required"))
	}
	cfg, err := config.LoadBootstrap(*configFile)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	page, err := loadPage(ctx, cfg, *pageURL, *htmlFile)
	if err != nil {
		fatal(err)
	}

	result := extract.NewManualMappingCollector(utils.NewLogger()).TestSelector(page, *selector)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func loadPage(ctx context.Context, cfg *config.Bootstrap, pageURL, htmlFile string) (*hostpage.Page, error) {
	if htmlFile != "" {
		data, err := os.ReadFile(htmlFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read page file: %w", err)
		}
		return hostpage.FromHTML(string(data), pageURL)
	}

	var loader hostpage.Loader
	if cfg.LoaderMode == "render" {
		loader = hostpage.NewRenderLoader(hostpage.DefaultRenderConfig())
	} else {
		loader = hostpage.NewHTTPLoader(hostpage.HTTPLoaderOptions{})
	}
	return loader.Load(ctx, pageURL)
}

func serveMetrics(addr string, metrics *monitoring.Metrics, logger utils.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Infof("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server: %v", err)
	}
}

func printDiagnostics(pipe *pipeline.Pipeline) {
	out, err := json.MarshalIndent(pipe.Diagnostics(), "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "tagfusion: %v\n", err)
	os.Exit(1)
}
