// Command sitemap-extractor resolves a sitemap or sitemap index, local or
// remote, into a flat list of URLs and writes it in the requested format.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/sitemap-extractor/internal/browser"
	"github.com/Caia-Tech/sitemap-extractor/internal/config"
	"github.com/Caia-Tech/sitemap-extractor/internal/fetch"
	"github.com/Caia-Tech/sitemap-extractor/internal/netinfo"
	"github.com/Caia-Tech/sitemap-extractor/internal/output"
	"github.com/Caia-Tech/sitemap-extractor/internal/sitemap"
	"github.com/Caia-Tech/sitemap-extractor/pkg/logging"
	"github.com/rs/zerolog/log"
)

type options struct {
	source        string
	output        string
	format        string
	interactive   bool
	noBrowser     bool
	skipMalformed bool
	maxDepth      int
	logLevel      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// parseArgs accepts flags before and after the positional source.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("sitemap-extractor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: sitemap-extractor [flags] <sitemap path or URL>")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.output, "output", "", "output file path; stdout when empty")
	fs.StringVar(&opts.output, "o", "", "shorthand for --output")
	fs.StringVar(&opts.format, "format", "txt", "output format: txt, json, csv, xlsx, yaml")
	fs.StringVar(&opts.format, "f", "txt", "shorthand for --format")
	fs.BoolVar(&opts.interactive, "interactive", false, "run the guided mode")
	fs.BoolVar(&opts.interactive, "i", false, "shorthand for --interactive")
	fs.BoolVar(&opts.noBrowser, "no-browser", false, "never fall back to the interactive browser capture")
	fs.BoolVar(&opts.skipMalformed, "skip-malformed", false, "skip malformed sitemaps instead of aborting")
	fs.IntVar(&opts.maxDepth, "max-depth", 0, "maximum sitemap index nesting (default from SITEMAP_MAX_DEPTH)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if len(positional) > 1 {
		return nil, fmt.Errorf("expected one source, got %d", len(positional))
	}
	if len(positional) == 1 {
		opts.source = positional[0]
	}
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg := config.Load()
	if opts.maxDepth > 0 {
		cfg.MaxDepth = opts.maxDepth
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.skipMalformed {
		cfg.SkipMalformed = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	if err := logging.SetupLogger(&logging.LogConfig{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputFile: cfg.LogFile,
		Console:    true,
		Out:        stderr,
	}); err != nil {
		fmt.Fprintf(stderr, "Error: logger setup: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logPublicIP(ctx, cfg.IPEchoURL)

	if opts.interactive {
		log.Error().Msg("guided interactive mode is not available in this build; pass the source as an argument")
		return 1
	}
	if opts.source == "" {
		log.Error().Msg("you must provide a source (file path or URL) unless using --interactive")
		return 1
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		log.Error().Err(err).Msg("invalid --format")
		return 1
	}

	var capturer fetch.Capturer
	if cfg.BrowserEnabled && !opts.noBrowser {
		bcfg := browser.DefaultConfig()
		bcfg.NavigationTimeout = cfg.BrowserNavTimeout
		capturer = browser.NewCapturer(bcfg, &browser.TerminalConfirmer{In: stdin, Out: stderr}, stderr)
	}

	fetcher := fetch.NewFetcher(&fetch.Config{
		MaxAttempts:       cfg.FetchAttempts,
		Timeout:           cfg.FetchTimeout,
		BackoffMin:        cfg.BackoffMin,
		BackoffMax:        cfg.BackoffMax,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxBodySize:       cfg.MaxBodyBytes,
	}, nil, capturer)

	resolver := sitemap.NewResolver(fetcher, &sitemap.Options{
		MaxDepth:      cfg.MaxDepth,
		SkipMalformed: cfg.SkipMalformed,
	})

	result, err := resolver.Resolve(ctx, opts.source)
	if err != nil {
		log.Error().Err(err).Str("source", opts.source).Msg("resolution failed")
		return 1
	}
	if len(result.URLs) == 0 {
		log.Error().Str("source", opts.source).Int("warnings", len(result.Warnings)).Msg("no URLs found in the sitemap")
		return 1
	}
	log.Info().Int("urls", len(result.URLs)).Msg("total URLs extracted")

	if opts.output != "" {
		err = output.WriteFile(opts.output, result.URLs, format)
	} else {
		err = output.Write(stdout, result.URLs, format)
		if err == nil && (format == output.FormatTXT || format == output.FormatJSON) {
			_, err = fmt.Fprintln(stdout)
		}
	}
	if errors.Is(err, output.ErrBinaryFormat) {
		log.Warn().Msg("xlsx output cannot be displayed in the terminal, specify a file with --output/-o")
		return 0
	}
	if err != nil {
		log.Error().Err(err).Msg("writing output failed")
		return 1
	}

	if opts.output != "" {
		log.Info().Str("path", opts.output).Str("format", string(format)).Msg("output written")
	}
	return 0
}

// logPublicIP is informational only; failures never stop the run.
func logPublicIP(ctx context.Context, echoURL string) {
	if echoURL == "" || echoURL == "off" {
		return
	}
	ip, err := netinfo.PublicIP(ctx, nil, echoURL)
	if err != nil {
		log.Warn().Err(err).Msg("could not determine public IP")
		return
	}
	log.Info().Str("ip", ip).Msg("public IP used for requests")
}
