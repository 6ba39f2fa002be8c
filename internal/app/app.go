package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/krexdev/krexcheck/internal/cli"
	"github.com/krexdev/krexcheck/internal/config"
	"github.com/krexdev/krexcheck/internal/httpx"
	"github.com/krexdev/krexcheck/internal/output"
	"github.com/krexdev/krexcheck/internal/pool"
	"github.com/krexdev/krexcheck/internal/probe"
	"github.com/krexdev/krexcheck/internal/queue"
	"github.com/krexdev/krexcheck/internal/stats"
	"github.com/krexdev/krexcheck/internal/store"
)

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "krexcheck - bulk token validation")

	opts, err := cli.Parse(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	color.NoColor = opts.NoColor

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	if opts.TokenFile != "" {
		cfg.TokenFile = opts.TokenFile
	}
	if opts.ValidFile != "" {
		cfg.ValidFile = opts.ValidFile
	}

	list, err := store.LoadTokens(cfg.TokenFile)
	if err != nil {
		fmt.Fprintf(stderr, "token list error: %v\n", err)
		return 1
	}
	if list.Total == 0 {
		fmt.Fprintf(stderr, "no tokens found in %q\n", cfg.TokenFile)
		return 1
	}

	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = cli.PromptConcurrency(stdout, stdin, opts.NoColor)
	}
	if concurrency < 1 || concurrency > pool.MaxConcurrency {
		fmt.Fprintln(stderr, "concurrency out of range, using 1")
		concurrency = 1
	}

	printer := output.NewPrinter(stdout, opts.NoColor, opts.Verbose)
	printStart(printer, list, concurrency, opts.NoColor)

	code, err := runChecks(ctx, cfg, opts, list, concurrency, printer, log)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return code
}

func runChecks(
	ctx context.Context,
	cfg config.Config,
	opts cli.Options,
	list store.TokenList,
	concurrency int,
	printer *output.Printer,
	log *logrus.Logger,
) (int, error) {
	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:  cfg.Timeout(),
		ProxyURL: opts.ProxyURL,
	})
	if err != nil {
		return 1, fmt.Errorf("initialize HTTP client: %w", err)
	}

	var writer *store.ValidWriter
	if cfg.SaveValid {
		writer, err = store.NewValidWriter(cfg.ValidFile)
		if err != nil {
			return 1, err
		}
		defer writer.Close()
	}

	agg := stats.New()

	client := probe.NewClient(httpClient, probe.ClientConfig{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		RetryLimit:        cfg.RetryLimit,
		RetryAfterDefault: cfg.RetryAfter(),
		BackoffBase:       cfg.BackoffBase(),
		JitterMax:         cfg.JitterMax(),
		MinRequestGap:     cfg.MinRequestGap(),
	}, log)
	client.OnRateLimit = agg.AddRateLimited

	prober := probe.NewProber(client, probe.Config{
		MinTokenLength: cfg.MinTokenLength,
		StrictFormat:   cfg.StrictFormat,
	}, log)

	var bar *progressbar.ProgressBar
	if !opts.NoProgress {
		bar = progressbar.NewOptions(list.Total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("checking"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	q := queue.New(list.Tokens)

	rec := &recorder{
		agg:     agg,
		printer: printer,
		writer:  writer,
		bar:     bar,
		total:   list.Total,
		log:     log,
	}

	p := pool.New(pool.Config{
		Concurrency:  concurrency,
		RequestDelay: cfg.RequestDelay(),
	}, log)

	used := p.Run(ctx, q, prober, rec)

	if bar != nil {
		_ = bar.Finish()
	}

	printer.Summary(agg.Snapshot(), list.Total, list.DuplicatesRemoved, used)
	if cfg.SaveValid {
		printer.Logger().Printf("Valid tokens saved to %q (%d total on disk)", cfg.ValidFile, store.CountLines(cfg.ValidFile))
	}

	if ctx.Err() != nil {
		return 130, nil // interrupted; appended output is already on disk
	}
	return 0, nil
}

// recorder fans one outcome out to the aggregator, the console, the valid
// file and the progress bar. One call per item.
type recorder struct {
	agg     *stats.Aggregator
	printer *output.Printer
	writer  *store.ValidWriter
	bar     *progressbar.ProgressBar
	total   int
	log     *logrus.Logger
}

func (r *recorder) Record(o probe.Outcome) {
	r.agg.Record(o)

	if r.bar != nil {
		_ = r.bar.Clear()
	}
	r.printer.Outcome(o, r.total)
	if r.bar != nil {
		_ = r.bar.Add(1)
	}

	if o.Kind == probe.OutcomeValid && r.writer != nil {
		if err := r.writer.Append(o.Payload); err != nil {
			r.log.Warnf("persist valid token: %v", err)
		}
	}
}

func printStart(printer *output.Printer, list store.TokenList, concurrency int, noColor bool) {
	logger := printer.Logger()
	if noColor {
		logger.Printf("Loaded %d tokens (%d duplicates removed), concurrency %d", list.Total, list.DuplicatesRemoved, concurrency)
		return
	}
	logger.Printf("Loaded %s tokens (%s duplicates removed), concurrency %s",
		color.HiGreenString("%d", list.Total),
		color.HiYellowString("%d", list.DuplicatesRemoved),
		color.HiGreenString("%d", concurrency),
	)
}
