package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor    bool
	NoProgress bool
	Verbose    bool

	ConfigFile  string
	TokenFile   string
	ValidFile   string
	ProxyURL    string
	Concurrency int // 0 means "prompt"
}

const usageText = `
usage:
  krexcheck [flags]

Reads a newline-delimited token list, validates every token concurrently and
appends the valid ones to the output file as results arrive.

flags:
  -h, --help            show this help message and exit
  --no-color            disable colored stdout output
  --no-progress         disable the progress bar
  -v, --verbose         per-account detail for valid tokens

options:
  --config PATH         config file (default: config.yml)
  --tokens PATH         token list file (overrides config)
  --out PATH            valid-token output file (overrides config)
  --proxy URL           socks5:// proxy for all requests
  --concurrency N       worker count 1-100 (default: prompt)
`

func Parse(args []string, stdout, stderr io.Writer) (Options, error) {
	var opts Options
	var help bool

	fs := flag.NewFlagSet("krexcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.NoProgress, "no-progress", false, "disable the progress bar")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose output")

	fs.StringVar(&opts.ConfigFile, "config", "config.yml", "config file path")
	fs.StringVar(&opts.TokenFile, "tokens", "", "token list file")
	fs.StringVar(&opts.ValidFile, "out", "", "valid-token output file")
	fs.StringVar(&opts.ProxyURL, "proxy", "", "socks5 proxy url")
	fs.IntVar(&opts.Concurrency, "concurrency", 0, "worker count 1-100")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if help {
		fs.Usage()
		return Options{}, ErrHelp
	}

	return opts, nil
}

// PromptConcurrency asks for the worker count. Non-numeric or out-of-range
// input falls back to 1 with a printed warning, never an error.
func PromptConcurrency(stdout io.Writer, stdin io.Reader, noColor bool) int {
	if noColor {
		fmt.Fprint(stdout, "Thread Count? (1-100): ")
	} else {
		fmt.Fprint(color.Output, color.YellowString("Thread Count? (1-100): "))
	}

	r := bufio.NewReader(stdin)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > 100 {
		if noColor {
			fmt.Fprintln(stdout, "Invalid choice, using (1)...")
		} else {
			fmt.Fprintln(color.Output, color.RedString("Invalid choice, using (1)..."))
		}
		return 1
	}
	return n
}
