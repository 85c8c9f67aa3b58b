package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/sadopc/spoonemu/internal/config"
	"github.com/sadopc/spoonemu/internal/history"
	"github.com/sadopc/spoonemu/internal/logger"
	"github.com/sadopc/spoonemu/internal/message"
	"github.com/sadopc/spoonemu/internal/runner"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runCmd(cfg config.Config) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	typeFlag := fs.String("type", "response", "Message type: response or request")
	timeoutFlag := fs.Duration("timeout", cfg.Timeout, "HTTP request timeout")
	scriptTimeoutFlag := fs.Duration("script-timeout", cfg.ScriptTimeout, "Script execution timeout")
	matchFlag := fs.String("match", cfg.HeaderMatch, "Header name matching: pattern or literal")
	forceFlag := fs.Bool("force", false, "Run even when @status, @include/@exclude or @responsecode reject the URL")
	outputFlag := fs.String("output", "text", "Output format: text or json")
	bodyFlag := fs.Bool("body", false, "Show the response body")
	noHistoryFlag := fs.Bool("no-history", false, "Do not record this run")
	noHighlightFlag := fs.Bool("no-highlight", !cfg.Highlight, "Disable body syntax highlighting")
	proxyFlag := fs.String("proxy", cfg.Proxy, "Proxy URL (http, https or socks5)")
	var varFlags stringList
	fs.Var(&varFlags, "var", "Template variable key=value, may be repeated")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spoonemu run <script.js> <url> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Fetch a URL and run a server script against the response.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spoonemu run addheader.js https://example.com/\n")
		fmt.Fprintf(os.Stderr, "  spoonemu run rewrite.js 'https://{{host}}/index.html' --var host=example.org --body\n")
		fmt.Fprintf(os.Stderr, "  spoonemu run strip.js https://example.com/ --output json --no-history\n")
		fmt.Fprintf(os.Stderr, "\nExit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  Script ran or was skipped\n")
		fmt.Fprintf(os.Stderr, "  1  Script raised an error\n")
		fmt.Fprintf(os.Stderr, "  2  The URL could not be fetched or the arguments are invalid\n")
	}

	args, err := parseArgs(fs, os.Args[2:])
	if err != nil {
		exit(2)
	}
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: script path and URL are required\n\n")
		fs.Usage()
		exit(2)
	}

	switch *outputFlag {
	case "text", "json":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid output format %q (must be text or json)\n", *outputFlag)
		exit(2)
	}

	mt, err := message.ParseMessageType(*typeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(2)
	}
	vars, err := runner.ParseVars(varFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(2)
	}

	log := logger.L()
	var opts []runner.Option
	opts = append(opts, runner.WithLogger(log))

	var store *history.Store
	if cfg.History && !*noHistoryFlag {
		store, err = history.NewStore(cfg.HistoryPath)
		if err != nil {
			log.Warn("history disabled", zap.String("path", cfg.HistoryPath), zap.Error(err))
		} else {
			opts = append(opts, runner.WithHistory(store))
		}
	}

	r, err := runner.New(runner.Config{
		ScriptPath:    args[0],
		URL:           args[1],
		Vars:          vars,
		MessageType:   mt,
		Timeout:       *timeoutFlag,
		ScriptTimeout: *scriptTimeoutFlag,
		MatchMode:     message.ParseMatchMode(*matchFlag),
		Proxy:         *proxyFlag,
		NoProxy:       cfg.NoProxy,
		Force:         *forceFlag,
		CaptureBody:   *bodyFlag || *outputFlag == "json",
		Output:        adapterOutput(*outputFlag),
	}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeStore(store)
		exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	res := r.Run(ctx)
	cancel()
	closeStore(store)

	switch *outputFlag {
	case "json":
		if err := runner.PrintJSON(os.Stdout, res); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			exit(2)
		}
	default:
		runner.PrintText(os.Stdout, res, runner.TextOptions{
			ShowBody:  *bodyFlag,
			Highlight: !*noHighlightFlag,
			Theme:     cfg.Theme,
		})
	}

	exit(runner.ExitCode(res))
}

// adapterOutput is where setBody writes go. JSON mode keeps stdout for the
// document alone; the writes are still in Result.BodyWrites.
func adapterOutput(format string) io.Writer {
	if format == "json" {
		return io.Discard
	}
	return os.Stdout
}

func closeStore(store *history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.L().Warn("closing history failed", zap.Error(err))
	}
}
