package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/atotto/clipboard"

	"github.com/sadopc/spoonemu/internal/config"
	"github.com/sadopc/spoonemu/internal/logger"
	"github.com/sadopc/spoonemu/internal/message"
)

func fetchCmd(cfg config.Config) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	typeFlag := fs.String("type", "response", "Message type: response or request")
	timeoutFlag := fs.Duration("timeout", cfg.Timeout, "HTTP request timeout")
	bodyFlag := fs.Bool("body", false, "Print the response body")
	copyFlag := fs.Bool("copy", false, "Copy the response headers to the clipboard")
	proxyFlag := fs.String("proxy", cfg.Proxy, "Proxy URL (http, https or socks5)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spoonemu fetch <url> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Fetch a URL and print the status, headers and body exactly as a\n")
		fmt.Fprintf(os.Stderr, "server script would see them.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spoonemu fetch https://example.com/\n")
		fmt.Fprintf(os.Stderr, "  spoonemu fetch https://example.com/ --body --copy\n")
	}

	args, err := parseArgs(fs, os.Args[2:])
	if err != nil {
		exit(2)
	}
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: URL is required\n\n")
		fs.Usage()
		exit(2)
	}

	mt, err := message.ParseMessageType(*typeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	msg := message.Open(ctx, args[0], mt,
		message.WithTimeout(*timeoutFlag),
		message.WithProxy(*proxyFlag, cfg.NoProxy),
		message.WithLogger(logger.L()),
	)
	printFetch(os.Stdout, msg, *bodyFlag)
	_ = msg.Close()
	cancel()

	if *copyFlag {
		if err := clipboard.WriteAll(msg.ResponseHeaders()); err != nil {
			fmt.Fprintf(os.Stderr, "Error copying to clipboard: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Headers copied to clipboard\n")
		}
	}

	if err := msg.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(2)
	}
	exit(0)
}

// printFetch writes the getType/getUrl line, getResponseHeaders and,
// when body is set, getBody.
func printFetch(w io.Writer, msg *message.Message, body bool) {
	fmt.Fprintf(w, "%s %s\n", msg.Type(), msg.URL())
	fmt.Fprint(w, msg.ResponseHeaders())
	if body {
		fmt.Fprint(w, message.LineSeparator)
		fmt.Fprint(w, msg.Body())
	}
}
