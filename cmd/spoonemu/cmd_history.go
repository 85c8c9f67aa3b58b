package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/spoonemu/internal/config"
	"github.com/sadopc/spoonemu/internal/history"
)

func historyCmd(cfg config.Config) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limitFlag := fs.Int("limit", 20, "Maximum number of runs to show")
	searchFlag := fs.String("search", "", "Fuzzy search by script name and URL")
	clearFlag := fs.Bool("clear", false, "Delete all recorded runs")
	logsFlag := fs.Bool("logs", false, "Show script logs for each run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spoonemu history [flags]\n\n")
		fmt.Fprintf(os.Stderr, "List, search or clear recorded runs.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spoonemu history --limit 5\n")
		fmt.Fprintf(os.Stderr, "  spoonemu history --search addheader\n")
		fmt.Fprintf(os.Stderr, "  spoonemu history --clear\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		exit(1)
	}

	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}

	code := 0
	switch {
	case *clearFlag:
		n, _ := store.Count()
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		} else {
			fmt.Printf("Deleted %s run(s)\n", humanize.Comma(int64(n)))
		}
	default:
		var entries []history.Entry
		if *searchFlag != "" {
			entries, err = store.Search(*searchFlag, *limitFlag)
		} else {
			entries, err = store.List(*limitFlag, 0)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		} else {
			printHistory(os.Stdout, entries, *logsFlag, time.Now())
		}
	}

	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	exit(code)
}

// printHistory writes one line per entry, newest first, with times
// relative to now.
func printHistory(w io.Writer, entries []history.Entry, logs bool, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, e := range entries {
		state := e.Status
		switch {
		case e.Skipped:
			state = "skip"
		case e.Error != "":
			state = "FAIL"
		}
		fmt.Fprintf(w, "%-5d %-16s %-4s %-20s %s (%s)\n",
			e.ID, humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			state, e.Script, e.URL, formatElapsed(e.Duration))
		if e.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", e.Error)
		}
		if logs && e.Logs != "" {
			for _, l := range strings.Split(e.Logs, "\n") {
				fmt.Fprintf(w, "      [log] %s\n", l)
			}
		}
	}
}

func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
