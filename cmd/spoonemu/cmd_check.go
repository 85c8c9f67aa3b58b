package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sadopc/spoonemu/internal/script"
)

func checkCmd() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Also report whether each script would run for this URL")
	quietFlag := fs.Bool("quiet", false, "Only print OK/FAIL lines")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spoonemu check <script.js> [scripts...] [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Validate server script metadata blocks and print what they declare.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spoonemu check addheader.js\n")
		fmt.Fprintf(os.Stderr, "  spoonemu check scripts/*.js --url https://example.com/ --quiet\n")
	}

	paths, err := parseArgs(fs, os.Args[2:])
	if err != nil {
		exit(1)
	}
	if len(paths) < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one script path is required\n\n")
		fs.Usage()
		exit(1)
	}

	hasErrors := false
	for _, path := range paths {
		s, err := script.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			hasErrors = true
			continue
		}
		fmt.Printf("OK   %s\n", path)
		if !*quietFlag {
			describeScript(os.Stdout, s)
		}
		if *urlFlag != "" {
			fmt.Printf("     %s\n", matchSummary(s, *urlFlag))
		}
	}

	if hasErrors {
		exit(1)
	}
}

// describeScript prints the metadata of s, indented under its OK line.
func describeScript(w io.Writer, s *script.Script) {
	status := "on"
	if !s.Enabled {
		status = "off"
	}
	fmt.Fprintf(w, "     name:         %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(w, "     description:  %s\n", s.Description)
	}
	fmt.Fprintf(w, "     status:       %s\n", status)
	if s.Order != 0 {
		fmt.Fprintf(w, "     order:        %d\n", s.Order)
	}

	include, exclude := s.Patterns()
	for _, p := range include {
		fmt.Fprintf(w, "     include:      %s\n", p)
	}
	for _, p := range exclude {
		fmt.Fprintf(w, "     exclude:      %s\n", p)
	}
	if len(s.ResponseCodes) > 0 {
		fmt.Fprintf(w, "     responsecode: %s\n", strings.Join(s.ResponseCodes, ","))
	}

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "     @%s: %s\n", k, strings.Join(s.Extra[k], ", "))
	}
}

func matchSummary(s *script.Script, url string) string {
	switch {
	case !s.Enabled:
		return "skip: script status is off"
	case s.Matches(url):
		return "runs for " + url
	default:
		return "skip: " + url + " not matched by @include/@exclude"
	}
}
