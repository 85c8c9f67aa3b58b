package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sadopc/spoonemu/internal/config"
	"github.com/sadopc/spoonemu/internal/logger"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "version", "--version":
		fmt.Printf("spoonemu %s (%s) built %s\n", version, commit, date)
		return
	case "help", "-h", "--help":
		printHelp()
		return
	case "completion":
		completionCmd()
		return
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel)
	log.Debug("configuration loaded", zap.String("path", config.Path()), zap.String("command", os.Args[1]))

	switch os.Args[1] {
	case "run":
		runCmd(cfg)
	case "fetch":
		fetchCmd(cfg)
	case "check":
		checkCmd()
	case "history":
		historyCmd(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `spoonemu - run GreasySpoon server scripts against live URLs

Usage:
  spoonemu <command> [args] [flags]

Commands:
  run         Fetch a URL and run a server script against the response
  fetch       Fetch a URL and print what a script would see
  check       Validate server scripts and print their metadata
  history     List, search or clear recorded runs
  completion  Generate shell completion scripts (bash, zsh, fish)
  version     Print version information
  help        Show this help message

Configuration is read from %s and SPOONEMU_* environment
variables. A .env file in the working directory is loaded first.

Run 'spoonemu <command> --help' for more information about a command.
`, config.Path())
}

// exit flushes the logger before leaving; deferred calls do not run on os.Exit.
func exit(code int) {
	_ = logger.Sync()
	os.Exit(code)
}

// parseArgs parses args with fs and returns the positional arguments.
// Flags may appear after positionals, as in "run script.js URL --body".
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
