package main

import (
	"errors"
	"fmt"
	"log"
	"os"
)

const usage = `lapfinder finds where lap time is lost in vehicle telemetry.

Usage:
  lapfinder init                         write an example config file
  lapfinder analyze [flags] <file|url>   rank segments by time loss
  lapfinder serve [flags]                run the HTTP service
  lapfinder generate [flags]             write synthetic telemetry CSV
  lapfinder history [flags]              list saved runs
  lapfinder view [run-id]                browse saved runs in the terminal

Run 'lapfinder <command> -h' for command flags.
`

// errUsage signals that usage was printed and the exit code should be 2
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return runInit(rest)
	case "analyze":
		return runAnalyze(rest)
	case "serve":
		return runServe(rest)
	case "generate":
		return runGenerate(rest)
	case "history":
		return runHistory(rest)
	case "view":
		return runView(rest)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}
