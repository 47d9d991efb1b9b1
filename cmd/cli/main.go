package main

import (
	"fmt"
	"io"
	"os"

	"github.com/akeren/raine-waitlist/config"
	"github.com/akeren/raine-waitlist/internal/log"
)

type command struct {
	usage string
	run   func(logger *log.Logger, out io.Writer, args []string) error
}

var commands = map[string]command{
	"migrate": {
		usage: "migrate [up|status] | migrate down [N]   apply pending migrations, show the schema version, or roll back the last N (default 1)",
		run:   runMigrate,
	},
	"stats": {
		usage: "stats [app_slug]                          print waitlist totals (default APP_SLUG)",
		run:   runStats,
	},
}

var commandOrder = []string{"migrate", "stats"}

func main() {
	logger := log.NewLoggerWithJSONOutput()
	config.InitializeEnvFile(logger)

	os.Exit(dispatch(logger, os.Stdout, os.Stderr, os.Args[1:]))
}

func dispatch(logger *log.Logger, stdout, stderr io.Writer, args []string) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err := cmd.run(logger, stdout, args[1:]); err != nil {
		logger.Error("Command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cli <command> [args]")
	fmt.Fprintln(w)
	for _, name := range commandOrder {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}
