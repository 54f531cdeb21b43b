// Command remind manages reminders from the shell.
//
// Usage:
//
//	remind [-config path] [-no-color] <command> [flags]
//	remind help
//
// Data lives wherever the configuration points storage (default:
// ~/.remindd). A running remindd daemon or mcp-reminder server picks up
// the changes on its next check or tool call.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/notexe/remindd/internal/app"
	"github.com/notexe/remindd/internal/config"
	"github.com/notexe/remindd/internal/ui"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *noColor {
		cfg.UI.ColoredOutput = false
	}

	logger, closeLog, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli := &CLI{
		store: store,
		out:   os.Stdout,
		fmt:   ui.NewFormatter(cfg.UI.ColoredOutput),
		now:   time.Now,
		pick:  runPicker,
	}
	runErr := cli.Run(flag.Args())

	if err := closeStore(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, cli.fmt.FormatError(runErr))
		os.Exit(1)
	}
}
