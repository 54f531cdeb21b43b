// Command mcp-reminder provides an MCP server for reminder management.
//
// This server exposes the reminder store to MCP clients: adding, editing,
// completing and deleting reminders, backlog suggestions and the check
// interval.
//
// Usage:
//
//	./mcp-reminder                 # Start MCP server (stdio)
//	./mcp-reminder -config path    # Use another config file
//	./mcp-reminder --help          # Show help
//
// Environment:
//
//	REMINDD_STORAGE__BACKEND  file, sqlite or memory (default: file)
//	REMINDD_STORAGE__DIR      Data directory (default: ~/.remindd)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/notexe/remindd/internal/app"
	"github.com/notexe/remindd/internal/config"
	"github.com/notexe/remindd/internal/reminder"
)

func main() {
	flag.Usage = printHelp
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, so logs never go there.
	logger, closeLog, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	s := reminder.NewServer(store)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MCP Reminder Server - Reminder management via MCP protocol

USAGE:
    mcp-reminder                Start MCP server (communicates via stdio)
    mcp-reminder -config PATH   Use another config file (default: ~/.remindd/config.yaml)
    mcp-reminder --help         Show this help

ENVIRONMENT:
    REMINDD_STORAGE__BACKEND      file, sqlite or memory
    REMINDD_STORAGE__DIR          Data directory for the file backend
    REMINDD_STORAGE__SQLITE_PATH  Database file for the sqlite backend

TOOLS:
    add_reminder           Add a reminder (text, recurrence_type, time, date, weekly_days, ...)
    update_reminder        Update reminder fields; clears its completion
    delete_reminder        Delete a reminder, keeping its text in the backlog
    list_reminders         List reminders with due/completed state
    get_due_reminders      Get reminders that are due now
    complete_reminder      Mark a reminder done for its current period
    uncomplete_reminder    Remove a reminder's completion record
    suggest_backlog        Suggest texts from deleted reminders
    clear_backlog          Remove every backlog entry
    get_settings           Show the dynamic settings
    set_check_interval     Set the scheduler check interval (seconds)
    set_autostart          Turn the autostart flag on or off
    set_window_pos         Save the window geometry of a UI surface
    reconcile_completions  Drop completion records of deleted reminders

CONFIGURATION:
    Add to an MCP client config:
    {
      "mcpServers": {
        "reminder": {
          "command": "/path/to/mcp-reminder",
          "args": []
        }
      }
    }`)
}
