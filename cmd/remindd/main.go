// Command remindd is the reminder daemon. It checks for due reminders on
// the interval kept in the dynamic settings and notifies on the console
// and, when configured, via Telegram.
//
// Usage:
//
//	./remindd [-config path] [-no-color]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/notexe/remindd/internal/app"
	"github.com/notexe/remindd/internal/config"
	"github.com/notexe/remindd/internal/scheduler"
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
	if !cfg.Scheduler.Enabled {
		fmt.Fprintln(os.Stderr, "Scheduler is disabled (scheduler.enabled: false)")
		return
	}

	logger, closeLog, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Printf("[remindd] Error: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Printf("[remindd] Error: %v", err)
		}
	}()

	var notifiers scheduler.MultiNotifier
	if cfg.Notify.Console {
		notifiers = append(notifiers, scheduler.NewConsoleNotifier(os.Stdout, cfg.UI.ColoredOutput))
	}
	if cfg.Notify.Telegram.Enabled {
		notifiers = append(notifiers, scheduler.NewTelegramSender(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID))
	}
	if len(notifiers) == 0 {
		logger.Println("[remindd] Warning: no notifier enabled, due reminders are only logged")
	}

	sched := scheduler.New(store, notifiers, scheduler.Options{
		RenotifyAfter: cfg.Scheduler.RenotifyAfter,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx); err != nil {
		logger.Printf("[remindd] Error: %v", err)
	}
}
