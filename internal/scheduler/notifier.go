package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/notexe/remindd/internal/recurrence"
	"github.com/notexe/remindd/internal/reminder"
)

// Notifier delivers a batch of due reminders.
type Notifier interface {
	Notify(ctx context.Context, due []reminder.Reminder) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, due []reminder.Reminder) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, due []reminder.Reminder) error {
	return f(ctx, due)
}

// MultiNotifier fans a batch out to every notifier. All of them are tried;
// their errors are joined.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, due []reminder.Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, due); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	bellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")). // Warm yellow
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scheduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// ConsoleNotifier prints one line per due reminder.
type ConsoleNotifier struct {
	w       io.Writer
	colored bool
	now     func() time.Time
}

// NewConsoleNotifier creates a console notifier writing to w.
func NewConsoleNotifier(w io.Writer, colored bool) *ConsoleNotifier {
	return &ConsoleNotifier{w: w, colored: colored, now: time.Now}
}

// Notify implements Notifier.
func (c *ConsoleNotifier) Notify(_ context.Context, due []reminder.Reminder) error {
	stamp := c.now().Format("15:04")
	for _, r := range due {
		bell := fmt.Sprintf("[%s] Reminder:", stamp)
		text := r.Text
		schedule := "(" + recurrence.Describe(r.Rule()) + ")"
		if c.colored {
			bell = bellStyle.Render(bell)
			text = textStyle.Render(text)
			schedule = scheduleStyle.Render(schedule)
		}
		if _, err := fmt.Fprintf(c.w, "%s %s %s\n", bell, text, schedule); err != nil {
			return fmt.Errorf("failed to write notification: %w", err)
		}
	}
	return nil
}

// FormatDueHTML renders due reminders as a Telegram HTML message.
func FormatDueHTML(due []reminder.Reminder) string {
	var b strings.Builder
	b.WriteString("<b>⏰ Reminders</b>\n")
	for _, r := range due {
		b.WriteString("\n• <b>")
		b.WriteString(html.EscapeString(r.Text))
		b.WriteString("</b>")
		if r.Time != "" {
			b.WriteString(" at ")
			b.WriteString(html.EscapeString(r.Time))
		}
		b.WriteString("\n  <i>")
		b.WriteString(html.EscapeString(recurrence.Describe(r.Rule())))
		b.WriteString("</i>")
	}
	return b.String()
}
