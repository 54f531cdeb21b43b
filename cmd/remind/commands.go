package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/notexe/remindd/internal/recurrence"
	"github.com/notexe/remindd/internal/reminder"
	"github.com/notexe/remindd/internal/ui"
)

// CLI runs one subcommand against a store.
type CLI struct {
	store *reminder.Store
	out   io.Writer
	fmt   *ui.Formatter
	now   func() time.Time
	// pick asks for a recurrence when add gets no -kind; nil skips the
	// question and adds a one-time reminder.
	pick func(question string, options []ui.Option, colored bool) (int, error)
}

// runPicker shows an interactive ui.Picker on the terminal.
func runPicker(question string, options []ui.Option, colored bool) (int, error) {
	return ui.NewPicker(question, options, colored).Run()
}

var errUsage = errors.New("usage: remind <command> [flags]; run 'remind help'")

// Run dispatches args[0] to its subcommand.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]
	switch name {
	case "list", "ls":
		return c.list(rest)
	case "add":
		return c.add(rest)
	case "edit":
		return c.edit(rest)
	case "done":
		return c.done(rest)
	case "undone":
		return c.undone(rest)
	case "delete", "rm":
		return c.remove(rest)
	case "due":
		return c.due(rest)
	case "suggest":
		return c.suggest(rest)
	case "backlog-clear":
		return c.backlogClear(rest)
	case "interval":
		return c.interval(rest)
	case "autostart":
		return c.autostart(rest)
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, c.fmt.FormatHelp())
		return nil
	}
	return fmt.Errorf("unknown command: %s", name)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// ruleFlags are the reminder fields shared by add and edit.
type ruleFlags struct {
	text, kind, at, date, days, icon string
	monthlyDay, yearlyMonth          int
}

func (r *ruleFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&r.text, "text", "", "Reminder text")
	fs.StringVar(&r.kind, "kind", "", "once, daily, weekly, monthly or yearly")
	fs.StringVar(&r.at, "time", "", "Time of day as HH:MM")
	fs.StringVar(&r.date, "date", "", "Date as YYYY-MM-DD (once)")
	fs.StringVar(&r.days, "days", "", "Comma-separated weekdays, e.g. mon,wed or 0,2 (weekly)")
	fs.StringVar(&r.icon, "icon", "", "Icon name")
	fs.IntVar(&r.monthlyDay, "day", -1, "Day of month 1-31 (monthly, yearly)")
	fs.IntVar(&r.yearlyMonth, "month", -1, "Month 1-12 (yearly)")
}

// apply copies every flag that was set onto rem.
func (r *ruleFlags) apply(rem *reminder.Reminder) error {
	if r.text != "" {
		rem.Text = r.text
	}
	if r.kind != "" {
		k, err := recurrence.ParseKind(r.kind)
		if err != nil {
			return err
		}
		rem.RecurrenceType = k
	}
	if r.at != "" {
		rem.Time = r.at
	}
	if r.date != "" {
		rem.Date = r.date
	}
	if r.days != "" {
		days, err := reminder.ParseWeekdays(r.days)
		if err != nil {
			return err
		}
		rem.WeeklyDays = days
	}
	if r.icon != "" {
		rem.Icon = r.icon
	}
	if r.monthlyDay >= 0 {
		rem.MonthlyDay = r.monthlyDay
		rem.YearlyDay = r.monthlyDay
	}
	if r.yearlyMonth >= 0 {
		rem.YearlyMonth = r.yearlyMonth
	}
	return nil
}

func (c *CLI) list(args []string) error {
	fs := newFlagSet("list")
	status := fs.String("status", "", "Filter: due, completed or pending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	out, err := reminder.FilterStatuses(c.store.Statuses(c.now()), *status)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.fmt.FormatReminderList(out))
	return nil
}

func (c *CLI) add(args []string) error {
	fs := newFlagSet("add")
	var rf ruleFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rf.text == "" {
		rf.text = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(rf.text) == "" {
		return errors.New("text is required")
	}

	r := reminder.Reminder{RecurrenceType: recurrence.Once}
	if rf.kind == "" && c.pick != nil {
		k, err := c.pickKind()
		if err != nil {
			return err
		}
		r.RecurrenceType = k
	}
	if err := rf.apply(&r); err != nil {
		return err
	}
	if r.RecurrenceType == recurrence.Once && r.Date == "" {
		r.Date = c.now().Format(recurrence.DateLayout)
	}

	r.ID = reminder.NewID()
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid reminder: %w", err)
	}
	added, err := c.store.AddReminder(r)
	if err != nil {
		return fmt.Errorf("failed to add reminder: %w", err)
	}
	fmt.Fprintln(c.out, c.fmt.FormatSuccess(fmt.Sprintf("Added %s: %s (%s)", shortID(added.ID), added.Text, recurrence.Describe(added.Rule()))))
	return nil
}

func (c *CLI) pickKind() (recurrence.Kind, error) {
	opts := make([]ui.Option, len(recurrence.Kinds))
	for i, k := range recurrence.Kinds {
		opts[i] = ui.Option{Label: string(k)}
	}
	i, err := c.pick("Recurrence?", opts, c.fmt.Colored())
	if err != nil {
		return "", err
	}
	return recurrence.Kinds[i], nil
}

func (c *CLI) edit(args []string) error {
	fs := newFlagSet("edit")
	id := fs.String("id", "", "Reminder ID or unique prefix")
	var rf ruleFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := c.resolve(*id)
	if err != nil {
		return err
	}
	if err := rf.apply(&r); err != nil {
		return err
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid reminder: %w", err)
	}
	if !c.store.UpdateReminder(r.ID, r) {
		return fmt.Errorf("%w: %s", reminder.ErrNotFound, r.ID)
	}
	fmt.Fprintln(c.out, c.fmt.FormatSuccess("Updated "+shortID(r.ID)))
	return nil
}

func (c *CLI) done(args []string) error {
	r, err := c.resolveFlag("done", args)
	if err != nil {
		return err
	}
	c.store.AddCompletion(r.ID)
	fmt.Fprintln(c.out, c.fmt.FormatSuccess("Done: "+r.Text))
	return nil
}

func (c *CLI) undone(args []string) error {
	r, err := c.resolveFlag("undone", args)
	if err != nil {
		return err
	}
	if !c.store.RemoveCompletion(r.ID) {
		fmt.Fprintln(c.out, c.fmt.FormatInfo(r.Text+" was not completed"))
		return nil
	}
	fmt.Fprintln(c.out, c.fmt.FormatSuccess("Not done: "+r.Text))
	return nil
}

func (c *CLI) remove(args []string) error {
	r, err := c.resolveFlag("delete", args)
	if err != nil {
		return err
	}
	if !c.store.RemoveReminder(r.ID) {
		return fmt.Errorf("%w: %s", reminder.ErrNotFound, r.ID)
	}
	fmt.Fprintln(c.out, c.fmt.FormatSuccess("Deleted: "+r.Text))
	return nil
}

func (c *CLI) due(args []string) error {
	if err := newFlagSet("due").Parse(args); err != nil {
		return err
	}
	out, _ := reminder.FilterStatuses(c.store.Statuses(c.now()), "due")
	if len(out) == 0 {
		fmt.Fprintln(c.out, c.fmt.FormatStatus("Nothing due."))
		return nil
	}
	fmt.Fprintln(c.out, c.fmt.FormatReminderList(out))
	return nil
}

func (c *CLI) suggest(args []string) error {
	fs := newFlagSet("suggest")
	prefix := fs.String("prefix", "", "Case-insensitive prefix")
	limit := fs.Int("limit", 10, "Maximum number of suggestions (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefix == "" {
		*prefix = strings.Join(fs.Args(), " ")
	}
	fmt.Fprintln(c.out, c.fmt.FormatSuggestions(c.store.Suggestions(*prefix, *limit)))
	return nil
}

func (c *CLI) backlogClear(args []string) error {
	if err := newFlagSet("backlog-clear").Parse(args); err != nil {
		return err
	}
	c.store.ClearBacklog()
	fmt.Fprintln(c.out, c.fmt.FormatSuccess("Backlog cleared"))
	return nil
}

func (c *CLI) interval(args []string) error {
	fs := newFlagSet("interval")
	seconds := fs.Int("seconds", 0, "New check interval in seconds (5-3600)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *seconds > 0 {
		c.store.UpdateSettings(func(st reminder.Settings) reminder.Settings {
			return st.WithCheckInterval(time.Duration(*seconds) * time.Second)
		})
	}
	fmt.Fprintln(c.out, c.fmt.FormatInfo("Check interval: "+c.store.Settings().CheckInterval().String()))
	return nil
}

func (c *CLI) autostart(args []string) error {
	fs := newFlagSet("autostart")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch fs.Arg(0) {
	case "":
	case "on", "off":
		on := fs.Arg(0) == "on"
		c.store.UpdateSettings(func(st reminder.Settings) reminder.Settings {
			return st.WithAutostart(on)
		})
	default:
		return fmt.Errorf("autostart takes on or off, got %q", fs.Arg(0))
	}

	state := "off"
	if c.store.Settings().Autostart() {
		state = "on"
	}
	fmt.Fprintln(c.out, c.fmt.FormatInfo("Autostart: "+state))
	return nil
}

func (c *CLI) resolveFlag(name string, args []string) (reminder.Reminder, error) {
	fs := newFlagSet(name)
	id := fs.String("id", "", "Reminder ID or unique prefix")
	if err := fs.Parse(args); err != nil {
		return reminder.Reminder{}, err
	}
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	return c.resolve(*id)
}

// resolve finds a reminder by exact id or by a unique id prefix.
func (c *CLI) resolve(id string) (reminder.Reminder, error) {
	if id == "" {
		return reminder.Reminder{}, errors.New("id is required")
	}
	if r, ok := c.store.Reminder(id); ok {
		return r, nil
	}
	var matches []reminder.Reminder
	for _, r := range c.store.Reminders() {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return reminder.Reminder{}, fmt.Errorf("%w: %s", reminder.ErrNotFound, id)
	case 1:
		return matches[0], nil
	}
	return reminder.Reminder{}, fmt.Errorf("id prefix %q matches %d reminders", id, len(matches))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
