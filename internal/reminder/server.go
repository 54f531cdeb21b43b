package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/notexe/remindd/internal/recurrence"
)

const (
	serverName    = "reminder"
	serverVersion = "1.0.0"
)

// Server is the MCP server for reminder management.
type Server struct {
	mcpServer *server.MCPServer
	store     *Store
	now       func() time.Time
}

// NewServer creates a new Reminder MCP server backed by the given store.
func NewServer(store *Store) *Server {
	s := &Server{
		store: store,
		now:   time.Now,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// synced wraps a tool handler so it first picks up writes made by other
// processes sharing the backend.
func (s *Server) synced(h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.store.Sync()
		return h(ctx, req)
	}
}

func (s *Server) registerTools() {
	// add_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a new reminder. recurrence_type is one of once, daily, weekly, monthly, yearly"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Reminder text")),
			mcp.WithString("recurrence_type", mcp.Description("once, daily, weekly, monthly or yearly (default: once)")),
			mcp.WithString("time", mcp.Description("Time of day as HH:MM (required for recurring reminders)")),
			mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (one-time reminders)")),
			mcp.WithString("weekly_days", mcp.Description("Comma-separated weekdays, 0=Mon..6=Sun, or names like mon,wed")),
			mcp.WithNumber("monthly_day", mcp.Description("Day of month 1-31 (monthly reminders)")),
			mcp.WithNumber("yearly_month", mcp.Description("Month 1-12 (yearly reminders)")),
			mcp.WithNumber("yearly_day", mcp.Description("Day of month 1-31 (yearly reminders)")),
			mcp.WithString("icon", mcp.Description("Optional icon name")),
		),
		s.synced(s.handleAddReminder),
	)

	// update_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("update_reminder",
			mcp.WithDescription("Update a reminder. Omitted fields keep their value; the completion record is cleared"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithString("text", mcp.Description("New text")),
			mcp.WithString("recurrence_type", mcp.Description("New recurrence type")),
			mcp.WithString("time", mcp.Description("New time of day as HH:MM")),
			mcp.WithString("date", mcp.Description("New date as YYYY-MM-DD")),
			mcp.WithString("weekly_days", mcp.Description("New comma-separated weekdays")),
			mcp.WithNumber("monthly_day", mcp.Description("New day of month")),
			mcp.WithNumber("yearly_month", mcp.Description("New month")),
			mcp.WithNumber("yearly_day", mcp.Description("New day of month")),
			mcp.WithString("icon", mcp.Description("New icon name")),
		),
		s.synced(s.handleUpdateReminder),
	)

	// delete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder. Its text is kept in the backlog for suggestions"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.synced(s.handleDeleteReminder),
	)

	// list_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List all reminders with their due and completed state"),
			mcp.WithString("status", mcp.Description("Filter: due, completed, pending, or empty for all")),
		),
		s.synced(s.handleListReminders),
	)

	// get_due_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("get_due_reminders",
			mcp.WithDescription("Get all reminders that are due now"),
		),
		s.synced(s.handleGetDueReminders),
	)

	// complete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("complete_reminder",
			mcp.WithDescription("Mark a reminder as done for its current period"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.synced(s.handleCompleteReminder),
	)

	// uncomplete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("uncomplete_reminder",
			mcp.WithDescription("Remove the completion record of a reminder"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.synced(s.handleUncompleteReminder),
	)

	// suggest_backlog
	s.mcpServer.AddTool(
		mcp.NewTool("suggest_backlog",
			mcp.WithDescription("Suggest texts from deleted reminders, most recent first"),
			mcp.WithString("prefix", mcp.Description("Case-insensitive prefix filter")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions (default: 10)")),
		),
		s.synced(s.handleSuggestBacklog),
	)

	// clear_backlog
	s.mcpServer.AddTool(
		mcp.NewTool("clear_backlog",
			mcp.WithDescription("Remove every backlog entry"),
		),
		s.synced(s.handleClearBacklog),
	)

	// get_settings
	s.mcpServer.AddTool(
		mcp.NewTool("get_settings",
			mcp.WithDescription("Get the dynamic settings document"),
		),
		s.synced(s.handleGetSettings),
	)

	// set_check_interval
	s.mcpServer.AddTool(
		mcp.NewTool("set_check_interval",
			mcp.WithDescription("Set how often the scheduler checks for due reminders"),
			mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Interval in seconds, 5-3600")),
		),
		s.synced(s.handleSetCheckInterval),
	)

	// set_autostart
	s.mcpServer.AddTool(
		mcp.NewTool("set_autostart",
			mcp.WithDescription("Turn the autostart flag on or off"),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether the reminder app starts with the session")),
		),
		s.synced(s.handleSetAutostart),
	)

	// set_window_pos
	s.mcpServer.AddTool(
		mcp.NewTool("set_window_pos",
			mcp.WithDescription("Save the window geometry of a UI surface"),
			mcp.WithString("surface", mcp.Required(), mcp.Description("settings_dialog, notify_list_dialog or add_notify_dialog")),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge in pixels")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Top edge in pixels")),
			mcp.WithNumber("width", mcp.Description("Width in pixels")),
			mcp.WithNumber("height", mcp.Description("Height in pixels")),
		),
		s.synced(s.handleSetWindowPos),
	)

	// reconcile_completions
	s.mcpServer.AddTool(
		mcp.NewTool("reconcile_completions",
			mcp.WithDescription("Drop completion records whose reminder no longer exists"),
		),
		s.synced(s.handleReconcile),
	)
}

func (s *Server) handleAddReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	r := Reminder{Text: text, RecurrenceType: recurrence.Once}
	if err := applyFields(&r, req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r.ID = NewID()
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid reminder: %v", err)), nil
	}

	added, err := s.store.AddReminder(r)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}

	output, _ := json.MarshalIndent(added, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleUpdateReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	r, ok := s.store.Reminder(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v: %s", ErrNotFound, id)), nil
	}
	if v := strings.TrimSpace(req.GetString("text", "")); v != "" {
		r.Text = v
	}
	if err := applyFields(&r, req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid reminder: %v", err)), nil
	}

	if !s.store.UpdateReminder(id, r) {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v: %s", ErrNotFound, id)), nil
	}

	output, _ := json.MarshalIndent(r, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleDeleteReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if !s.store.RemoveReminder(id) {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v: %s", ErrNotFound, id)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s deleted.", id)), nil
}

func (s *Server) handleListReminders(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := FilterStatuses(s.store.Statuses(s.now()), req.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(out) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}

	output, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleGetDueReminders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reminders := s.store.Due(s.now())
	if len(reminders) == 0 {
		return mcp.NewToolResultText("No due reminders."), nil
	}

	output, _ := json.MarshalIndent(reminders, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleCompleteReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	if _, ok := s.store.Reminder(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("failed to complete reminder: %v: %s", ErrNotFound, id)), nil
	}

	c := s.store.AddCompletion(id)
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s marked as completed at %s.", id, c.CompletedAt)), nil
}

func (s *Server) handleUncompleteReminder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	if !s.store.RemoveCompletion(id) {
		return mcp.NewToolResultText(fmt.Sprintf("Reminder %s was not completed.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s marked as not completed.", id)), nil
}

func (s *Server) handleSuggestBacklog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	limit := req.GetInt("limit", 10)

	suggestions := s.store.Suggestions(prefix, limit)
	if len(suggestions) == 0 {
		return mcp.NewToolResultText("No suggestions."), nil
	}

	output, _ := json.MarshalIndent(suggestions, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleClearBacklog(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := len(s.store.Backlog())
	s.store.ClearBacklog()
	return mcp.NewToolResultText(fmt.Sprintf("Backlog cleared (%d entries).", n)), nil
}

func (s *Server) handleGetSettings(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, _ := json.MarshalIndent(s.store.Settings(), "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleSetCheckInterval(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seconds := req.GetFloat("seconds", -1)
	if seconds <= 0 {
		return mcp.NewToolResultError("seconds is required and must be a positive number"), nil
	}

	settings := s.store.UpdateSettings(func(st Settings) Settings {
		return st.WithCheckInterval(time.Duration(seconds) * time.Second)
	})
	return mcp.NewToolResultText(fmt.Sprintf("Check interval set to %s.", settings.CheckInterval())), nil
}

func (s *Server) handleSetAutostart(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	settings := s.store.UpdateSettings(func(st Settings) Settings {
		return st.WithAutostart(enabled)
	})
	return mcp.NewToolResultText(fmt.Sprintf("Autostart set to %t.", settings.Autostart())), nil
}

func (s *Server) handleSetWindowPos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	surface := req.GetString("surface", "")
	if !knownSurface(surface) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown surface: %q", surface)), nil
	}
	x, errX := req.RequireFloat("x")
	y, errY := req.RequireFloat("y")
	if errX != nil || errY != nil {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	pos := WindowPos{
		X:      int(x),
		Y:      int(y),
		Width:  req.GetInt("width", 0),
		Height: req.GetInt("height", 0),
	}

	settings := s.store.UpdateSettings(func(st Settings) Settings {
		return st.WithWindowPos(surface, pos)
	})
	saved, _ := settings.WindowPos(surface)
	output, _ := json.MarshalIndent(saved, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleReconcile(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.store.Reconcile()
	return mcp.NewToolResultText(fmt.Sprintf("Dropped %d stale completion records.", n)), nil
}

// applyFields copies the optional rule arguments of req onto r. Empty
// strings and negative numbers leave a field unchanged.
func applyFields(r *Reminder, req mcp.CallToolRequest) error {
	if v := req.GetString("recurrence_type", ""); v != "" {
		k, err := recurrence.ParseKind(v)
		if err != nil {
			return err
		}
		r.RecurrenceType = k
	}
	if v := req.GetString("time", ""); v != "" {
		r.Time = v
	}
	if v := req.GetString("date", ""); v != "" {
		r.Date = v
	}
	if v := req.GetString("weekly_days", ""); v != "" {
		days, err := ParseWeekdays(v)
		if err != nil {
			return err
		}
		r.WeeklyDays = days
	}
	if v := req.GetFloat("monthly_day", -1); v >= 0 {
		r.MonthlyDay = int(v)
	}
	if v := req.GetFloat("yearly_month", -1); v >= 0 {
		r.YearlyMonth = int(v)
	}
	if v := req.GetFloat("yearly_day", -1); v >= 0 {
		r.YearlyDay = int(v)
	}
	if v := req.GetString("icon", ""); v != "" {
		r.Icon = v
	}
	return nil
}

// ParseWeekdays parses a comma-separated weekday list. Items are indices
// (0=Mon..6=Sun) or English names and their three-letter abbreviations.
func ParseWeekdays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 0 || n > 6 {
				return nil, fmt.Errorf("weekday out of range: %d", n)
			}
			days = append(days, n)
			continue
		}
		d, ok := weekdayByName[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday: %q", part)
		}
		days = append(days, d)
	}
	return days, nil
}

var weekdayByName = func() map[string]int {
	m := make(map[string]int, 14)
	for i := 0; i < 7; i++ {
		name := strings.ToLower(time.Weekday((i + 1) % 7).String())
		m[name] = i
		m[name[:3]] = i
	}
	return m
}()
