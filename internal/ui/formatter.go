package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/notexe/remindd/internal/reminder"
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // Warm yellow

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Medium gray
			Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")). // Green
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")). // Yellow
			Bold(true)

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147")) // Light purple

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")). // Soft blue border
			Padding(0, 1)
)

type Formatter struct {
	colored bool
}

func NewFormatter(colored bool) *Formatter {
	return &Formatter{colored: colored}
}

// Colored reports whether output is styled.
func (f *Formatter) Colored() bool {
	return f.colored
}

func (f *Formatter) render(style lipgloss.Style, s string) string {
	if f.colored {
		return style.Render(s)
	}
	return s
}

func (f *Formatter) FormatError(err error) string {
	return f.render(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.render(InfoStyle, info)
}

func (f *Formatter) FormatSuccess(msg string) string {
	return f.render(SuccessStyle, msg)
}

func (f *Formatter) FormatStatus(msg string) string {
	return f.render(StatusStyle, msg)
}

// FormatReminderList renders statuses one per line, prefixed with a
// state marker: [x] completed, [!] due, [ ] waiting.
func (f *Formatter) FormatReminderList(statuses []reminder.Status) string {
	if len(statuses) == 0 {
		return f.FormatStatus("No reminders.")
	}

	lines := make([]string, 0, len(statuses)+1)
	lines = append(lines, f.render(HeaderStyle, "Reminders"))
	for _, st := range statuses {
		marker := f.render(DimStyle, "[ ]")
		text := st.Text
		switch {
		case st.Completed:
			marker = f.render(SuccessStyle, "[x]")
			text = f.render(DimStyle, text)
		case st.Due:
			marker = f.render(WarningStyle, "[!]")
			text = f.render(WarningStyle, text)
		}

		when := st.Time
		if st.Next != nil {
			when = formatWhen(*st.Next)
		}
		line := fmt.Sprintf("%s %s  %s", marker, text, f.render(AccentStyle, st.Schedule))
		if when != "" {
			line += f.render(StatusStyle, "  "+when)
		}
		line += f.render(DimStyle, "  "+shortID(st.ID))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// FormatSuggestions renders backlog suggestions as a numbered list.
func (f *Formatter) FormatSuggestions(items []string) string {
	if len(items) == 0 {
		return f.FormatStatus("No suggestions.")
	}
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = f.render(DimStyle, fmt.Sprintf("%2d.", i+1)) + " " + s
	}
	return strings.Join(lines, "\n")
}

// FormatBox wraps content in a styled box
func (f *Formatter) FormatBox(title, content string) string {
	if f.colored {
		return HeaderStyle.Render(title) + "\n" + BoxStyle.Render(content)
	}
	return title + "\n" + content
}

func (f *Formatter) FormatHelp() string {
	cmds := [][2]string{
		{"list [-status due|completed|pending]", "List reminders"},
		{"add -text T [-kind K] [-time HH:MM] ...", "Add a reminder"},
		{"edit -id ID [fields]", "Edit a reminder (clears its completion)"},
		{"done -id ID", "Mark a reminder done for this period"},
		{"undone -id ID", "Clear a reminder's completion"},
		{"delete -id ID", "Delete a reminder, keeping its text as a suggestion"},
		{"due", "Show reminders due now"},
		{"suggest [-prefix P] [-limit N]", "Suggest texts from deleted reminders"},
		{"backlog-clear", "Forget every suggestion"},
		{"interval [-seconds N]", "Show or set the check interval"},
		{"autostart [on|off]", "Show or set the autostart flag"},
	}

	lines := []string{"", f.render(HeaderStyle, "Commands"), ""}
	for _, c := range cmds {
		lines = append(lines, "  "+f.render(SuccessStyle, c[0]))
		lines = append(lines, "      "+f.render(StatusStyle, c[1]))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func formatWhen(t time.Time) string {
	return t.Format("Mon Jan 2 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
