package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a pick with Ctrl+C.
var ErrCancelled = errors.New("cancelled")

// Option is one choice offered by a Picker.
type Option struct {
	Label       string
	Description string
}

// Picker asks the user to choose one option. On a terminal it is an
// arrow-key menu; otherwise it falls back to reading a number.
type Picker struct {
	question string
	options  []Option
	selected int
	colored  bool

	in  *os.File
	out io.Writer

	cursorStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	optionStyle   lipgloss.Style
	questionStyle lipgloss.Style
	hintStyle     lipgloss.Style
}

// NewPicker creates a picker reading from stdin and drawing on stdout.
func NewPicker(question string, options []Option, colored bool) *Picker {
	return &Picker{
		question: question,
		options:  options,
		colored:  colored,
		in:       os.Stdin,
		out:      os.Stdout,

		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true),
		optionStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		questionStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
		hintStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
	}
}

// Run shows the picker and returns the index of the chosen option.
func (p *Picker) Run() (int, error) {
	if len(p.options) == 0 {
		return -1, errors.New("nothing to choose from")
	}

	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.runSimple(p.in)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return p.runSimple(p.in)
	}
	defer func() {
		term.Restore(fd, oldState)
		fmt.Fprint(p.out, "\033[?25h") // Show cursor
	}()
	fmt.Fprint(p.out, "\033[?25l")

	lines := len(p.options) + 3
	p.draw()

	r := bufio.NewReader(p.in)
	for {
		k, err := readKey(r)
		if err != nil {
			return -1, err
		}
		done, err := p.apply(k)
		p.clear(lines)
		if err != nil {
			return -1, err
		}
		if done {
			return p.selected, nil
		}
		p.draw()
	}
}

type key int

const (
	keyNone key = iota
	keyUp
	keyDown
	keyEnter
	keyCancel
	keyDigit1 // keyDigit1+n selects option n
)

func readKey(r *bufio.Reader) (key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return keyNone, err
	}
	switch b {
	case '\r', '\n', ' ':
		return keyEnter, nil
	case 3: // Ctrl+C
		return keyCancel, nil
	case 'k':
		return keyUp, nil
	case 'j':
		return keyDown, nil
	case 27: // ESC [ A / ESC [ B
		if b2, _ := r.ReadByte(); b2 != '[' {
			return keyNone, nil
		}
		switch b3, _ := r.ReadByte(); b3 {
		case 'A':
			return keyUp, nil
		case 'B':
			return keyDown, nil
		}
		return keyNone, nil
	}
	if b >= '1' && b <= '9' {
		return keyDigit1 + key(b-'1'), nil
	}
	return keyNone, nil
}

// apply updates the selection for k and reports whether a choice is made.
func (p *Picker) apply(k key) (bool, error) {
	n := len(p.options)
	switch {
	case k == keyCancel:
		return false, ErrCancelled
	case k == keyEnter:
		return true, nil
	case k == keyUp:
		p.selected = (p.selected + n - 1) % n
	case k == keyDown:
		p.selected = (p.selected + 1) % n
	case k >= keyDigit1:
		if i := int(k - keyDigit1); i < n {
			p.selected = i
			return true, nil
		}
	}
	return false, nil
}

func (p *Picker) style(s lipgloss.Style, text string) string {
	if p.colored {
		return s.Render(text)
	}
	return text
}

func (p *Picker) draw() {
	var sb strings.Builder
	sb.WriteString(p.style(p.questionStyle, p.question) + "\r\n")
	sb.WriteString(p.style(p.hintStyle, "[j/k or arrows] move  [enter] select") + "\r\n\r\n")

	for i, opt := range p.options {
		label := opt.Label
		if opt.Description != "" {
			label += " - " + opt.Description
		}
		if i == p.selected {
			sb.WriteString(p.style(p.cursorStyle, "> ") + p.style(p.selectedStyle, label))
		} else {
			sb.WriteString("  " + p.style(p.optionStyle, label))
		}
		sb.WriteString("\r\n")
	}
	fmt.Fprint(p.out, sb.String())
}

func (p *Picker) clear(lines int) {
	fmt.Fprint(p.out, strings.Repeat("\033[A\033[2K\r", lines))
}

// runSimple prints a numbered list and reads the choice from in. Anything
// that is not a valid number picks the first option.
func (p *Picker) runSimple(in io.Reader) (int, error) {
	fmt.Fprintln(p.out, p.question)
	for i, opt := range p.options {
		label := opt.Label
		if opt.Description != "" {
			label += " - " + opt.Description
		}
		fmt.Fprintf(p.out, "  [%d] %s\n", i+1, label)
	}
	fmt.Fprint(p.out, "Enter number: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return -1, err
	}
	if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n >= 1 && n <= len(p.options) {
		return n - 1, nil
	}
	return 0, nil
}
