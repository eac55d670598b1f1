// Package tui holds the interactive prompts behind `mol add`.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the prompt with esc or ctrl+c.
var ErrCancelled = errors.New("tui: prompt cancelled")

type stage int

const (
	stagePackages stage = iota
	stageMagnitude
	stageMessage
	stageDone
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

// AddOptions decides which questions are asked. A nil choice list skips its
// question; the matching preset in Answers is kept instead.
type AddOptions struct {
	Packages   []string
	Magnitudes []string
	AskMessage bool
	Preset     Answers
}

// Answers is what the prompt collected.
type Answers struct {
	Packages  []string
	Magnitude string
	Message   string
}

// packageItem implements list.Item for the package multi-select.
type packageItem struct {
	name     string
	selected bool
}

func (i packageItem) Title() string {
	if i.selected {
		return "[x] " + i.name
	}
	return "[ ] " + i.name
}
func (i packageItem) Description() string { return "" }
func (i packageItem) FilterValue() string { return i.name }

// choiceItem implements list.Item for single choice menus.
type choiceItem string

func (i choiceItem) Title() string       { return string(i) }
func (i choiceItem) Description() string { return "" }
func (i choiceItem) FilterValue() string { return string(i) }

// AddModel is the bubbletea model for `mol add`.
type AddModel struct {
	stage      stage
	opts       AddOptions
	answers    Answers
	cancelled  bool
	packages   list.Model
	magnitudes list.Model
	message    textinput.Model
}

// NewAddModel builds the prompt and skips to the first question to ask.
func NewAddModel(opts AddOptions) *AddModel {
	m := &AddModel{
		stage:   stagePackages,
		opts:    opts,
		answers: opts.Preset,
	}

	items := make([]list.Item, 0, len(opts.Packages))
	for _, name := range opts.Packages {
		items = append(items, packageItem{name: name})
	}
	m.packages = newList("packages", items)

	choices := make([]list.Item, 0, len(opts.Magnitudes))
	for _, name := range opts.Magnitudes {
		choices = append(choices, choiceItem(name))
	}
	m.magnitudes = newList("version", choices)

	m.message = textinput.New()
	m.message.Prompt = "> "
	m.message.Placeholder = "describe the change"
	m.message.CharLimit = 0

	if opts.Packages == nil {
		m.advance()
	}
	return m
}

func newList(title string, items []list.Item) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	l := list.New(items, delegate, 40, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// advance moves to the next question that still needs an answer.
func (m *AddModel) advance() {
	for {
		m.stage++
		switch m.stage {
		case stageMagnitude:
			if m.opts.Magnitudes != nil {
				return
			}
		case stageMessage:
			if m.opts.AskMessage {
				m.message.Focus()
				return
			}
		default:
			m.stage = stageDone
			return
		}
	}
}

// Done reports whether every question has been answered or the prompt was left.
func (m *AddModel) Done() bool {
	return m.stage == stageDone || m.cancelled
}

// Result returns the collected answers, or ErrCancelled.
func (m *AddModel) Result() (Answers, error) {
	if m.cancelled {
		return Answers{}, ErrCancelled
	}
	return m.answers, nil
}

// Init is called once when the program starts.
func (m *AddModel) Init() tea.Cmd {
	if m.Done() {
		return tea.Quit
	}
	if m.stage == stageMessage {
		return textinput.Blink
	}
	return nil
}

// Update is called when a message is received.
func (m *AddModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.packages.SetSize(max(20, msg.Width-4), max(6, msg.Height-6))
		m.magnitudes.SetSize(max(20, msg.Width-4), max(6, msg.Height-6))
		m.message.Width = max(20, msg.Width-6)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case " ":
			if m.stage == stagePackages {
				return m, m.toggle()
			}
		case "enter":
			return m.confirm()
		}
	}

	var cmd tea.Cmd
	switch m.stage {
	case stagePackages:
		m.packages, cmd = m.packages.Update(msg)
	case stageMagnitude:
		m.magnitudes, cmd = m.magnitudes.Update(msg)
	case stageMessage:
		m.message, cmd = m.message.Update(msg)
	}
	return m, cmd
}

func (m *AddModel) toggle() tea.Cmd {
	item, ok := m.packages.SelectedItem().(packageItem)
	if !ok {
		return nil
	}
	item.selected = !item.selected
	return m.packages.SetItem(m.packages.Index(), item)
}

func (m *AddModel) confirm() (tea.Model, tea.Cmd) {
	switch m.stage {
	case stagePackages:
		m.answers.Packages = nil
		for _, it := range m.packages.Items() {
			if item, ok := it.(packageItem); ok && item.selected {
				m.answers.Packages = append(m.answers.Packages, item.name)
			}
		}
		// Nothing selected means nothing to record.
		if len(m.answers.Packages) == 0 {
			m.stage = stageDone
			return m, tea.Quit
		}
	case stageMagnitude:
		item, ok := m.magnitudes.SelectedItem().(choiceItem)
		if !ok {
			return m, nil
		}
		m.answers.Magnitude = string(item)
	case stageMessage:
		m.answers.Message = m.message.Value()
		m.message.Blur()
	default:
		return m, tea.Quit
	}
	m.advance()
	if m.stage == stageDone {
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current question below the answers given so far.
func (m *AddModel) View() string {
	if m.Done() {
		return ""
	}
	var b strings.Builder
	if m.stage > stagePackages && len(m.answers.Packages) > 0 {
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("packages:"), answerStyle.Render(strings.Join(m.answers.Packages, ", ")))
	}
	if m.stage > stageMagnitude && m.answers.Magnitude != "" {
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("version:"), answerStyle.Render(m.answers.Magnitude))
	}
	switch m.stage {
	case stagePackages:
		b.WriteString(m.packages.View())
		b.WriteString(hintStyle.Render("\nspace toggle · enter confirm · esc cancel"))
	case stageMagnitude:
		b.WriteString(m.magnitudes.View())
		b.WriteString(hintStyle.Render("\nenter select · esc cancel"))
	case stageMessage:
		b.WriteString(headerStyle.Render("message") + "\n")
		b.WriteString(m.message.View())
		b.WriteString(hintStyle.Render("\nenter confirm · esc cancel"))
	}
	return b.String()
}

// RunAdd runs the prompt on in/out and returns the answers. Nil streams fall
// back to the terminal.
func RunAdd(opts AddOptions, in io.Reader, out io.Writer) (Answers, error) {
	model := NewAddModel(opts)
	if model.Done() {
		return model.Result()
	}
	var programOpts []tea.ProgramOption
	if in != nil {
		programOpts = append(programOpts, tea.WithInput(in))
	}
	if out != nil {
		programOpts = append(programOpts, tea.WithOutput(out))
	}
	final, err := tea.NewProgram(model, programOpts...).Run()
	if err != nil {
		return Answers{}, fmt.Errorf("tui: run prompt: %w", err)
	}
	done, ok := final.(*AddModel)
	if !ok {
		return Answers{}, errors.New("tui: unexpected model")
	}
	if !done.Done() {
		return Answers{}, ErrCancelled
	}
	return done.Result()
}
