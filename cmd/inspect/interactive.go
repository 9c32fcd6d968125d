package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apishim/api-layer/api"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	procStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	overrideStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectProc modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	manifestPath string
	insp         *inspector

	err      error
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	insp *inspector
	err  error
}

type callResultMsg struct {
	result string
	err    error
}

func newInteractiveModel(manifestPath string) *interactiveModel {
	return &interactiveModel{
		manifestPath: manifestPath,
		state:        stateSelectProc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	insp, err := newInspector(m.manifestPath)
	return loadedMsg{insp: insp, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectProc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectProc && m.insp != nil && m.selected < len(m.insp.entries)-1 {
				m.selected++
			}

		case "enter":
			if m.insp == nil {
				return m, nil
			}
			switch m.state {
			case stateSelectProc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callSelected
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callSelected

			case stateShowResult:
				m.state = stateSelectProc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectProc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectProc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		m.insp = msg.insp
		m.err = msg.err

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// userParams lists the parameters the user fills in, skipping a leading
// api.Handle (supplied from the live instance).
func userParams(e entry) []reflect.Type {
	t := e.proc.Type()
	var params []reflect.Type
	for i := 0; i < t.NumIn(); i++ {
		if i == 0 && t.In(0) == reflect.TypeOf(api.Handle(0)) {
			continue
		}
		params = append(params, t.In(i))
	}
	return params
}

func (m *interactiveModel) prepareInputs() {
	e := m.insp.entries[m.selected]
	params := userParams(e)
	m.inputs = make([]textinput.Model, len(params))
	for i, pt := range params {
		ti := textinput.New()
		ti.Placeholder = pt.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callSelected() tea.Msg {
	e := m.insp.entries[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	results, err := m.insp.call(e.name, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	if len(results) == 0 {
		return callResultMsg{result: "(void)"}
	}
	return callResultMsg{result: strings.Join(results, ", ")}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.insp == nil {
		return "Splicing layer into the chain..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Layer Inspector"))
	b.WriteString(" ")
	b.WriteString(m.insp.layer.Name())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectProc:
		b.WriteString("Select an entry point to call through the layer:\n\n")
		for i, e := range m.insp.entries {
			line := m.formatLine(e)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		e := m.insp.entries[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", procStyle.Render(e.name)))
		params := userParams(e)
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		e := m.insp.entries[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", procStyle.Render(e.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n")

		if tail := m.traceTail(5); len(tail) > 0 {
			b.WriteString("\nTrace:\n")
			for _, line := range tail {
				b.WriteString(helpStyle.Render("  " + line))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) traceTail(n int) []string {
	events := m.insp.events
	if len(events) > n {
		events = events[len(events)-n:]
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = formatEvent(ev)
	}
	return lines
}

func (m *interactiveModel) formatLine(e entry) string {
	marker := "      "
	if e.overridden {
		marker = overrideStyle.Render("layer ")
	}
	t := e.proc.Type()
	var params []string
	for i := 0; i < t.NumIn(); i++ {
		params = append(params, typeStyle.Render(t.In(i).String()))
	}
	var outs []string
	for i := 0; i < t.NumOut(); i++ {
		outs = append(outs, typeStyle.Render(t.Out(i).String()))
	}
	line := marker + procStyle.Render(e.name) + "(" + strings.Join(params, ", ") + ")"
	if len(outs) > 0 {
		line += " -> " + strings.Join(outs, ", ")
	}
	return line
}

func runInteractive(manifestPath string) error {
	p := tea.NewProgram(newInteractiveModel(manifestPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
