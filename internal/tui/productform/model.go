// Package productform is the terminal edit form for one product.
//
// The bubbletea event loop plays the UI role: key presses buffer field values
// into the workflow synchronously, and loads, saves and retries run as
// tea.Cmds whose results come back as messages.
package productform

import (
	"context"
	"errors"
	"strings"

	"github.com/artpar/showroom/internal/core/domain"
	"github.com/artpar/showroom/internal/core/editor"
	"github.com/artpar/showroom/internal/shell/workflow"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Workflow is the edit workflow the form drives. *workflow.Workflow satisfies it.
type Workflow interface {
	Enter(ctx context.Context, productID string) error
	EditField(field, value string) error
	Submit(ctx context.Context) error
	Retry(ctx context.Context) error
	State() (workflow.View, bool)
}

// Config holds the configuration for the form.
type Config struct {
	Workflow  Workflow
	ProductID string
}

// focus positions: the three single-line inputs, the description, then save.
const (
	focusName = iota
	focusOrganization
	focusURL
	focusDescription
	focusSave
	focusCount
)

var focusFields = [...]string{
	focusName:         domain.FieldName,
	focusOrganization: domain.FieldOrganization,
	focusURL:          domain.FieldURL,
	focusDescription:  domain.FieldDescription,
}

var fieldLabels = map[string]string{
	domain.FieldName:         "Name",
	domain.FieldOrganization: "Organization",
	domain.FieldURL:          "URL",
	domain.FieldDescription:  "Description",
}

// Model is the bubbletea model for the edit form.
type Model struct {
	wf        Workflow
	productID string

	view    workflow.View
	busy    bool
	saved   bool
	lastErr string

	focus       int
	inputs      [focusDescription]textinput.Model
	description textarea.Model
	spinner     spinner.Model

	width int
}

// NewModel creates the form model.
func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	placeholders := [focusDescription]string{
		focusName:         "Product name",
		focusOrganization: "Organization name",
		focusURL:          "https://example.com",
	}
	var inputs [focusDescription]textinput.Model
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 200
		in.Width = 48
		inputs[i] = in
	}

	desc := textarea.New()
	desc.Placeholder = "What does it do?"
	desc.CharLimit = 2000
	desc.SetWidth(52)
	desc.SetHeight(4)
	desc.ShowLineNumbers = false

	return Model{
		wf:          cfg.Workflow,
		productID:   cfg.ProductID,
		view:        workflow.View{ProductID: cfg.ProductID, Phase: editor.PhaseLoading},
		busy:        true,
		inputs:      inputs,
		description: desc,
		spinner:     s,
	}
}

// Saved reports whether the product was persisted.
func (m Model) Saved() bool {
	return m.saved
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.enter())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case enteredMsg:
		m.busy = false
		m.setErr(msg.err)
		m.refresh()
		if m.view.Phase == editor.PhaseEditing {
			m.loadInputs()
		}

	case submittedMsg:
		return m.afterSave(msg.err)

	case retriedMsg:
		wasLoading := m.view.Phase == editor.PhaseLoading
		if wasLoading {
			m.busy = false
			m.setErr(msg.err)
			m.refresh()
			if m.view.Phase == editor.PhaseEditing {
				m.loadInputs()
			}
			return m, nil
		}
		return m.afterSave(msg.err)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.view.Denied() || m.view.Phase == editor.PhaseDone {
		if msg.String() == "q" || msg.String() == "enter" {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.view.Stalled && !m.busy {
		if msg.String() == "r" {
			m.busy = true
			m.lastErr = ""
			return m, m.retry()
		}
		return m, nil
	}

	if m.view.Phase != editor.PhaseEditing || m.busy {
		return m, nil
	}

	switch msg.String() {
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "ctrl+s":
		return m.startSubmit()
	case "enter":
		if m.focus == focusSave {
			return m.startSubmit()
		}
		if m.focus < focusDescription {
			m.setFocus(m.focus + 1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch {
	case m.focus < focusDescription:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		m.push(focusFields[m.focus], m.inputs[m.focus].Value())
	case m.focus == focusDescription:
		m.description, cmd = m.description.Update(msg)
		m.push(domain.FieldDescription, m.description.Value())
	}
	return m, cmd
}

func (m Model) startSubmit() (tea.Model, tea.Cmd) {
	m.busy = true
	m.lastErr = ""
	return m, tea.Batch(m.spinner.Tick, m.submit())
}

// afterSave applies the result of a submit or an update retry.
func (m Model) afterSave(err error) (tea.Model, tea.Cmd) {
	m.busy = false

	var verr *editor.ValidationError
	switch {
	case err == nil:
		m.saved = true
	case errors.As(err, &verr):
		// Field errors come from the view.
	case errors.Is(err, workflow.ErrSubmitInFlight):
	default:
		m.setErr(err)
	}

	m.refresh()
	if m.saved {
		return m, tea.Quit
	}
	return m, nil
}

// push buffers a value into the workflow if it changed.
func (m *Model) push(field, value string) {
	if m.view.Product != nil {
		if current, _ := m.view.Product.Fields().Get(field); current == value {
			return
		}
	}
	if err := m.wf.EditField(field, value); err != nil {
		m.setErr(err)
	}
	m.refresh()
}

func (m *Model) refresh() {
	if v, ok := m.wf.State(); ok {
		m.view = v
	}
}

func (m *Model) setErr(err error) {
	if err == nil {
		m.lastErr = ""
		return
	}
	m.lastErr = err.Error()
}

// loadInputs copies the loaded product into the inputs.
func (m *Model) loadInputs() {
	if m.view.Product == nil {
		return
	}
	fields := m.view.Product.Fields()
	for i := range m.inputs {
		v, _ := fields.Get(focusFields[i])
		m.inputs[i].SetValue(v)
		m.inputs[i].CursorEnd()
	}
	m.description.SetValue(fields.Description)
	m.setFocus(focusName)
}

func (m *Model) setFocus(f int) {
	m.focus = f
	for i := range m.inputs {
		if i == f {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	if f == focusDescription {
		m.description.Focus()
	} else {
		m.description.Blur()
	}
}

// =============================================================================
// Commands
// =============================================================================

func (m Model) enter() tea.Cmd {
	wf, id := m.wf, m.productID
	return func() tea.Msg {
		return enteredMsg{err: wf.Enter(context.Background(), id)}
	}
}

func (m Model) submit() tea.Cmd {
	wf := m.wf
	return func() tea.Msg {
		return submittedMsg{err: wf.Submit(context.Background())}
	}
}

func (m Model) retry() tea.Cmd {
	wf := m.wf
	return func() tea.Msg {
		return retriedMsg{err: wf.Retry(context.Background())}
	}
}

// =============================================================================
// View
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitlePanelStyle.Render(TitleStyle.Render("Edit product")))
	b.WriteString("\n")

	switch {
	case m.view.Denied():
		b.WriteString(ErrorStyle.Render(editor.CannotAccessMessage))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render(RenderKeyHint("q", "quit")))

	case m.view.Phase == editor.PhaseLoading:
		if m.view.Stalled {
			b.WriteString(m.viewStalled("Loading failed"))
		} else {
			b.WriteString(m.spinner.View() + StatusStyle.Render(" Loading..."))
		}

	case m.view.Phase == editor.PhaseDone:
		b.WriteString(SuccessStyle.Render("Saved."))

	default:
		b.WriteString(m.viewForm())
	}

	return b.String()
}

func (m Model) viewForm() string {
	var b strings.Builder

	b.WriteString(LegendStyle.Render("General information"))
	b.WriteString("\n")
	for i := range m.inputs {
		b.WriteString(m.viewField(i, m.inputs[i].View()))
	}

	b.WriteString(LegendStyle.Render("About your product"))
	b.WriteString("\n")
	b.WriteString(m.viewField(focusDescription, m.description.View()))

	b.WriteString("\n")
	switch {
	case m.view.Stalled:
		b.WriteString(m.viewStalled("Saving failed"))
		return b.String()
	case m.view.Phase == editor.PhaseSubmitting || m.busy:
		b.WriteString(m.spinner.View() + StatusStyle.Render(" Saving..."))
	case m.focus == focusSave:
		b.WriteString(ButtonFocusedStyle.Render("Save"))
	default:
		b.WriteString(ButtonStyle.Render("Save"))
	}

	if m.lastErr != "" {
		b.WriteString("\n" + ErrorStyle.Render(m.lastErr))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(
		RenderKeyHint("Tab", "next") + "  " +
			RenderKeyHint("Ctrl+S", "save") + "  " +
			RenderKeyHint("Esc", "quit")))
	return b.String()
}

func (m Model) viewField(f int, input string) string {
	field := focusFields[f]

	label := LabelStyle.Render(fieldLabels[field])
	border := InputBorderStyle
	if m.focus == f {
		label = FocusedLabelStyle.Render(fieldLabels[field])
		border = InputBorderFocusedStyle
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, label, border.Render(input)) + "\n"
	if msg := m.view.FieldErrors[field]; msg != "" {
		line += FieldErrorStyle.Render(msg) + "\n"
	}
	return line
}

func (m Model) viewStalled(what string) string {
	var b strings.Builder
	b.WriteString(ErrorStyle.Render(what))
	if m.view.LastError != "" {
		b.WriteString(": " + m.view.LastError)
	}
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spinner.View() + StatusStyle.Render(" Retrying..."))
		return b.String()
	}
	b.WriteString(HelpStyle.Render(
		RenderKeyHint("r", "retry") + "  " +
			RenderKeyHint("Esc", "quit")))
	return b.String()
}

// Run starts the form and blocks until it exits. It reports whether the
// product was saved.
func Run(cfg Config) (bool, error) {
	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(Model)
	return ok && m.Saved(), nil
}
