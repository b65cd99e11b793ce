// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/locsync/internal/sync"
)

// ConflictAction represents the action to perform after conflict resolution.
type ConflictAction int

const (
	// ConflictActionNone means no action was taken (user quit).
	ConflictActionNone ConflictAction = iota
	// ConflictActionResolve means the user resolved conflicts and wants to apply.
	ConflictActionResolve
	// ConflictActionCancel means the user cancelled.
	ConflictActionCancel
)

// ConflictListResult contains the result of the conflict resolution interaction.
type ConflictListResult struct {
	Action      ConflictAction
	Resolutions []sync.ConflictResolution
}

// conflictItem unifies entry and config conflicts into one list.
type conflictItem struct {
	target      sync.TargetType
	key         string // entry key, or config property path
	lang        string // empty for config properties
	localValue  *string
	remoteValue *string
	summary     string
}

// id returns a unique identifier for resolution bookkeeping. Entries and
// config properties live in distinct namespaces, so the target prefix keeps
// an entry key from colliding with an identical property path.
func (c conflictItem) id() string {
	return string(c.target) + "\x00" + c.key + "\x00" + c.lang
}

// resolution pairs a choice with the edited value, if any.
type resolution struct {
	choice sync.ResolutionChoice
	edited string
}

// conflictPhase represents the current phase of conflict resolution.
type conflictPhase int

const (
	phaseList conflictPhase = iota
	phaseDetail
	phaseEdit
)

// conflictKeyMap defines the key bindings for conflict resolution.
type conflictKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Local    key.Binding
	Remote   key.Binding
	Edit     key.Binding
	Skip     key.Binding
	Confirm  key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "view details"),
		),
		Local: key.NewBinding(
			key.WithKeys("l", "1"),
			key.WithHelp("l/1", "keep local"),
		),
		Remote: key.NewBinding(
			key.WithKeys("r", "2"),
			key.WithHelp("r/2", "take remote"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "3"),
			key.WithHelp("e/3", "edit"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x", "4"),
			key.WithHelp("x/4", "skip (abort)"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "apply resolutions"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc"),
			key.WithHelp("b/esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "page down"),
		),
	}
}

// ConflictListModel is the BubbleTea model for conflict resolution.
type ConflictListModel struct {
	items       []conflictItem
	resolutions map[string]resolution
	table       table.Model
	viewport    viewport.Model
	input       textinput.Model
	keys        conflictKeyMap
	result      ConflictListResult
	phase       conflictPhase
	cursor      int
	showHelp    bool
	confirmMode bool
	width       int
	height      int
	quitting    bool
	ready       bool
}

// Styles for the conflict resolution TUI.
var conflictStyles = struct {
	Title        lipgloss.Style
	Help         lipgloss.Style
	Status       lipgloss.Style
	LocalSide    lipgloss.Style
	RemoteSide   lipgloss.Style
	Context      lipgloss.Style
	Info         lipgloss.Style
	Resolved     lipgloss.Style
	Missing      lipgloss.Style
	Confirm      lipgloss.Style
	SectionTitle lipgloss.Style
}{
	Title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	LocalSide:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	RemoteSide:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	Context:      lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	Info:         lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
	Resolved:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Missing:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Italic(true),
	Confirm:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(0, 1),
	SectionTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(1, 0),
}

// renderValue formats one conflict side with line numbers, or a deletion
// marker when the side is absent.
func renderValue(value *string, style lipgloss.Style) string {
	if value == nil {
		return conflictStyles.Missing.Render("  (deleted)")
	}

	lines := strings.Split(*value, "\n")
	var b strings.Builder
	for i, line := range lines {
		lineNum := fmt.Sprintf("%4d │ ", i+1)
		b.WriteString(conflictStyles.Context.Render(lineNum))
		b.WriteString(style.Render(line))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// newConflictItems flattens entry and config conflicts into a single list,
// entries first.
func newConflictItems(entries []sync.EntryConflict, configs []sync.ConfigConflict) []conflictItem {
	items := make([]conflictItem, 0, len(entries)+len(configs))
	for i := range entries {
		c := &entries[i]
		items = append(items, conflictItem{
			target:      sync.TargetEntry,
			key:         c.Key,
			lang:        c.Lang,
			localValue:  c.LocalValue,
			remoteValue: c.RemoteValue,
			summary:     c.Summary(),
		})
	}
	for i := range configs {
		c := &configs[i]
		items = append(items, conflictItem{
			target:      sync.TargetConfigProperty,
			key:         c.Path,
			localValue:  c.LocalValue,
			remoteValue: c.RemoteValue,
			summary:     c.Summary(),
		})
	}
	return items
}

// NewConflictListModel creates a new conflict resolution model.
func NewConflictListModel(entries []sync.EntryConflict, configs []sync.ConfigConflict) ConflictListModel {
	items := newConflictItems(entries, configs)

	columns := []table.Column{
		{Title: "Status", Width: 6},
		{Title: "Type", Width: 7},
		{Title: "Key", Width: 30},
		{Title: "Lang", Width: 6},
		{Title: "Conflict", Width: 34},
		{Title: "Resolution", Width: 10},
	}

	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = buildConflictRow(item, "")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	input := textinput.New()
	input.Placeholder = "merged value"
	input.CharLimit = 0

	return ConflictListModel{
		items:       items,
		resolutions: make(map[string]resolution),
		table:       t,
		input:       input,
		keys:        defaultConflictKeyMap(),
		phase:       phaseList,
	}
}

func buildConflictRow(item conflictItem, choice string) table.Row {
	status := "○"
	if choice != "" {
		status = "✓"
	}

	resStr := "-"
	if choice != "" {
		resStr = choice
	}

	kind := "entry"
	lang := item.lang
	if item.target == sync.TargetConfigProperty {
		kind = "config"
		lang = "-"
	}

	change := "both changed"
	switch {
	case item.localValue == nil:
		change = "deleted locally, changed remotely"
	case item.remoteValue == nil:
		change = "changed locally, deleted remotely"
	}

	return table.Row{status, kind, item.key, lang, change, resStr}
}

// Init implements tea.Model.
func (m ConflictListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseList:
		return m.updateList(msg)
	case phaseDetail:
		return m.updateDetail(msg)
	case phaseEdit:
		return m.updateEdit(msg)
	}
	return m, nil
}

func (m ConflictListModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		newHeight := max(msg.Height-10, 5)
		m.table.SetHeight(newHeight)

	case tea.KeyMsg:
		// Handle confirmation mode first
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y":
				m.result = ConflictListResult{
					Action:      ConflictActionResolve,
					Resolutions: m.buildResolutions(),
				}
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
				return m, nil
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if len(m.items) > 0 {
				m.cursor = m.table.Cursor()
				m.phase = phaseDetail
				m.ready = false
				return m, nil
			}

		case key.Matches(msg, m.keys.Local):
			if len(m.items) > 0 {
				m.resolveCurrentConflict(sync.ResolutionLocal)
				return m, nil
			}

		case key.Matches(msg, m.keys.Remote):
			if len(m.items) > 0 {
				m.resolveCurrentConflict(sync.ResolutionRemote)
				return m, nil
			}

		case key.Matches(msg, m.keys.Edit):
			if len(m.items) > 0 {
				m.cursor = m.table.Cursor()
				return m.beginEdit()
			}

		case key.Matches(msg, m.keys.Skip):
			if len(m.items) > 0 {
				m.resolveCurrentConflict(sync.ResolutionSkip)
				return m, nil
			}

		case key.Matches(msg, m.keys.Confirm):
			if m.allResolved() {
				m.confirmMode = true
				return m, nil
			}

		case key.Matches(msg, m.keys.Back):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ConflictListModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 6
		footerHeight := 4
		viewportHeight := max(msg.Height-headerHeight-footerHeight, 5)

		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.buildDetailContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			m.phase = phaseList
			return m, nil

		case key.Matches(msg, m.keys.Local):
			m.resolveConflictAt(m.cursor, sync.ResolutionLocal, "")
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Remote):
			m.resolveConflictAt(m.cursor, sync.ResolutionRemote, "")
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Edit):
			return m.beginEdit()

		case key.Matches(msg, m.keys.Skip):
			m.resolveConflictAt(m.cursor, sync.ResolutionSkip, "")
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// beginEdit seeds the text input with the remote value (the side most often
// taken as a base) and switches to edit mode.
func (m ConflictListModel) beginEdit() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return m, nil
	}

	item := m.items[m.cursor]
	seed := ""
	if item.remoteValue != nil {
		seed = *item.remoteValue
	} else if item.localValue != nil {
		seed = *item.localValue
	}

	m.input.SetValue(seed)
	m.input.CursorEnd()
	m.input.Focus()
	m.phase = phaseEdit
	return m, textinput.Blink
}

func (m ConflictListModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			m.resolveConflictAt(m.cursor, sync.ResolutionEdit, m.input.Value())
			m.input.Blur()
			m.phase = phaseList
			return m, nil
		case "esc":
			m.input.Blur()
			m.phase = phaseList
			return m, nil
		case "ctrl+c":
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ConflictListModel) resolveCurrentConflict(choice sync.ResolutionChoice) {
	cursor := m.table.Cursor()
	m.resolveConflictAt(cursor, choice, "")
}

func (m *ConflictListModel) resolveConflictAt(idx int, choice sync.ResolutionChoice, edited string) {
	if idx < 0 || idx >= len(m.items) {
		return
	}

	item := m.items[idx]
	m.resolutions[item.id()] = resolution{choice: choice, edited: edited}
	m.updateTableRow(idx)
}

func (m *ConflictListModel) updateTableRow(idx int) {
	if idx < 0 || idx >= len(m.items) {
		return
	}

	item := m.items[idx]
	choice := ""
	if res, ok := m.resolutions[item.id()]; ok {
		choice = string(res.choice)
	}

	rows := m.table.Rows()
	if idx < len(rows) {
		rows[idx] = buildConflictRow(item, choice)
		m.table.SetRows(rows)
	}
}

func (m ConflictListModel) allResolved() bool {
	for _, item := range m.items {
		if _, ok := m.resolutions[item.id()]; !ok {
			return false
		}
	}
	return len(m.items) > 0
}

func (m ConflictListModel) buildResolutions() []sync.ConflictResolution {
	var result []sync.ConflictResolution
	for _, item := range m.items {
		res, ok := m.resolutions[item.id()]
		if !ok {
			continue
		}
		result = append(result, sync.ConflictResolution{
			Key:         item.key,
			Lang:        item.lang,
			TargetType:  item.target,
			Resolution:  res.choice,
			EditedValue: res.edited,
		})
	}
	return result
}

func (m ConflictListModel) buildDetailContent() string {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "No conflict selected"
	}

	item := m.items[m.cursor]
	var b strings.Builder

	b.WriteString(conflictStyles.SectionTitle.Render("Conflict Details"))
	b.WriteString("\n")
	if item.target == sync.TargetEntry {
		b.WriteString(fmt.Sprintf("  Key:  %s\n", item.key))
		b.WriteString(fmt.Sprintf("  Lang: %s\n", item.lang))
	} else {
		b.WriteString(fmt.Sprintf("  Config property: %s\n", item.key))
	}
	b.WriteString(fmt.Sprintf("  %s\n", item.summary))

	if res, ok := m.resolutions[item.id()]; ok {
		b.WriteString("\n")
		b.WriteString(conflictStyles.Resolved.Render(fmt.Sprintf("  Resolution: %s", res.choice)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(conflictStyles.SectionTitle.Render("Local Value"))
	b.WriteString("\n")
	b.WriteString(renderValue(item.localValue, conflictStyles.LocalSide))
	b.WriteString("\n\n")

	b.WriteString(conflictStyles.SectionTitle.Render("Remote Value"))
	b.WriteString("\n")
	b.WriteString(renderValue(item.remoteValue, conflictStyles.RemoteSide))

	b.WriteString("\n\n")
	b.WriteString(conflictStyles.Info.Render("Press: l=local, r=remote, e=edit, x=skip"))

	return b.String()
}

// View implements tea.Model.
func (m ConflictListModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.phase {
	case phaseDetail:
		return m.viewDetail()
	case phaseEdit:
		return m.viewEdit()
	default:
		return m.viewList()
	}
}

func (m ConflictListModel) viewList() string {
	var b strings.Builder

	title := conflictStyles.Title.Render("⚠️  Resolve Conflicts")
	b.WriteString(title)
	b.WriteString("\n\n")

	info := conflictStyles.Info.Render("Select a resolution for each conflict before applying")
	b.WriteString(info)
	b.WriteString("\n\n")

	if m.confirmMode {
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		confirmMsg := fmt.Sprintf("Apply %d resolution(s)? (y/n)", len(m.resolutions))
		b.WriteString(conflictStyles.Confirm.Render(confirmMsg))
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	resolved := len(m.resolutions)
	total := len(m.items)
	status := fmt.Sprintf("%d/%d resolved", resolved, total)
	if resolved == total && total > 0 {
		status += " • Press y to apply"
	}
	b.WriteString(conflictStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}

	return b.String()
}

func (m ConflictListModel) viewDetail() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	name := ""
	if m.cursor >= 0 && m.cursor < len(m.items) {
		name = m.items[m.cursor].key
	}
	title := conflictStyles.Title.Render(fmt.Sprintf("📄 Conflict: %s", name))
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	status := fmt.Sprintf("Scroll: %d%%", scrollPercent)
	b.WriteString(conflictStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderDetailHelp())
	} else {
		b.WriteString(m.renderDetailShortHelp())
	}

	return b.String()
}

func (m ConflictListModel) viewEdit() string {
	var b strings.Builder

	name := ""
	if m.cursor >= 0 && m.cursor < len(m.items) {
		name = m.items[m.cursor].key
	}
	title := conflictStyles.Title.Render(fmt.Sprintf("✏️  Edit: %s", name))
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(conflictStyles.Help.Render("enter accept • esc cancel"))

	return b.String()
}

func (m ConflictListModel) renderShortHelp() string {
	keys := []string{
		"↑/↓ navigate",
		"enter details",
		"l local",
		"r remote",
		"e edit",
		"x skip",
		"? help",
		"q quit",
	}
	return conflictStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ConflictListModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Move up
  ↓/j      Move down
  Enter    View conflict details

Resolution:
  l/1      Keep local version
  r/2      Take remote version
  e/3      Edit a merged value
  x/4      Skip (aborts the whole sync)

Actions:
  y        Apply all resolutions
  b/Esc    Cancel

General:
  ?        Toggle full help
  q        Quit`
	return conflictStyles.Help.Render(help)
}

func (m ConflictListModel) renderDetailShortHelp() string {
	keys := []string{
		"↑/↓ scroll",
		"l local",
		"r remote",
		"e edit",
		"x skip",
		"b back",
		"? help",
	}
	return conflictStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ConflictListModel) renderDetailHelp() string {
	help := `Navigation:
  ↑/k      Scroll up
  ↓/j      Scroll down
  PgUp     Page up
  PgDown   Page down

Resolution:
  l/1      Keep local version
  r/2      Take remote version
  e/3      Edit a merged value
  x/4      Skip (aborts the whole sync)

Actions:
  b/Esc    Go back to list

General:
  ?        Toggle full help
  q        Quit`
	return conflictStyles.Help.Render(help)
}

// Result returns the result of the user interaction.
func (m ConflictListModel) Result() ConflictListResult {
	return m.result
}

// RunConflictList runs the interactive conflict resolution and returns the result.
func RunConflictList(entries []sync.EntryConflict, configs []sync.ConfigConflict) (ConflictListResult, error) {
	if len(entries) == 0 && len(configs) == 0 {
		return ConflictListResult{}, nil
	}

	mdl := NewConflictListModel(entries, configs)
	finalModel, err := tea.NewProgram(mdl, tea.WithAltScreen()).Run()
	if err != nil {
		return ConflictListResult{}, err
	}

	if m, ok := finalModel.(ConflictListModel); ok {
		return m.Result(), nil
	}

	return ConflictListResult{}, nil
}

// Resolver adapts the interactive conflict list to the engine's resolver
// contract. Cancelling the TUI aborts the sync.
type Resolver struct{}

// Resolve runs the TUI and converts its outcome into resolutions.
func (Resolver) Resolve(entries []sync.EntryConflict, configs []sync.ConfigConflict) ([]sync.ConflictResolution, error) {
	result, err := RunConflictList(entries, configs)
	if err != nil {
		return nil, fmt.Errorf("conflict resolution failed: %w", err)
	}
	if result.Action != ConflictActionResolve {
		return nil, sync.ErrSyncAborted
	}
	return result.Resolutions, nil
}
