// Package tui is the interactive front end: one tab per task.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/loci/internal/associate"
	"github.com/jeanpaul/loci/internal/config"
	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

type tab int

const (
	tabCreate tab = iota
	tabView
	tabPalaces
	tabData
)

var tabNames = []string{"Create", "View", "Palaces", "Data"}

// Options wires the model to its collaborators.
type Options struct {
	Workflow     *associate.Workflow
	Session      session.ID
	ProviderName string
	ModelName    string
}

type Model struct {
	width, height int
	active        tab

	wf     *associate.Workflow
	repo   storage.Repository
	sid    session.ID
	limits config.PalaceConfig

	providerName string
	modelName    string

	spinner  spinner.Model
	renderer *glamour.TermRenderer
	ctx      context.Context
	cancel   context.CancelFunc

	create  createTab
	browse  browseTab
	palaces palacesTab
	data    dataTab

	status    string
	statusErr bool
}

func NewModel(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = GeneratingSpinner
	sp.Style = SpinnerStyle

	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(80),
	)
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		wf:           opts.Workflow,
		repo:         opts.Workflow.Repository(),
		sid:          opts.Session,
		limits:       opts.Workflow.Limits(),
		providerName: opts.ProviderName,
		modelName:    opts.ModelName,
		spinner:      sp,
		renderer:     r,
		ctx:          ctx,
		cancel:       cancel,
		create:       newCreateTab(),
		browse:       newBrowseTab(),
		palaces:      newPalacesTab(),
		data:         newDataTab(),
	}
	m.status = "session " + shortID(m.sid)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.create.focusCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.create.generating {
				m.cancel()
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.setStatus("generation cancelled", true)
				return m, nil
			}
			m.cancel()
			return m, tea.Quit
		case tea.KeyTab:
			return m.switchTab((m.active + 1) % tab(len(tabNames)))
		case tea.KeyShiftTab:
			return m.switchTab((m.active + tab(len(tabNames)) - 1) % tab(len(tabNames)))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case generationEventMsg, generationDoneMsg:
		return m.updateCreate(msg)
	case categoriesLoadedMsg, associationsLoadedMsg:
		return m.updateBrowse(msg)
	case palacesLoadedMsg, palaceAddedMsg:
		return m.updatePalaces(msg)
	case exportDoneMsg, importDoneMsg:
		return m.updateData(msg)
	}

	switch m.active {
	case tabCreate:
		return m.updateCreate(msg)
	case tabView:
		return m.updateBrowse(msg)
	case tabPalaces:
		return m.updatePalaces(msg)
	default:
		return m.updateData(msg)
	}
}

// switchTab moves focus and refreshes the data the new tab shows.
func (m Model) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.active = t
	switch t {
	case tabCreate:
		return m, m.create.focusCmd()
	case tabView:
		m.browse.level = levelCategories
		return m, m.loadCategories()
	case tabPalaces:
		return m, tea.Batch(m.palaces.focusCmd(), m.loadPalaces())
	default:
		return m, m.data.focusCmd()
	}
}

func (m *Model) resize() {
	bodyH := max(m.height-6, 5)
	w := max(m.width-4, 20)
	m.create.resize(w, bodyH)
	m.browse.resize(w, bodyH)
	m.palaces.resize(w, bodyH)
	m.data.resize(w)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) render(markdown string) string {
	if m.renderer == nil {
		return markdown
	}
	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func (m Model) View() string {
	var b strings.Builder

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.active {
			tabs[i] = ActiveTabStyle.Render(name)
		} else {
			tabs[i] = TabStyle.Render(name)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")
	b.WriteString(SeparatorStyle.Render(strings.Repeat("─", max(m.width, 40))) + "\n")

	switch m.active {
	case tabCreate:
		b.WriteString(m.viewCreate())
	case tabView:
		b.WriteString(m.viewBrowse())
	case tabPalaces:
		b.WriteString(m.viewPalaces())
	case tabData:
		b.WriteString(m.viewData())
	}

	b.WriteString("\n" + m.statusBar())
	return b.String()
}

func (m Model) statusBar() string {
	left := StatusProviderStyle.Render(fmt.Sprintf("%s/%s", m.providerName, m.modelName))
	text := m.status
	if m.create.generating {
		text = m.spinner.View() + " " + text
	}
	style := StatusBarStyle
	if m.statusErr {
		style = style.Background(Red)
	}
	help := HelpStyle.Render("  tab/shift+tab switch · ctrl+c quit")
	return left + style.Render(text) + help
}

func shortID(id session.ID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
