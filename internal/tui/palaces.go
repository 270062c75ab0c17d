package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/loci/internal/storage"
)

type palaceRow struct {
	name  string
	items []string
}

type palacesLoadedMsg struct {
	rows []palaceRow
	err  error
}

type palaceAddedMsg struct {
	name string
	err  error
}

type palacesTab struct {
	name    textinput.Model
	items   textinput.Model
	focus   int
	rows    []palaceRow
	listing viewport.Model
}

func newPalacesTab() palacesTab {
	name := textinput.New()
	name.Placeholder = "Garage"
	name.Prompt = ""
	name.CharLimit = 25
	items := textinput.New()
	items.Placeholder = "Bike, Car, Shelf, Toolbox, Door"
	items.Prompt = ""
	return palacesTab{name: name, items: items, listing: viewport.New(80, 10)}
}

func (p *palacesTab) focusCmd() tea.Cmd {
	if p.focus == 0 {
		p.items.Blur()
		return p.name.Focus()
	}
	p.name.Blur()
	return p.items.Focus()
}

func (p *palacesTab) resize(w, h int) {
	p.name.Width = w - 14
	p.items.Width = w - 14
	p.listing.Width = w
	p.listing.Height = max(h-8, 3)
}

func (m Model) loadPalaces() tea.Cmd {
	repo, sid, ctx := m.repo, m.sid, m.ctx
	return func() tea.Msg {
		palaces, err := repo.ListPalaces(ctx, sid)
		if err != nil {
			return palacesLoadedMsg{err: err}
		}
		rows := make([]palaceRow, 0, len(palaces))
		for _, p := range palaces {
			items, err := repo.GetItems(ctx, sid, p.ID)
			if err != nil {
				return palacesLoadedMsg{err: err}
			}
			rows = append(rows, palaceRow{name: p.DisplayName, items: items})
		}
		return palacesLoadedMsg{rows: rows}
	}
}

func (m Model) addPalace(name string, items []string) tea.Cmd {
	wf, sid, ctx := m.wf, m.sid, m.ctx
	return func() tea.Msg {
		_, err := wf.CreatePalace(ctx, sid, name, items)
		return palaceAddedMsg{name: strings.TrimSpace(name), err: err}
	}
}

func (m Model) updatePalaces(msg tea.Msg) (tea.Model, tea.Cmd) {
	p := &m.palaces
	switch msg := msg.(type) {
	case palacesLoadedMsg:
		if msg.err != nil {
			m.setStatus("load palaces: "+msg.err.Error(), true)
			return m, nil
		}
		p.rows = msg.rows
		p.listing.SetContent(renderPalaces(msg.rows))
		return m, nil

	case palaceAddedMsg:
		if errors.Is(msg.err, storage.ErrAlreadyExists) {
			m.setStatus(fmt.Sprintf("palace %q already exists", msg.name), true)
			return m, nil
		}
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		p.name.Reset()
		p.items.Reset()
		p.focus = 0
		m.setStatus(fmt.Sprintf("palace %q added", msg.name), false)
		return m, tea.Batch(p.focusCmd(), m.loadPalaces())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyUp, tea.KeyDown:
			p.focus = 1 - p.focus
			return m, p.focusCmd()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			p.listing, cmd = p.listing.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if p.focus == 0 {
				p.focus = 1
				return m, p.focusCmd()
			}
			return m, m.addPalace(p.name.Value(), splitList(p.items.Value(), ","))
		}
	}

	var cmd tea.Cmd
	if p.focus == 0 {
		p.name, cmd = p.name.Update(msg)
	} else {
		p.items, cmd = p.items.Update(msg)
	}
	return m, cmd
}

func renderPalaces(rows []palaceRow) string {
	if len(rows) == 0 {
		return HelpStyle.Render("  no palaces in this session")
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(PalaceNameStyle.Render(r.name) + "\n")
		for i, it := range r.items {
			b.WriteString(ItemStyle.Render(fmt.Sprintf("  %2d. %s", i+1, it)) + "\n")
		}
	}
	return b.String()
}

func (m Model) viewPalaces() string {
	p := m.palaces
	nameStyle, itemsStyle := InputActiveStyle, InputBorderStyle
	if p.focus == 1 {
		nameStyle, itemsStyle = InputBorderStyle, InputActiveStyle
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render("Name") + nameStyle.Render(p.name.View()) + "\n")
	b.WriteString(LabelStyle.Render("Items") + itemsStyle.Render(p.items.View()) + "\n")
	b.WriteString(HelpStyle.Render(fmt.Sprintf("  enter add · %d-%d items, comma separated · pgup/pgdn scroll",
		m.limits.MinItems, m.limits.MaxItems)) + "\n")
	b.WriteString(p.listing.View())
	return b.String()
}
