package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/loci/internal/content"
	"github.com/jeanpaul/loci/internal/storage"
)

type browseLevel int

const (
	levelCategories browseLevel = iota
	levelAssociations
	levelContent
)

type categoriesLoadedMsg struct {
	categories []storage.Category
	err        error
}

type associationsLoadedMsg struct {
	category     string
	associations []storage.Association
	palaces      map[storage.PalaceID]string
	err          error
}

type browseTab struct {
	level        browseLevel
	categories   list.Model
	associations list.Model
	loaded       []storage.Association
	reader       viewport.Model
}

func newBrowseTab() browseTab {
	return browseTab{
		categories:   newList("Categories", nil, 60, 15),
		associations: newList("Associations", nil, 60, 15),
		reader:       viewport.New(80, 15),
	}
}

func (b *browseTab) resize(w, h int) {
	b.categories.SetSize(w, h)
	b.associations.SetSize(w, h)
	b.reader.Width = w
	b.reader.Height = h
}

func (m Model) loadCategories() tea.Cmd {
	repo, sid, ctx := m.repo, m.sid, m.ctx
	return func() tea.Msg {
		cats, err := repo.ListCategories(ctx, sid)
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

func (m Model) loadAssociations(categoryID storage.CategoryID, name string) tea.Cmd {
	repo, sid, ctx := m.repo, m.sid, m.ctx
	return func() tea.Msg {
		assocs, err := repo.ListAssociations(ctx, sid, categoryID)
		if err != nil {
			return associationsLoadedMsg{err: err}
		}
		palaces := make(map[storage.PalaceID]string)
		for _, a := range assocs {
			if _, ok := palaces[a.PalaceID]; ok {
				continue
			}
			display, err := repo.GetDisplayName(ctx, sid, a.PalaceID)
			if err != nil {
				display = "?"
			}
			palaces[a.PalaceID] = display
		}
		return associationsLoadedMsg{category: name, associations: assocs, palaces: palaces}
	}
}

func (m Model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	b := &m.browse
	switch msg := msg.(type) {
	case categoriesLoadedMsg:
		if msg.err != nil {
			m.setStatus("load categories: "+msg.err.Error(), true)
			return m, nil
		}
		items := make([]list.Item, len(msg.categories))
		for i, c := range msg.categories {
			items[i] = item{title: c.DisplayName, id: int64(c.ID)}
		}
		cmd := b.categories.SetItems(items)
		if len(items) == 0 {
			m.setStatus("no categories yet, create an association first", false)
		}
		return m, cmd

	case associationsLoadedMsg:
		if msg.err != nil {
			m.setStatus("load associations: "+msg.err.Error(), true)
			return m, nil
		}
		b.loaded = msg.associations
		items := make([]list.Item, len(msg.associations))
		for i, a := range msg.associations {
			items[i] = item{title: a.Topic, desc: "palace " + msg.palaces[a.PalaceID], id: int64(a.ID)}
		}
		b.associations.Title = msg.category
		b.level = levelAssociations
		return m, b.associations.SetItems(items)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			if b.level > levelCategories {
				b.level--
			}
			return m, nil
		case tea.KeyEnter:
			switch b.level {
			case levelCategories:
				if it, ok := selectedItem(b.categories); ok {
					return m, m.loadAssociations(storage.CategoryID(it.id), it.title)
				}
			case levelAssociations:
				if it, ok := selectedItem(b.associations); ok {
					for _, a := range b.loaded {
						if int64(a.ID) == it.id {
							md := fmt.Sprintf("## %s\n\n*%s*\n\n%s", a.Topic, it.desc, content.Markdown(a.Content))
							b.reader.SetContent(m.render(md))
							b.reader.GotoTop()
							b.level = levelContent
						}
					}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch b.level {
	case levelCategories:
		b.categories, cmd = b.categories.Update(msg)
	case levelAssociations:
		b.associations, cmd = b.associations.Update(msg)
	default:
		b.reader, cmd = b.reader.Update(msg)
	}
	return m, cmd
}

func (m Model) viewBrowse() string {
	b := m.browse
	var out strings.Builder
	switch b.level {
	case levelCategories:
		out.WriteString(b.categories.View())
		out.WriteString("\n" + HelpStyle.Render("  enter open · ↑/↓ move"))
	case levelAssociations:
		out.WriteString(b.associations.View())
		out.WriteString("\n" + HelpStyle.Render("  enter read · esc back"))
	default:
		out.WriteString(b.reader.View())
		out.WriteString("\n" + HelpStyle.Render("  ↑/↓ scroll · esc back"))
	}
	return out.String()
}
