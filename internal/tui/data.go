package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/loci/internal/exchange"
)

// DefaultExportFile is offered as the Data tab's path.
const DefaultExportFile = "memory_palace_data.json"

type exportDoneMsg struct {
	path string
	err  error
}

type importDoneMsg struct {
	reports []exchange.FileReport
	err     error
}

type dataTab struct {
	path   textinput.Model
	report string
}

func newDataTab() dataTab {
	ti := textinput.New()
	ti.Prompt = ""
	ti.SetValue(DefaultExportFile)
	return dataTab{path: ti}
}

func (d *dataTab) focusCmd() tea.Cmd { return d.path.Focus() }

func (d *dataTab) resize(w int) { d.path.Width = w - 14 }

func (m Model) exportTo(path string) tea.Cmd {
	repo, sid, ctx := m.repo, m.sid, m.ctx
	return func() tea.Msg {
		doc, err := exchange.Export(ctx, repo, sid)
		if err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		return exportDoneMsg{path: path, err: exchange.WriteFile(path, doc)}
	}
}

// importFrom accepts a single file or a glob such as backups/**/*.json.
func (m Model) importFrom(pattern string) tea.Cmd {
	repo, sid, ctx := m.repo, m.sid, m.ctx
	return func() tea.Msg {
		reports, err := exchange.ImportFiles(ctx, repo, sid, pattern)
		return importDoneMsg{reports: reports, err: err}
	}
}

func (m Model) updateData(msg tea.Msg) (tea.Model, tea.Cmd) {
	d := &m.data
	switch msg := msg.(type) {
	case exportDoneMsg:
		if msg.err != nil {
			m.setStatus("export failed: "+msg.err.Error(), true)
			return m, nil
		}
		d.report = "exported to " + msg.path
		m.setStatus("export complete", false)
		return m, nil

	case importDoneMsg:
		var b strings.Builder
		for _, r := range msg.reports {
			fmt.Fprintf(&b, "%s\n  %s\n", r.Path, r.Report)
		}
		d.report = b.String()
		if msg.err != nil {
			m.setStatus("import failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("imported %d file(s)", len(msg.reports)), false)
		return m, nil

	case tea.KeyMsg:
		path := strings.TrimSpace(d.path.Value())
		switch msg.Type {
		case tea.KeyCtrlS:
			if path == "" {
				m.setStatus("enter a file path", true)
				return m, nil
			}
			return m, m.exportTo(path)
		case tea.KeyCtrlO:
			if path == "" {
				m.setStatus("enter a file path or glob", true)
				return m, nil
			}
			return m, m.importFrom(path)
		}
	}

	var cmd tea.Cmd
	d.path, cmd = d.path.Update(msg)
	return m, cmd
}

func (m Model) viewData() string {
	d := m.data
	var b strings.Builder
	b.WriteString(LabelStyle.Render("File") + InputActiveStyle.Render(d.path.View()) + "\n")
	b.WriteString(HelpStyle.Render("  ctrl+s export (.json .yaml .xlsx) · ctrl+o import (.json .yaml, globs allowed)") + "\n\n")
	if d.report != "" {
		b.WriteString(d.report)
	}
	return b.String()
}
