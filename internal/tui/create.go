package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/loci/internal/associate"
	"github.com/jeanpaul/loci/internal/content"
	"github.com/jeanpaul/loci/internal/storage"
)

const (
	fieldPalace = iota
	fieldItems
	fieldCategory
	fieldTopic
	fieldPoints
)

var createLabels = []string{"Palace", "Items", "Category", "Topic", "Points"}

type generationEventMsg associate.Event

type generationDoneMsg struct {
	out *associate.Outcome
	err error
}

type createTab struct {
	inputs     []textinput.Model
	focus      int
	generating bool
	events     chan tea.Msg
	progress   []string
	result     viewport.Model
}

func newCreateTab() createTab {
	placeholders := []string{
		"Kitchen",
		"Stove, Sink, Fridge, Table, Oven",
		"Science",
		"Thermodynamics",
		"optional; key points separated by ;",
	}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = ""
		inputs[i] = ti
	}
	inputs[fieldPalace].CharLimit = 25
	inputs[fieldTopic].CharLimit = 100
	return createTab{inputs: inputs, result: viewport.New(80, 10)}
}

func (c *createTab) focusCmd() tea.Cmd {
	for i := range c.inputs {
		c.inputs[i].Blur()
	}
	return c.inputs[c.focus].Focus()
}

func (c *createTab) resize(w, h int) {
	for i := range c.inputs {
		c.inputs[i].Width = w - 14
	}
	c.result.Width = w
	c.result.Height = max(h-len(c.inputs)*3-2, 3)
}

// input collects the form into a workflow request.
func (c *createTab) input() associate.Input {
	return associate.Input{
		Palace:   c.inputs[fieldPalace].Value(),
		Items:    splitList(c.inputs[fieldItems].Value(), ","),
		Category: c.inputs[fieldCategory].Value(),
		Topic:    c.inputs[fieldTopic].Value(),
		Points:   splitList(c.inputs[fieldPoints].Value(), ";"),
	}
}

func (m Model) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	c := &m.create
	switch msg := msg.(type) {
	case generationEventMsg:
		c.progress = append(c.progress, describeEvent(associate.Event(msg)))
		c.result.SetContent(ProgressStyle.Render(strings.Join(c.progress, "\n")))
		c.result.GotoBottom()
		return m, m.waitForGeneration()

	case generationDoneMsg:
		c.generating = false
		c.events = nil
		if msg.err != nil {
			m.setStatus(generationError(msg.err), true)
			return m, nil
		}
		md := fmt.Sprintf("## %s\n\n%s", msg.out.Association.Topic, content.Markdown(msg.out.Association.Content))
		c.result.SetContent(m.render(md))
		c.result.GotoTop()
		if n := len(msg.out.Errors); n > 0 {
			m.setStatus(fmt.Sprintf("saved with %d placeholder(s)", n), true)
		} else {
			m.setStatus("association saved", false)
		}
		return m, nil

	case tea.KeyMsg:
		if c.generating {
			var cmd tea.Cmd
			c.result, cmd = c.result.Update(msg)
			return m, cmd
		}
		switch msg.Type {
		case tea.KeyUp:
			c.focus = (c.focus + len(c.inputs) - 1) % len(c.inputs)
			return m, c.focusCmd()
		case tea.KeyDown:
			c.focus = (c.focus + 1) % len(c.inputs)
			return m, c.focusCmd()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			c.result, cmd = c.result.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if c.focus < len(c.inputs)-1 {
				c.focus++
				return m, c.focusCmd()
			}
			return m.startGeneration()
		}
	}

	var cmd tea.Cmd
	c.inputs[c.focus], cmd = c.inputs[c.focus].Update(msg)
	return m, cmd
}

// startGeneration runs the workflow in the background. Progress events and
// the final outcome arrive through c.events.
func (m Model) startGeneration() (tea.Model, tea.Cmd) {
	c := &m.create
	in := c.input()
	events := make(chan tea.Msg, 64)
	in.Progress = func(ev associate.Event) { events <- generationEventMsg(ev) }

	c.generating = true
	c.events = events
	c.progress = []string{"asking for bullet points about " + strings.TrimSpace(in.Topic) + "…"}
	c.result.SetContent(ProgressStyle.Render(c.progress[0]))
	m.setStatus("generating", false)

	ctx, wf, sid := m.ctx, m.wf, m.sid
	go func() {
		out, err := wf.Associate(ctx, sid, in)
		events <- generationDoneMsg{out: out, err: err}
		close(events)
	}()
	return m, m.waitForGeneration()
}

func (m Model) waitForGeneration() tea.Cmd {
	ch := m.create.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) viewCreate() string {
	c := m.create
	var b strings.Builder
	for i, ti := range c.inputs {
		style := InputBorderStyle
		if i == c.focus && !c.generating {
			style = InputActiveStyle
		}
		b.WriteString(LabelStyle.Render(createLabels[i]) + style.Render(ti.View()) + "\n")
	}
	b.WriteString(HelpStyle.Render(fmt.Sprintf("  ↑/↓ move · enter next/generate · %d-%d items, comma separated",
		m.limits.MinItems, m.limits.MaxItems)) + "\n")
	b.WriteString(c.result.View())
	return b.String()
}

func describeEvent(ev associate.Event) string {
	switch ev.Kind {
	case associate.EventBullets:
		return fmt.Sprintf("bullet points ready, picturing %d item(s)", ev.Total)
	case associate.EventImagery:
		return fmt.Sprintf("  %d/%d %s", ev.Done, ev.Total, ev.Item)
	case associate.EventFailed:
		if ev.Item == "" {
			return WarningStyle.Render(fmt.Sprintf("  bullet points failed: %v", ev.Err))
		}
		return WarningStyle.Render(fmt.Sprintf("  %s failed: %v", ev.Item, ev.Err))
	case associate.EventSaved:
		return SuccessStyle.Render("saved")
	}
	return string(ev.Kind)
}

func generationError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	case errors.Is(err, storage.ErrAlreadyExists):
		return "a palace with that name already exists"
	}
	return err.Error()
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
