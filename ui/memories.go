package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"

	"github.com/hearsay-cli/hearsay/internal/chat"
)

const memorySearchLimit = 20

// memoryModel is the conversation memory browser. Enter queries the
// backend; further typing narrows the results fuzzily on the client, and
// enter on an already-searched query opens the selected memory in full.
type memoryModel struct {
	common *commonModel

	input     textinput.Model
	results   []chat.MemorySummary
	filtered  []int // indexes into results
	cursor    int
	err       error
	lastQuery string

	viewing bool
	detail  *chat.MemoryDetail

	width  int
	height int
}

func newMemoryModel(common *commonModel) memoryModel {
	ti := textinput.New()
	ti.Placeholder = "Search past conversations"
	ti.Prompt = "/ "
	return memoryModel{common: common, input: ti}
}

func (m *memoryModel) setSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 4
}

func (m *memoryModel) focus() tea.Cmd {
	m.input.Focus()
	return textinput.Blink
}

func (m memoryModel) update(msg tea.Msg) (memoryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.viewing {
			// The detail view only reacts to esc, handled a level up.
			return m, nil
		}
		switch msg.String() {
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query != "" && query != m.lastQuery {
				m.lastQuery = query
				return m, m.search(query)
			}
			if len(m.filtered) > 0 {
				return m, m.open(m.results[m.filtered[m.cursor]].MemoryID)
			}
			return m, nil
		case "up", "ctrl+k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+j":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}

	case memoriesLoadedMsg:
		m.err = msg.err
		m.results = msg.results
		m.refilter()
		return m, nil

	case memoryDetailMsg:
		m.err = msg.err
		m.detail = msg.detail
		m.viewing = msg.err == nil
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return m, cmd
}

func (m *memoryModel) search(query string) tea.Cmd {
	client := m.common.deps.Client
	return func() tea.Msg {
		results, err := client.SearchMemories(context.Background(), query, memorySearchLimit)
		return memoriesLoadedMsg{results: results, err: err}
	}
}

func (m *memoryModel) open(memoryID string) tea.Cmd {
	client := m.common.deps.Client
	return func() tea.Msg {
		detail, err := client.Memory(context.Background(), memoryID)
		return memoryDetailMsg{detail: detail, err: err}
	}
}

// closeDetail returns from an opened memory to the result list.
func (m *memoryModel) closeDetail() {
	m.viewing = false
	m.detail = nil
}

// refilter narrows results by fuzzy-matching the query against summaries.
func (m *memoryModel) refilter() {
	query := strings.TrimSpace(m.input.Value())
	m.cursor = 0

	if query == "" || len(m.results) == 0 {
		m.filtered = make([]int, len(m.results))
		for i := range m.results {
			m.filtered[i] = i
		}
		return
	}

	targets := make([]string, len(m.results))
	for i, r := range m.results {
		targets[i] = r.Summary + " " + strings.Join(r.Tags, " ")
	}

	matches := fuzzy.Find(query, targets)
	m.filtered = m.filtered[:0]
	for _, match := range matches {
		m.filtered = append(m.filtered, match.Index)
	}
	// Fuzzy matching against fresh backend results can legitimately come
	// up empty; fall back to showing everything.
	if len(m.filtered) == 0 {
		for i := range m.results {
			m.filtered = append(m.filtered, i)
		}
	}
}

func (m memoryModel) view() string {
	if m.viewing && m.detail != nil {
		return m.detailView()
	}

	var b strings.Builder

	b.WriteString(assistantLabelStyle.Render("Memories"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("search failed: " + m.err.Error()))
	case len(m.results) == 0:
		b.WriteString(helpStyle.Render("no results yet, type a query and press enter"))
	default:
		maxRows := m.height - 8
		if maxRows < 1 {
			maxRows = 1
		}
		for row, idx := range m.filtered {
			if row >= maxRows {
				break
			}
			r := m.results[idx]
			line := fmt.Sprintf("%s  %s", r.Timestamp, r.Summary)
			line = runewidth.Truncate(line, m.width-4, "…")
			if row == m.cursor {
				line = memorySelectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter search · enter again open · up/down select · esc back"))
	return b.String()
}

// detailView renders one opened memory with its stored conversation.
func (m memoryModel) detailView() string {
	var b strings.Builder
	width := m.width - 4
	if width < 10 {
		width = 10
	}

	b.WriteString(assistantLabelStyle.Render("Memory"))
	b.WriteString("\n\n")
	b.WriteString(wordwrap.String(m.detail.Summary, width))
	b.WriteString("\n")
	meta := m.detail.Timestamp
	if len(m.detail.Tags) > 0 {
		meta += " · " + strings.Join(m.detail.Tags, ", ")
	}
	b.WriteString(helpStyle.Render(meta))
	b.WriteString("\n\n")

	for _, msg := range m.detail.Messages {
		label := userLabelStyle.Render("You")
		if msg.Role == "assistant" {
			label = assistantLabelStyle.Render("Assistant")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wordwrap.String(msg.Content, width))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("esc back"))
	return b.String()
}
