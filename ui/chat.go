package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/hearsay-cli/hearsay/internal/chat"
	"github.com/hearsay-cli/hearsay/internal/playback"
)

const statusNoteTimeout = 3 * time.Second

// chatMessage is one rendered transcript entry.
type chatMessage struct {
	role     string // "user", "assistant", "note", "error"
	content  string
	rendered string
}

type chatModel struct {
	common *commonModel

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	messages       []chatMessage
	history        []chat.Message
	conversationID string

	streaming bool
	events    chan chat.StreamEvent
	errc      chan error

	playback   playback.Status
	paused     bool
	statusNote string

	ready bool
}

func newChatModel(common *commonModel) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Say something..."
	ta.Prompt = "┃ "
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return chatModel{
		common:         common,
		textarea:       ta,
		spinner:        sp,
		conversationID: chat.NewConversationID(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *chatModel) setSize(width, height int) {
	m.textarea.SetWidth(width)

	// Viewport fills what the textarea, status bar, and help line leave.
	vpHeight := height - m.textarea.Height() - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}

	if m.common.cfg.GlamourEnabled {
		wrapWidth := width - 2
		if max := int(m.common.cfg.GlamourMaxWidth); max > 0 && wrapWidth > max {
			wrapWidth = max
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStylePath(m.common.cfg.GlamourStyle),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			log.Warn("glamour renderer unavailable, falling back to plain text", "err", err)
			m.renderer = nil
		} else {
			m.renderer = renderer
		}
	}

	// Re-render the transcript at the new width.
	for i := range m.messages {
		m.messages[i].rendered = m.renderMessage(m.messages[i])
	}
	m.refreshViewport(false)
}

func (m chatModel) update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if cmd := m.send(); cmd != nil {
				return m, cmd
			}
			return m, nil
		case "ctrl+p":
			m.togglePause()
			return m, nil
		case "ctrl+n":
			m.common.deps.Playback.Skip()
			return m, nil
		case "ctrl+r":
			m.stopSpeech()
			return m, m.note("voice stopped")
		case "ctrl+y":
			return m, m.copyLastReply()
		case "ctrl+l":
			if m.streaming {
				return m, m.note("still replying, ctrl+r to interrupt")
			}
			m.clearConversation()
			return m, m.note("conversation cleared")
		}

	case streamEventMsg:
		cmd := m.handleStreamEvent(chat.StreamEvent(msg))
		return m, cmd

	case streamClosedMsg:
		m.streaming = false
		m.events = nil
		m.errc = nil
		if !m.common.cfg.ServerTTS {
			m.common.deps.Speaker.FlushText(context.Background())
		}
		m.commitReply(msg.err)
		m.refreshViewport(true)
		return m, nil

	case statusNoteMsg:
		m.statusNote = string(msg)
		return m, tea.Tick(statusNoteTimeout, func(time.Time) tea.Msg {
			return statusNoteExpiredMsg{}
		})

	case statusNoteExpiredMsg:
		m.statusNote = ""
		return m, nil

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// send submits the textarea content as a new user message.
func (m *chatModel) send() tea.Cmd {
	if m.streaming {
		return m.note("still replying, ctrl+r to interrupt")
	}
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	m.textarea.Reset()

	m.messages = append(m.messages,
		m.newMessage("user", text),
		m.newMessage("assistant", ""),
	)
	m.refreshViewport(true)

	return m.startStream(text)
}

func (m *chatModel) startStream(text string) tea.Cmd {
	cfg := m.common.cfg
	req := chat.StreamRequest{
		Message:        text,
		ConversationID: m.conversationID,
		History:        m.history,
		TTSEnabled:     cfg.ServerTTS && !cfg.Mute,
		VoiceStyle:     cfg.VoiceStyle,
		LoadMemories:   cfg.LoadMemories,
	}

	ch := make(chan chat.StreamEvent, 32)
	errc := make(chan error, 1)
	m.events = ch
	m.errc = errc
	m.streaming = true

	client := m.common.deps.Client
	go func() {
		err := client.StreamChat(context.Background(), req, func(ev chat.StreamEvent) error {
			ch <- ev
			return nil
		})
		errc <- err
		close(ch)
	}()

	return tea.Batch(waitForStreamEvent(ch, errc), m.spinner.Tick)
}

func (m *chatModel) handleStreamEvent(ev chat.StreamEvent) tea.Cmd {
	switch ev.Type {
	case chat.EventChunk:
		m.appendToReply(ev.Content)
		if !m.common.cfg.ServerTTS && !m.common.cfg.Mute {
			m.common.deps.Speaker.FeedText(context.Background(), ev.Content)
		}

	case chat.EventAudio:
		if m.common.cfg.ServerTTS && !m.common.cfg.Mute && ev.AudioURL != "" {
			m.common.deps.Speaker.SpeakURL(ev.AudioURL)
		}

	case chat.EventToolCall:
		m.messages = append(m.messages, m.newMessage("note", ev.Content))
		m.refreshViewport(true)

	case chat.EventError:
		m.messages = append(m.messages, m.newMessage("error", ev.Content))
		m.refreshViewport(true)
	}

	if m.events == nil {
		return nil
	}
	return waitForStreamEvent(m.events, m.errc)
}

// appendToReply grows the in-flight assistant message.
func (m *chatModel) appendToReply(content string) {
	if len(m.messages) == 0 {
		return
	}
	last := &m.messages[len(m.messages)-1]
	if last.role != "assistant" {
		m.messages = append(m.messages, m.newMessage("assistant", ""))
		last = &m.messages[len(m.messages)-1]
	}
	last.content += content
	last.rendered = m.renderMessage(*last)
	m.refreshViewport(true)
}

// commitReply moves the finished exchange into the request history.
func (m *chatModel) commitReply(err error) {
	if err != nil {
		m.messages = append(m.messages, m.newMessage("error", err.Error()))
	}

	var user, assistant string
	for i := len(m.messages) - 1; i >= 0; i-- {
		switch m.messages[i].role {
		case "assistant":
			if assistant == "" {
				assistant = m.messages[i].content
			}
		case "user":
			user = m.messages[i].content
		}
		if user != "" {
			break
		}
	}
	if user != "" {
		m.history = append(m.history,
			chat.Message{Role: "user", Content: user},
			chat.Message{Role: "assistant", Content: assistant},
		)
	}
}

func (m *chatModel) togglePause() {
	if m.paused {
		m.common.deps.Playback.Resume()
		m.paused = false
	} else {
		m.common.deps.Playback.Pause()
		m.paused = true
	}
}

// clearConversation wipes the transcript and starts a fresh conversation,
// dropping any queued or playing audio with it.
func (m *chatModel) clearConversation() {
	m.stopSpeech()
	m.messages = nil
	m.history = nil
	m.conversationID = chat.NewConversationID()
	m.refreshViewport(false)
}

// stopSpeech drops all queued and playing audio.
func (m *chatModel) stopSpeech() {
	m.common.deps.Speaker.Reset()
	m.common.deps.Playback.Reset()
	m.paused = false
}

func (m *chatModel) copyLastReply() tea.Cmd {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == "assistant" && m.messages[i].content != "" {
			if err := clipboard.WriteAll(m.messages[i].content); err != nil {
				log.Warn("clipboard write failed", "err", err)
				return m.note("copy failed")
			}
			return m.note("copied reply")
		}
	}
	return nil
}

func (m *chatModel) note(text string) tea.Cmd {
	return func() tea.Msg { return statusNoteMsg(text) }
}

func (m *chatModel) newMessage(role, content string) chatMessage {
	msg := chatMessage{role: role, content: content}
	msg.rendered = m.renderMessage(msg)
	return msg
}

func (m *chatModel) renderMessage(msg chatMessage) string {
	switch msg.role {
	case "user":
		return userLabelStyle.Render("You") + "\n" + m.wrapPlain(msg.content)
	case "assistant":
		body := msg.content
		if m.renderer != nil && body != "" {
			if out, err := m.renderer.Render(body); err == nil {
				body = strings.TrimRight(out, "\n")
			} else {
				body = m.wrapPlain(body)
			}
		} else {
			body = m.wrapPlain(body)
		}
		return assistantLabelStyle.Render("Assistant") + "\n" + body
	case "note":
		return toolNoteStyle.Render(m.wrapPlain(msg.content))
	case "error":
		return errorStyle.Render(m.wrapPlain(msg.content))
	default:
		return m.wrapPlain(msg.content)
	}
}

func (m *chatModel) wrapPlain(text string) string {
	width := m.viewport.Width - 2
	if width < 10 {
		width = 10
	}
	return wordwrap.String(text, width)
}

func (m *chatModel) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	blocks := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		blocks = append(blocks, msg.rendered)
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m chatModel) view() string {
	if !m.ready {
		return "\n  initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.statusBarView())
	b.WriteByte('\n')
	b.WriteString(m.textarea.View())
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render(
		"enter send · ctrl+p pause · ctrl+n skip · ctrl+r stop voice · ctrl+l clear · ctrl+y copy · ctrl+f memories · ctrl+c quit"))
	return b.String()
}

// statusBarView renders the one-line playback and stream status.
func (m chatModel) statusBarView() string {
	width := m.viewport.Width
	if width <= 0 {
		return ""
	}

	left := renderPlaybackStatus(m.playback, m.paused)
	if m.streaming {
		left = m.spinner.View() + " replying  " + left
	}
	if m.statusNote != "" {
		left += "  · " + m.statusNote
	}

	left = truncate.StringWithTail(left, uint(width), "…")
	gap := width - ansi.PrintableRuneWidth(left)
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Render(left + strings.Repeat(" ", gap))
}

// renderPlaybackStatus formats a playback snapshot for the status bar.
func renderPlaybackStatus(st playback.Status, paused bool) string {
	switch {
	case st.IsPlaying:
		s := fmt.Sprintf("▶ %s", formatClock(st.Elapsed))
		if st.Remaining > 0 {
			s += fmt.Sprintf(" -%s", formatClock(st.Remaining))
		}
		if st.QueueLength > 0 {
			s += fmt.Sprintf(" · %d queued", st.QueueLength)
		}
		return statusPlayingStyle.Render(s)
	case paused && st.CurrentAudio != "":
		s := fmt.Sprintf("⏸ %s", formatClock(st.Elapsed))
		if st.QueueLength > 0 {
			s += fmt.Sprintf(" · %d queued", st.QueueLength)
		}
		return statusPausedStyle.Render(s)
	case st.QueueLength > 0:
		return fmt.Sprintf("… %d queued", st.QueueLength)
	default:
		return "voice idle"
	}
}

// formatClock renders a duration as m:ss.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
