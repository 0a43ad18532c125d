// Package ui provides the terminal chat interface for hearsay.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"

	"github.com/hearsay-cli/hearsay/internal/chat"
	"github.com/hearsay-cli/hearsay/internal/playback"
)

// ChatClient is the backend surface the UI needs. *chat.Client satisfies it.
type ChatClient interface {
	StreamChat(ctx context.Context, req chat.StreamRequest, handler func(chat.StreamEvent) error) error
	SearchMemories(ctx context.Context, query string, limit int) ([]chat.MemorySummary, error)
	Memory(ctx context.Context, memoryID string) (*chat.MemoryDetail, error)
}

// Speaker routes streamed reply text and ready audio toward playback. The
// speech package's Speaker satisfies it.
type Speaker interface {
	FeedText(ctx context.Context, chunk string)
	FlushText(ctx context.Context)
	SpeakURL(url string)
	Reset()
}

// PlaybackController exposes the playback controls surfaced by key
// bindings and the status bar. *playback.Scheduler satisfies it.
type PlaybackController interface {
	Pause()
	Resume()
	Skip()
	Reset()
	Status() playback.Status
}

// Deps bundles the collaborators the UI drives.
type Deps struct {
	Client   ChatClient
	Speaker  Speaker
	Playback PlaybackController
}

// NewProgram returns the Tea program for an interactive chat session.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("starting chat ui",
		"server", cfg.ServerURL,
		"voice", cfg.VoiceStyle,
		"server_tts", cfg.ServerTTS,
	)

	if cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, deps), opts...)
}

// state is the top-level application state.
type state int

const (
	stateChat state = iota
	stateMemories
)

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	deps   Deps
	width  int
	height int
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	chat     chatModel
	memories memoryModel
}

func newModel(cfg Config, deps Deps) tea.Model {
	common := &commonModel{cfg: cfg, deps: deps}
	return model{
		common:   common,
		state:    stateChat,
		chat:     newChatModel(common),
		memories: newMemoryModel(common),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.chat.Init(), pollPlayback(m.common.deps.Playback))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.chat.setSize(msg.Width, msg.Height)
		m.memories.setSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+f":
			if m.state == stateChat {
				m.state = stateMemories
				return m, m.memories.focus()
			}
		case "esc":
			if m.state == stateMemories {
				if m.memories.viewing {
					m.memories.closeDetail()
					return m, nil
				}
				m.state = stateChat
				return m, nil
			}
		}

	case playbackStatusMsg:
		m.chat.playback = playback.Status(msg)
		cmds = append(cmds, pollPlayback(m.common.deps.Playback))

	case streamEventMsg, streamClosedMsg, spinner.TickMsg:
		// Reply progress belongs to the chat transcript even while another
		// view has focus; dropping these would stall the stream.
		newChat, cmd := m.chat.update(msg)
		m.chat = newChat
		return m, cmd

	case fatalErrMsg:
		m.fatalErr = msg.err
		return m, tea.Quit
	}

	switch m.state {
	case stateChat:
		newChat, cmd := m.chat.update(msg)
		m.chat = newChat
		cmds = append(cmds, cmd)
	case stateMemories:
		newMemories, cmd := m.memories.update(msg)
		m.memories = newMemories
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorStyle.Render("fatal: "+m.fatalErr.Error()) + "\n"
	}
	switch m.state {
	case stateMemories:
		return m.memories.view()
	default:
		return m.chat.view()
	}
}
