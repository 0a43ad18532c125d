package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearsay-cli/hearsay/internal/chat"
	"github.com/hearsay-cli/hearsay/internal/playback"
)

type (
	// streamEventMsg carries one backend event of an in-flight reply.
	streamEventMsg chat.StreamEvent

	// streamClosedMsg signals the reply stream finished or broke.
	streamClosedMsg struct{ err error }

	// playbackStatusMsg carries a fresh playback snapshot for the status
	// bar.
	playbackStatusMsg playback.Status

	// memoriesLoadedMsg carries memory search results.
	memoriesLoadedMsg struct {
		results []chat.MemorySummary
		err     error
	}

	// memoryDetailMsg carries one opened memory in full.
	memoryDetailMsg struct {
		detail *chat.MemoryDetail
		err    error
	}

	// statusNoteMsg shows a transient note in the status bar.
	statusNoteMsg string

	// statusNoteExpiredMsg clears a transient note.
	statusNoteExpiredMsg struct{}

	// fatalErrMsg aborts the program.
	fatalErrMsg struct{ err error }
)

const playbackPollInterval = 250 * time.Millisecond

// pollPlayback schedules the next status bar refresh.
func pollPlayback(pc PlaybackController) tea.Cmd {
	return tea.Tick(playbackPollInterval, func(time.Time) tea.Msg {
		return playbackStatusMsg(pc.Status())
	})
}

// waitForStreamEvent blocks on the reply channel and converts the next
// event into a message. The stream goroutine closes ch when done.
func waitForStreamEvent(ch <-chan chat.StreamEvent, errc <-chan error) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{err: <-errc}
		}
		return streamEventMsg(ev)
	}
}
