package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var speakCmd = &cobra.Command{
	Use:     "speak [text]",
	Short:   "Synthesize text and play it, without the chat UI",
	Long:    paragraph(fmt.Sprintf("\n%s a piece of text aloud using the backend's synthesis engine. Reads from stdin when no argument is given.", keyword("Speak"))),
	Example: paragraph("hearsay speak \"Hello there.\"\necho 'Piped text.' | hearsay speak"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := speakInput(args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("nothing to speak")
		}

		stack, err := buildVoiceStack(mute)
		if err != nil {
			return err
		}
		defer stack.Close()

		started := time.Now()
		ctx := cmd.Context()

		stack.speaker.FeedText(ctx, text)
		stack.speaker.FlushText(ctx)
		stack.speaker.Wait()

		if err := waitForPlayback(ctx, stack); err != nil {
			return err
		}

		fmt.Printf("spoke %s of audio in %s\n",
			humanize.IBytes(uint64(stack.clips.Size())), //nolint:gosec
			time.Since(started).Round(time.Millisecond))
		return nil
	},
}

// speakInput takes the text from the argument or from piped stdin.
func speakInput(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice != 0 && stat.Size() == 0 {
		return "", fmt.Errorf("no text given and nothing piped on stdin")
	}

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return string(b), nil
}

// waitForPlayback blocks until the queue drains and playback ends.
func waitForPlayback(ctx context.Context, stack *voiceStack) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := stack.scheduler.Status()
			if !st.IsPlaying && st.QueueLength == 0 && st.CurrentAudio == "" {
				return nil
			}
		}
	}
}
