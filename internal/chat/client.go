package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Client talks to the voice chat backend. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL    string
	voiceStyle string
	httpClient *http.Client
	logger     *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithVoiceStyle selects the synthesis voice for TTS requests.
func WithVoiceStyle(style string) ClientOption {
	return func(c *Client) { c.voiceStyle = style }
}

// NewClient creates a backend client rooted at baseURL, for example
// "http://localhost:8000". logger may be nil.
func NewClient(baseURL string, logger *log.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		voiceStyle: VoiceNormal,
		// Streaming replies stay open for the whole generation; no
		// client-side timeout, cancellation comes from ctx.
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// NewConversationID mints an identifier for a fresh conversation.
func NewConversationID() string { return uuid.NewString() }

// StreamChat posts a message and delivers each stream event to handler in
// arrival order. It returns when the backend signals end or error, when ctx
// is canceled, or when handler returns a non-nil error.
func (c *Client) StreamChat(ctx context.Context, req StreamRequest, handler func(StreamEvent) error) error {
	req.Stream = true
	if req.VoiceStyle == "" {
		req.VoiceStyle = c.voiceStyle
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("chat: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat: stream returned %s", resp.Status)
	}

	events := newEventReader(resp.Body)
	for {
		data, err := events.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat: read stream: %w", err)
		}

		var ev StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("malformed stream event skipped", "err", err)
			continue
		}

		if err := handler(ev); err != nil {
			return err
		}
		if ev.Type == EventEnd || ev.Type == EventError {
			return nil
		}
	}
}

// Chat posts a message and waits for the whole reply. Prefer StreamChat for
// interactive use; this exists for callers that want a single round trip.
func (c *Client) Chat(ctx context.Context, req StreamRequest) (*ChatResponse, error) {
	req.Stream = false
	if req.VoiceStyle == "" {
		req.VoiceStyle = c.voiceStyle
	}

	var result ChatResponse
	if err := c.postJSON(ctx, "/api/chat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Synthesize converts text to speech and returns the audio URL, relative to
// the backend root. It satisfies the speech package's Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	payload := struct {
		Text       string `json:"text"`
		VoiceStyle string `json:"voice_style"`
	}{Text: text, VoiceStyle: c.voiceStyle}

	var result struct {
		AudioURL string `json:"audio_url"`
	}
	if err := c.postJSON(ctx, "/api/tts", payload, &result); err != nil {
		return "", err
	}
	if result.AudioURL == "" {
		return "", fmt.Errorf("chat: synthesis returned no audio url")
	}
	return result.AudioURL, nil
}

// SearchMemories queries stored conversation memories.
func (c *Client) SearchMemories(ctx context.Context, query string, limit int) ([]MemorySummary, error) {
	payload := struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}{Query: query, Limit: limit}

	var result []MemorySummary
	if err := c.postJSON(ctx, "/api/memories/search", payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Memory fetches one stored memory in full.
func (c *Client) Memory(ctx context.Context, memoryID string) (*MemoryDetail, error) {
	var result MemoryDetail
	if err := c.getJSON(ctx, "/api/memories/"+memoryID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Conversation fetches the stored history of a conversation.
func (c *Client) Conversation(ctx context.Context, conversationID string) (*MemoryDetail, error) {
	var result MemoryDetail
	if err := c.getJSON(ctx, "/api/conversations/"+conversationID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("chat: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chat: %s %s returned %s: %s",
			req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(snippet)))
	}

	c.logger.Debug("backend call", "path", req.URL.Path, "took", time.Since(started))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat: decode response: %w", err)
	}
	return nil
}
