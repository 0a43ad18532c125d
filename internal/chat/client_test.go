package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseHandler(t *testing.T, events ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			http.NotFound(w, r)
			return
		}
		var req StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			flusher.Flush()
		}
	}
}

func TestStreamChatDeliversEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{"type": "chunk", "content": "Hel"}`,
		`{"type": "chunk", "content": "lo."}`,
		`{"type": "audio", "audio_url": "/audio/a.wav"}`,
		`{"type": "end", "audio_url": "/audio/a.wav"}`,
	))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	var got []StreamEvent
	err := c.StreamChat(context.Background(), StreamRequest{Message: "hi"}, func(ev StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("got %d events, want 4", len(got))
	}
	if got[0].Type != EventChunk || got[0].Content != "Hel" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[2].Type != EventAudio || got[2].AudioURL != "/audio/a.wav" {
		t.Errorf("audio event = %+v", got[2])
	}
	if got[3].Type != EventEnd {
		t.Errorf("last event = %+v", got[3])
	}
}

func TestStreamChatStopsAfterEnd(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{"type": "end"}`,
		`{"type": "chunk", "content": "should not arrive"}`,
	))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	var got []StreamEvent
	err := c.StreamChat(context.Background(), StreamRequest{Message: "hi"}, func(ev StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events after end, want 1", len(got))
	}
}

func TestStreamChatHandlerErrorStopsStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{"type": "chunk", "content": "a"}`,
		`{"type": "chunk", "content": "b"}`,
	))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	boom := errors.New("handler gave up")
	err := c.StreamChat(context.Background(), StreamRequest{Message: "hi"}, func(StreamEvent) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want handler error", err)
	}
}

func TestStreamChatSkipsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{not json`,
		`{"type": "chunk", "content": "ok"}`,
		`{"type": "end"}`,
	))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	var got []StreamEvent
	err := c.StreamChat(context.Background(), StreamRequest{Message: "hi"}, func(ev StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d events, want 2 (malformed one skipped)", len(got))
	}
}

func TestStreamChatNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	err := c.StreamChat(context.Background(), StreamRequest{Message: "hi"}, func(StreamEvent) error {
		t.Error("handler called on failed stream")
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if req.Stream {
			t.Error("stream flag set on non-streaming chat")
		}
		json.NewEncoder(w).Encode(ChatResponse{
			ConversationID:   req.ConversationID,
			UserMessage:      Message{Role: "user", Content: req.Message},
			AssistantMessage: Message{Role: "assistant", Content: "Hello."},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	resp, err := c.Chat(context.Background(), StreamRequest{Message: "hi", ConversationID: "c1"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.ConversationID != "c1" || resp.AssistantMessage.Content != "Hello." {
		t.Errorf("got %+v", resp)
	}
}

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Text       string `json:"text"`
			VoiceStyle string `json:"voice_style"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if req.VoiceStyle != VoiceCheerful {
			t.Errorf("voice style = %q, want cheerful", req.VoiceStyle)
		}
		json.NewEncoder(w).Encode(map[string]string{"audio_url": "/audio/tts_1.wav"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, WithVoiceStyle(VoiceCheerful))
	url, err := c.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if url != "/audio/tts_1.wav" {
		t.Errorf("url = %q", url)
	}
}

func TestSearchMemories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/memories/search" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]MemorySummary{
			{MemoryID: "m1", Summary: "talked about go", Timestamp: "2026-08-01"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.SearchMemories(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].MemoryID != "m1" {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryAndConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/memories/m1":
			json.NewEncoder(w).Encode(MemoryDetail{
				MemoryID: "m1",
				Summary:  "talked about go",
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
		case "/api/conversations/c1":
			json.NewEncoder(w).Encode(MemoryDetail{
				MemoryID: "c1",
				Messages: []Message{{Role: "assistant", Content: "hello"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	mem, err := c.Memory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem.Summary != "talked about go" || len(mem.Messages) != 1 {
		t.Errorf("memory = %+v", mem)
	}

	conv, err := c.Conversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Content != "hello" {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestErrorIncludesBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "synthesis engine offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Synthesize(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "synthesis engine offline") {
		t.Errorf("err = %v, want body snippet included", err)
	}
}

func TestNewConversationID(t *testing.T) {
	a, b := NewConversationID(), NewConversationID()
	if a == "" || a == b {
		t.Errorf("ids not unique: %q %q", a, b)
	}
}
