package chat

// Voice styles accepted by the backend's synthesis engine.
const (
	VoiceNormal   = "normal"
	VoiceCheerful = "cheerful"
	VoiceSerious  = "serious"
	VoiceGentle   = "gentle"
	VoiceCute     = "cute"
)

// VoiceStyles lists every accepted style, for validation and completion.
var VoiceStyles = []string{VoiceNormal, VoiceCheerful, VoiceSerious, VoiceGentle, VoiceCute}

// Stream event types emitted by the backend during a chat reply.
const (
	EventChunk    = "chunk"     // incremental reply text
	EventAudio    = "audio"     // a synthesized clip is ready
	EventToolCall = "tool_call" // the model invoked a tool
	EventError    = "error"     // the reply failed; stream ends
	EventEnd      = "end"       // the reply completed; stream ends
)

// StreamEvent is one server-sent event from /api/chat/stream.
type StreamEvent struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Message is one turn of a conversation.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
}

// StreamRequest is the body of a streaming chat call.
type StreamRequest struct {
	Message        string    `json:"message"`
	ConversationID string    `json:"conversation_id,omitempty"`
	History        []Message `json:"history,omitempty"`
	Stream         bool      `json:"stream"`
	TTSEnabled     bool      `json:"tts_enabled"`
	VoiceStyle     string    `json:"voice_style,omitempty"`
	LoadMemories   bool      `json:"load_memories,omitempty"`
}

// ChatResponse is the body of a non-streaming chat call.
type ChatResponse struct {
	ConversationID   string  `json:"conversation_id"`
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	AudioURL         string  `json:"audio_url,omitempty"`
}

// MemorySummary is one hit from a memory search.
type MemorySummary struct {
	MemoryID  string   `json:"memory_id"`
	Summary   string   `json:"summary"`
	Timestamp string   `json:"timestamp"`
	Tags      []string `json:"tags,omitempty"`
}

// MemoryDetail is a full stored conversation memory.
type MemoryDetail struct {
	MemoryID  string    `json:"memory_id"`
	Summary   string    `json:"summary"`
	Timestamp string    `json:"timestamp"`
	Tags      []string  `json:"tags,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}
