package ui

// Config contains TUI-specific configuration.
type Config struct {
	// ServerURL is the chat backend root, e.g. "http://localhost:8000".
	ServerURL string `env:"HEARSAY_SERVER"`

	// VoiceStyle selects the synthesis voice.
	VoiceStyle string `env:"HEARSAY_VOICE"`

	// ServerTTS lets the backend synthesize during streaming; when false,
	// sentences are synthesized client side through the TTS endpoint.
	ServerTTS bool `env:"HEARSAY_SERVER_TTS" envDefault:"true"`

	// Mute disables audio output entirely.
	Mute bool `env:"HEARSAY_MUTE"`

	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	GlamourMaxWidth uint
	GlamourEnabled  bool `env:"HEARSAY_ENABLE_GLAMOUR" envDefault:"true"`
	EnableMouse     bool

	// LoadMemories asks the backend to pull related past conversations
	// into context.
	LoadMemories bool
}
