// Package main provides the entry point for the hearsay CLI application.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hearsay-cli/hearsay/internal/audio"
	"github.com/hearsay-cli/hearsay/internal/cache"
	"github.com/hearsay-cli/hearsay/internal/chat"
	"github.com/hearsay-cli/hearsay/internal/fetch"
	"github.com/hearsay-cli/hearsay/internal/playback"
	"github.com/hearsay-cli/hearsay/internal/speech"
	"github.com/hearsay-cli/hearsay/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	serverURL  string
	voiceStyle string
	style      string
	width      uint
	mouse      bool
	mute       bool
	clientTTS  bool
	memories   bool

	rootCmd = &cobra.Command{
		Use:   "hearsay",
		Short: "Chat with an AI that talks back, from your terminal",
		Long: paragraph(fmt.Sprintf(
			"\nChat with an AI assistant that %s its replies aloud while they stream in.",
			keyword("speaks"))),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: func(*cobra.Command, []string) error {
			return runTUI()
		},
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(expandPath(configFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// grab config values from Viper
	serverURL = viper.GetString("server")
	voiceStyle = viper.GetString("voice")
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	mute = viper.GetBool("mute")
	memories = viper.GetBool("memories")

	if serverURL == "" {
		return errors.New("no server configured: pass --server or set it in the config file")
	}
	if !slices.Contains(chat.VoiceStyles, voiceStyle) {
		return fmt.Errorf("unknown voice style %q, valid styles: %v", voiceStyle, chat.VoiceStyles)
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

// expandPath resolves a leading ~ against the user's home directory.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// voiceStack holds the wired playback pipeline and its teardown.
type voiceStack struct {
	scheduler *playback.Scheduler
	speaker   *speech.Speaker
	client    *chat.Client
	clips     *cache.ClipCache
	closers   []func() error
}

func (v *voiceStack) Close() {
	for i := len(v.closers) - 1; i >= 0; i-- {
		if err := v.closers[i](); err != nil {
			log.Warn("shutdown", "err", err)
		}
	}
}

// buildVoiceStack wires the audio pipeline: HTTP fetch with a persistent
// disk cache, WAV decode, an LRU of decoded clips, and the speaker device
// (or a silent mock when muted).
func buildVoiceStack(muted bool) (*voiceStack, error) {
	logger := log.Default()
	stack := &voiceStack{}

	client := chat.NewClient(serverURL, logger, chat.WithVoiceStyle(voiceStyle))
	stack.client = client

	var fetcher playback.Fetcher = fetch.NewHTTPFetcher()
	if dir, err := audioCacheDir(); err == nil {
		diskCache, err := cache.NewDiskCache(dir,
			viper.GetInt64("cache.disk_mb")<<20,
			viper.GetInt("cache.compression"))
		if err != nil {
			log.Warn("disk cache unavailable, fetching without it", "err", err)
		} else {
			stack.closers = append(stack.closers, diskCache.Close)
			fetcher = fetch.NewCachedFetcher(fetcher, diskCache, logger)
		}
	}

	var player playback.Player
	if muted {
		player = audio.NewMockPlayer()
	} else {
		p, err := audio.NewPlayer(audio.DefaultPlayerConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to open audio device: %w", err)
		}
		stack.closers = append(stack.closers, p.Close)
		player = p
	}

	stack.clips = cache.NewClipCache(viper.GetInt64("cache.memory_mb") << 20)
	scheduler, err := playback.New(playback.Config{
		BaseURL:     serverURL,
		LoadTimeout: 30 * time.Second,
		Fetcher:     fetcher,
		Decoder:     audio.WAVDecoder{},
		Player:      player,
		Cache:       stack.clips,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to start playback: %w", err)
	}
	stack.scheduler = scheduler
	stack.closers = append(stack.closers, func() error {
		scheduler.Close()
		return nil
	})

	stack.speaker = speech.NewSpeaker(client, scheduler, logger)
	return stack, nil
}

// audioCacheDir returns the per-user directory for fetched audio.
func audioCacheDir() (string, error) {
	scope := gap.NewScope(gap.User, "hearsay")
	dir, err := scope.CacheDir()
	if err != nil {
		home, herr := homedir.Dir()
		if herr != nil {
			return "", err
		}
		dir = filepath.Join(home, ".cache", "hearsay")
	}
	return filepath.Join(dir, "audio"), nil
}

func runTUI() error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the flag/config value if unset or invalid
	if cfg.GlamourStyle == "" || validateStyle(cfg.GlamourStyle) != nil {
		cfg.GlamourStyle = style
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = serverURL
	}
	if cfg.VoiceStyle == "" {
		cfg.VoiceStyle = voiceStyle
	}
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.Mute = cfg.Mute || mute
	cfg.ServerTTS = cfg.ServerTTS && !clientTTS
	cfg.LoadMemories = memories

	stack, err := buildVoiceStack(cfg.Mute)
	if err != nil {
		return err
	}
	defer stack.Close()

	deps := ui.Deps{
		Client:   stack.client,
		Speaker:  stack.speaker,
		Playback: stack.scheduler,
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "u", "", "chat backend URL")
	rootCmd.PersistentFlags().StringVar(&voiceStyle, "voice", chat.VoiceNormal, "voice style (normal/cheerful/serious/gentle/cute)")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to disable)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.PersistentFlags().BoolVar(&mute, "mute", false, "disable audio output")
	rootCmd.Flags().BoolVar(&clientTTS, "client-tts", false, "synthesize speech client side instead of during streaming")
	rootCmd.Flags().BoolVar(&memories, "memories", false, "let the backend pull related past conversations into context")

	// Config bindings
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("mute", rootCmd.PersistentFlags().Lookup("mute"))
	_ = viper.BindPFlag("memories", rootCmd.Flags().Lookup("memories"))

	viper.SetDefault("server", "http://localhost:8000")
	viper.SetDefault("voice", chat.VoiceNormal)
	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)

	// Cache defaults
	viper.SetDefault("cache.memory_mb", 32)
	viper.SetDefault("cache.disk_mb", 512)
	viper.SetDefault("cache.compression", 3)

	rootCmd.AddCommand(configCmd, speakCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "hearsay")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "hearsay")}, dirs...)
	}

	if c := os.Getenv("HEARSAY_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("hearsay")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("hearsay")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		// Pick up edits without a restart; flags still win over file
		// values.
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Debug("configuration reloaded", "path", e.Name)
		})
		viper.WatchConfig()
		return
	}

	configFile = filepath.Join(dirs[0], "hearsay.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
