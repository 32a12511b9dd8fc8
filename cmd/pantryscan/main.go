package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"pantryscan/internal/enrichment"
	"pantryscan/internal/inventory"
	"pantryscan/internal/recognition"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("pantryscan")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "pantryscan.db", "Database file path")
		cooldown    = fs.DurationLong("cooldown", inventory.DefaultCooldown, "Minimum time between merges of the same item")
		visionKey   = fs.StringLong("vision-key", "", "Google Vision API key (or set PANTRYSCAN_VISION_KEY)")
		visionURL   = fs.StringLong("vision-url", "", "Google Vision annotate endpoint override")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model for date extraction")
		sttType     = fs.StringLong("transcriber", "speech", "Transcriber type: 'speech' or 'whisper'")
		speechURL   = fs.StringLong("speech-url", "http://localhost:9090", "Speech recognition service base URL")
		speechModel = fs.StringLong("speech-model", "", "Speech recognition model name")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key for Whisper (or set OPENAI_API_KEY env var)")
		openaiURL   = fs.StringLong("openai-url", "", "OpenAI-compatible base URL override")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRYSCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := inventory.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize vision recognizer
	if *visionKey == "" {
		slog.Error("Vision API key is required. Set --vision-key flag or PANTRYSCAN_VISION_KEY environment variable")
		os.Exit(1)
	}
	recognizer, err := recognition.NewGoogleVision(*visionKey, *visionURL)
	if err != nil {
		slog.Error("Failed to initialize vision recognizer", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	// Initialize transcriber based on type
	var transcriber enrichment.Transcriber
	switch *sttType {
	case "speech":
		slog.Info("Initializing speech transcriber...", "url", *speechURL, "model", *speechModel)
		transcriber, err = enrichment.NewSpeechHTTP(*speechURL, *speechModel)
		if err != nil {
			slog.Error("Failed to initialize speech transcriber", "error", err)
			os.Exit(1)
		}
	case "whisper":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Whisper transcriber...")
		transcriber, err = enrichment.NewWhisper(apiKey, *openaiURL)
		if err != nil {
			slog.Error("Failed to initialize Whisper transcriber", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid transcriber type", "type", *sttType, "valid", "speech or whisper")
		os.Exit(1)
	}
	defer transcriber.Close()

	// Initialize date extractor
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		os.Exit(1)
	}
	slog.Info("Initializing date extractor...", "model", *geminiModel)
	extractor, err := enrichment.NewGemini(apiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize date extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize service and enrichment manager
	service := inventory.NewServiceWithDeps(db, recognizer, nil, *cooldown)
	enricher := enrichment.NewManager(transcriber, extractor, service)

	// Initialize server
	server := inventory.NewServer(service, enricher, inventory.Config{
		Version:     version,
		Cooldown:    *cooldown,
		Recognizer:  "google-vision",
		Transcriber: *sttType,
	}, inventory.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
