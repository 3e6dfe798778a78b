package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	pkgErrors "github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/app"
	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/pkg/budget"
	"github.com/fpt/parley-cli/pkg/client"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
)

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("parley - LLM chat for your terminal")
	fmt.Println()
	fmt.Println("Providers:")
	fmt.Println("  openrouter              OpenRouter API (default, needs OPENROUTER_API_KEY)")
	fmt.Println("  anthropic               Anthropic API (needs ANTHROPIC_API_KEY)")
	fmt.Println("  gemini                  Google Gemini API (needs GEMINI_API_KEY)")
	fmt.Println("  ollama                  Local Ollama server (no key)")
	fmt.Println()
	fmt.Println("Settings are loaded from:")
	fmt.Println("  .parley/settings.json   Project-specific settings")
	fmt.Println("  ~/.parley/settings.json Personal settings (created on first run)")
	fmt.Println("  .parley/config.yaml     Per-user overrides (merged on top)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  parley                                    # Interactive chat")
	fmt.Println("  parley -p \"Explain Go channels\"           # One-shot mode")
	fmt.Println("  parley -b ollama \"Summarize this text\"    # Local provider, one-shot")
	fmt.Println("  parley -m anthropic/claude-sonnet-4.5     # Pick a model, interactive")
	fmt.Println("  parley -l                                 # List saved conversations")
	fmt.Println("  parley -v \"Why is the sky blue?\"          # Enable verbose debug logging")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	// Define command line flags
	var provider = flag.String("b", "", "LLM provider (openrouter, anthropic, gemini, or ollama)")
	var providerLong = flag.String("provider", "", "LLM provider (openrouter, anthropic, gemini, or ollama)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var overlayPath = flag.String("overlay", "", "Path to user config overlay (YAML)")
	var prompt = flag.String("p", "", "One-shot prompt (print the answer and exit)")
	var promptLong = flag.String("prompt", "", "One-shot prompt (print the answer and exit)")
	var listConvs = flag.Bool("l", false, "List saved conversations and exit")
	var listConvsLong = flag.Bool("list", false, "List saved conversations and exit")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	// Custom usage function
	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}

	// Parse flags
	flag.Parse()

	// Handle help flag
	if *help || *helpLong {
		flag.Usage()
		return
	}

	// Resolve long/short flag conflicts (prefer the one that was set)
	resolvedProvider := strings.ToLower(resolveStringFlag(*provider, *providerLong))
	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedPrompt := resolveStringFlag(*prompt, *promptLong)
	resolvedList := *listConvs || *listConvsLong
	resolvedVerbose := *verbose || *verboseLong

	// Remaining arguments are also treated as a one-shot prompt
	args := flag.Args()
	if resolvedPrompt == "" && len(args) > 0 {
		resolvedPrompt = strings.Join(args, " ")
	}

	// Load settings
	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	// Merge per-user overrides
	if err := config.ApplyUserOverlay(settings, *overlayPath); err != nil {
		fmt.Printf("Warning: failed to apply config overlay: %v\n", err)
	}

	// Initialize structured logger based on settings
	logLevel := settings.Log.Level
	if resolvedVerbose {
		logLevel = "debug"
	}
	out := os.Stdout
	pkgLogger.SetGlobalLoggerWithConsoleWriter(pkgLogger.LogLevel(logLevel), out)
	logger := pkgLogger.NewLoggerWithConsoleWriter(pkgLogger.LogLevel(logLevel), out)

	if resolvedVerbose {
		logger.DebugWithIntention(pkgLogger.IntentionStatistics, "Verbose logging enabled", "log_level", logLevel)
	}

	// Override settings with command line arguments
	if resolvedProvider != "" {
		providerDefaults := config.GetDefaultLLMSettingsForProvider(resolvedProvider)
		settings.LLM = providerDefaults
		if resolvedModel != "" {
			settings.LLM.Model = resolvedModel
		}
	} else if resolvedModel != "" {
		settings.LLM.Model = resolvedModel
	}

	// Validate settings
	if err := config.ValidateSettings(settings); err != nil {
		logger.Error("Settings validation failed", "error", err)
		os.Exit(1)
	}

	// Create LLM client based on settings
	llmClient, err := client.NewLLMClient(settings.LLM)
	if err != nil {
		logger.Error("Failed to create LLM client", "error", err)
		os.Exit(1)
	}

	// Prepare per-user directories
	uc, err := config.DefaultUserConfig()
	if err != nil {
		logger.Error("Failed to prepare user directories", "error", err)
		os.Exit(1)
	}

	// Handle special command line options
	if resolvedList {
		listSavedConversations(uc)
		return
	}

	// Build the plugin registry named in settings
	plugins := app.BuildPluginRegistry(ctx, settings, out, logger)
	defer plugins.Close()

	session := app.NewChatSession(llmClient, plugins, settings, logger, out)

	// Determine if we should run in interactive mode or one-shot mode
	if resolvedPrompt != "" {
		executeOneShot(ctx, session, resolvedPrompt)
	} else {
		app.StartInteractiveMode(ctx, session, uc)
	}
}

// executeOneShot sends a single budgeted request and streams the answer to
// stdout. Exits non-zero when the request fails.
func executeOneShot(ctx context.Context, s *app.ChatSession, prompt string) {
	w := s.OutWriter()

	headerWritten := false
	_, err := s.Send(ctx, prompt, func(fragment string) {
		if !headerWritten {
			headerWritten = true
			app.WriteResponseHeader(w, s.Client().Model(), false)
		}
		fmt.Fprint(w, fragment)
	})
	if headerWritten {
		fmt.Fprintln(w)
	}
	if err != nil {
		if pkgErrors.Is(err, budget.ErrNothingToSend) {
			fmt.Fprintln(os.Stderr, "Message does not fit the context budget.")
		} else {
			fmt.Fprintln(os.Stderr, app.FormatClientError(err))
		}
		os.Exit(1)
	}
}

func listSavedConversations(uc *config.UserConfig) {
	conversations, err := uc.ListConversations()
	if err != nil {
		fmt.Printf("Failed to list conversations: %v\n", err)
		os.Exit(1)
	}

	if len(conversations) == 0 {
		fmt.Println("No saved conversations found.")
		return
	}

	fmt.Println("Saved conversations:")
	fmt.Println(strings.Repeat("=", 60))
	for _, c := range conversations {
		fmt.Printf("  %-28s %s\n", c.Name, c.Modified.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Load one with /load <name> in interactive mode.")
}
