package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	pkgErrors "github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/internal/infra"
	"github.com/fpt/parley-cli/internal/preset"
	"github.com/fpt/parley-cli/pkg/budget"
	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/stream"
)

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				showInteractiveHelp(s)
				return false
			},
		},
		{
			Name:        "log",
			Description: "Show conversation history (preview)",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				history := s.GetConversationPreview(1000)
				if strings.TrimSpace(history) == "" {
					fmt.Println("📜 No conversation history found.")
					return false
				}
				fmt.Println(history)
				return false
			},
		},
		{
			Name:        "clear",
			Description: "Clear conversation history and start fresh",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				s.ClearHistory()
				fmt.Println("🧹 Conversation history cleared.")
				return false
			},
		},
		{
			Name:        "save",
			Description: "Save the conversation, optionally under a name",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				saveConversationCommand(s, uc, args)
				return false
			},
		},
		{
			Name:        "load",
			Description: "Load a saved conversation and show a recap",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				loadConversationCommand(ctx, s, uc, args)
				return false
			},
		},
		{
			Name:        "model",
			Description: "Pick a model from the provider's catalog",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				showModelSelector(ctx, s)
				return false
			},
		},
		{
			Name:        "prompt",
			Description: "Pick a system prompt preset",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				showPromptSelector(s, uc)
				return false
			},
		},
		{
			Name:        "style",
			Description: "Pick a response style (balanced, concise, detailed)",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				showStyleSelector(s)
				return false
			},
		},
		{
			Name:        "tokens",
			Description: "Show the context budget for the next request",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				NewContextDisplay().WriteTokenReport(s.OutWriter(), s)
				return false
			},
		},
		{
			Name:        "plugins",
			Description: "List enabled plugins",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				plugins := s.Plugins().All()
				if len(plugins) == 0 {
					fmt.Println("🔌 No plugins enabled.")
					return false
				}
				fmt.Println("🔌 Enabled plugins:")
				for _, p := range plugins {
					fmt.Printf("  %-12s %s\n", p.Name(), p.Description())
				}
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /.
// handled reports whether the input matched a built-in command; unmatched
// input falls through to the session so plugin commands like /fetch still
// work. exit reports whether the command requests program exit.
func handleSlashCommand(ctx context.Context, input string, s *ChatSession, uc *config.UserConfig) (handled, exit bool) {
	// Just "/" shows the command selector
	if strings.TrimSpace(input) == "/" {
		return true, showCommandSelector(ctx, s, uc)
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, false
	}

	commandName := strings.TrimPrefix(parts[0], "/")
	for _, cmd := range getSlashCommands() {
		if cmd.Name == commandName {
			return true, cmd.Handler(ctx, s, uc, parts[1:])
		}
	}
	return false, false
}

// showCommandSelector shows an interactive command selector using promptui
func showCommandSelector(ctx context.Context, s *ChatSession, uc *config.UserConfig) bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | red | cyan }}",
		Details: `
--------- Command Details ----------
{{ "Name:" | faint }}\t{{ .Name }}
{{ "Description:" | faint }}\t{{ .Description }}`,
	}

	searcher := func(input string, index int) bool {
		command := commands[index]
		name := strings.ReplaceAll(strings.ToLower(command.Name), " ", "")
		input = strings.ReplaceAll(strings.ToLower(input), " ", "")
		return strings.Contains(name, input)
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      12,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Println("\nCancelled.")
			return false
		}
		fmt.Printf("Command selection failed: %v\n", err)
		return false
	}
	return commands[i].Handler(ctx, s, uc, nil)
}

// saveConversationCommand resolves the target file and saves the history.
func saveConversationCommand(s *ChatSession, uc *config.UserConfig, args []string) {
	name := "default"
	if len(args) > 0 {
		name = args[0]
	}
	if uc == nil {
		fmt.Println("❌ No user config directory available.")
		return
	}

	path := uc.ConversationFile(name)
	repo := infra.NewFileHistoryRepository(path)
	if err := s.SaveConversation(repo); err != nil {
		fmt.Printf("❌ Save failed: %v\n", err)
		return
	}
	fmt.Printf("💾 Saved conversation to %s\n", path)
}

// loadConversationCommand loads a named conversation, shows a preview, and
// asks the model for a recap. The recap is display-only.
func loadConversationCommand(ctx context.Context, s *ChatSession, uc *config.UserConfig, args []string) {
	if uc == nil {
		fmt.Println("❌ No user config directory available.")
		return
	}

	name := "default"
	if len(args) > 0 {
		name = args[0]
	} else if picked, ok := pickSavedConversation(uc); ok {
		name = picked
	} else {
		return
	}

	path := uc.ConversationFile(name)
	repo := infra.NewFileHistoryRepository(path)
	n, err := s.LoadConversation(repo)
	if err != nil {
		fmt.Printf("❌ Load failed: %v\n", err)
		return
	}
	fmt.Printf("📂 Loaded %d messages from %s\n", n, path)

	if preview := s.GetConversationPreview(6); preview != "" {
		fmt.Print(preview)
	}

	summary, err := s.SummarizeConversation(ctx)
	if err != nil {
		fmt.Printf("⚠️ Recap unavailable: %v\n", err)
		return
	}
	if summary != nil {
		fmt.Printf("\n📝 %s\n%s\n", summary.Title, summary.Recap)
	}
}

// pickSavedConversation lists saved conversations in a selector.
func pickSavedConversation(uc *config.UserConfig) (string, bool) {
	conversations, err := uc.ListConversations()
	if err != nil {
		fmt.Printf("❌ Could not list conversations: %v\n", err)
		return "", false
	}
	if len(conversations) == 0 {
		fmt.Println("📂 No saved conversations yet. Use /save first.")
		return "", false
	}

	items := make([]string, len(conversations))
	for i, c := range conversations {
		items[i] = c.Name
	}
	prompt := promptui.Select{
		Label: "Load which conversation",
		Items: items,
		Size:  10,
	}
	i, _, err := prompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("Selection failed: %v\n", err)
		}
		return "", false
	}
	return conversations[i].Name, true
}

// showModelSelector fetches the provider's model catalog and applies the
// choice to the session. Falls back to the offline catalog when the
// listing cannot be fetched.
func showModelSelector(ctx context.Context, s *ChatSession) {
	var models []llm.ModelInfo
	if catalog, ok := s.Client().(llm.ModelCatalog); ok {
		listCtx, cancel := context.WithTimeout(ctx, shortRequestTimeout)
		listed, err := catalog.ListModels(listCtx)
		cancel()
		if err != nil {
			fmt.Printf("⚠️ Could not fetch models (%v), using fallback list.\n", err)
			models = llm.FallbackModels()
		} else {
			models = listed
		}
	} else {
		fmt.Println("⚠️ This provider has no model catalog, using fallback list.")
		models = llm.FallbackModels()
	}
	if len(models) == 0 {
		fmt.Println("❌ No models available.")
		return
	}

	// Optional category filter first
	categoryPrompt := promptui.Select{
		Label: "Filter by category",
		Items: llm.Categories(),
		Size:  8,
	}
	_, category, err := categoryPrompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("Selection failed: %v\n", err)
		}
		return
	}

	filtered := llm.FilterByCategory(models, category)
	if len(filtered) == 0 {
		fmt.Printf("❌ No models match category %q.\n", category)
		return
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .ID | cyan }} - {{ .Name | faint }}",
		Inactive: "  {{ .ID | cyan }} - {{ .Name | faint }}",
		Selected: "{{ .ID | cyan }}",
		Details: `
--------- Model Details ----------
{{ "ID:" | faint }}\t{{ .ID }}
{{ "Name:" | faint }}\t{{ .Name }}
{{ "Context:" | faint }}\t{{ .ContextLength }} tokens
{{ "Prompt price:" | faint }}\t{{ .PromptPrice }}
{{ "Completion price:" | faint }}\t{{ .CompletionPrice }}`,
	}

	searcher := func(input string, index int) bool {
		m := filtered[index]
		target := strings.ToLower(m.ID + " " + m.Name)
		return strings.Contains(target, strings.ToLower(input))
	}

	modelPrompt := promptui.Select{
		Label:     "Choose a model",
		Items:     filtered,
		Templates: templates,
		Size:      12,
		Searcher:  searcher,
	}
	i, _, err := modelPrompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("Selection failed: %v\n", err)
		}
		return
	}

	chosen := filtered[i]
	s.Client().SetModel(chosen.ID)
	s.Settings().LLM.Model = chosen.ID
	if chosen.ContextLength > 0 {
		s.Settings().LLM.ContextLimit = chosen.ContextLength
	}
	fmt.Printf("🧠 Model switched to %s (context %d tokens)\n", chosen.ID, s.Settings().LLM.ContextLimit)
}

// showPromptSelector picks a system prompt preset, built-ins plus the
// user's preset directory.
func showPromptSelector(s *ChatSession, uc *config.UserConfig) {
	dir := s.Settings().Chat.PresetDir
	if dir == "" && uc != nil {
		dir = uc.PromptsDir
	}

	presets, err := preset.LoadPresets(dir)
	if err != nil {
		fmt.Printf("❌ Could not load presets: %v\n", err)
		return
	}
	names := presets.Names()
	if len(names) == 0 {
		fmt.Println("❌ No prompt presets found.")
		return
	}

	items := make([]*preset.Preset, 0, len(names))
	for _, name := range names {
		items = append(items, presets[name])
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | cyan }}",
	}
	prompt := promptui.Select{
		Label:     "Choose a system prompt",
		Items:     items,
		Templates: templates,
		Size:      10,
	}
	i, _, err := prompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("Selection failed: %v\n", err)
		}
		return
	}

	s.Settings().Chat.SystemPrompt = items[i].Prompt
	fmt.Printf("📋 System prompt set to %q\n", items[i].Name)
}

// showStyleSelector picks the response style.
func showStyleSelector(s *ChatSession) {
	prompt := promptui.Select{
		Label: "Choose a response style",
		Items: ResponseStyles(),
		Size:  3,
	}
	_, style, err := prompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Printf("Selection failed: %v\n", err)
		}
		return
	}
	s.Settings().Chat.ResponseStyle = style
	fmt.Printf("🎨 Response style set to %s\n", style)
}

// StartInteractiveMode runs the readline-based REPL
func StartInteractiveMode(ctx context.Context, s *ChatSession, uc *config.UserConfig) {
	contextDisplay := NewContextDisplay()

	// Create bracketed paste reader wrapping stdin
	pasteReader := NewBracketedPasteReader(readline.Stdin)

	// Enable bracketed paste mode on the terminal
	fmt.Print("\x1b[?2004h")
	defer fmt.Print("\x1b[?2004l")

	historyFile := ""
	if uc != nil {
		historyFile = uc.HistoryFile
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "> ",
		HistoryFile:         historyFile,
		AutoComplete:        createAutoCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		HistoryLimit:        2000,
		FuncFilterInputRune: filterInput,
		Stdin:               pasteReader,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize interactive mode: %v\n", err)
		fmt.Println("💡 Please use one-shot mode instead: parley -p \"your message here\"")
		return
	}
	defer rl.Close()

	// Optional splash screen
	WriteSplashScreen(os.Stdout, true)
	fmt.Printf("🧠 Model: %s (%s)\n", s.Client().Model(), s.Client().Provider())
	fmt.Println("💬 Commands start with '/', everything else goes to the model!")
	fmt.Println("⌨️ Arrow keys to navigate; Tab for completion; Ctrl+R searches input history.")
	fmt.Println(strings.Repeat("=", 60))

	if preview := s.GetConversationPreview(6); preview != "" {
		fmt.Print("\n")
		fmt.Print(preview)
		fmt.Println()
	}

	for {
		pasteReader.ClearSegments()

		// Show context usage above the prompt, reflecting the latest turn
		if usage := contextDisplay.ShowContextUsage(s); usage != "" {
			fmt.Printf("%s\n", usage)
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		line = pasteReader.ExpandPlaceholders(line)
		userInput := strings.TrimSpace(line)
		if userInput == "" {
			continue
		}

		if strings.HasPrefix(userInput, "/") {
			handled, exit := handleSlashCommand(ctx, userInput, s, uc)
			if exit {
				break
			}
			if handled {
				rl.Clean()
				rl.Refresh()
				continue
			}
			// Not a built-in command; plugins get their chance below.
		}

		// Stream the reply with a cancellable context; Ctrl+C during the
		// stream stops it gracefully and keeps the partial reply.
		execCtx, cancel := context.WithCancel(ctx)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT)

		go func() {
			select {
			case <-sigChan:
				fmt.Println() // Move to new line after ^C
				s.RequestStop()
				cancel()
			case <-execCtx.Done():
			}
		}()

		w := s.OutWriter()
		headerWritten := false
		reply, sendErr := s.Send(execCtx, userInput, func(fragment string) {
			if !headerWritten {
				WriteResponseHeader(w, s.Client().Model(), true)
				headerWritten = true
			}
			fmt.Fprint(w, fragment)
		})

		signal.Stop(sigChan)
		close(sigChan)
		cancel()

		if headerWritten {
			fmt.Fprintln(w)
		}

		switch {
		case sendErr != nil:
			if pkgErrors.Is(sendErr, budget.ErrNothingToSend) {
				fmt.Println("⚠️ Message does not fit the context budget. Try /clear or /tokens.")
			} else {
				fmt.Printf("❌ %s\n", FormatClientError(sendErr))
			}
		case reply != nil && strings.HasSuffix(reply.Content(), stream.CancelledMarker):
			fmt.Printf("%s\n🔄 Ready for next message.\n", stream.CancelledMarker)
		}
	}
}

// createAutoCompleter creates an autocompletion function for readline
func createAutoCompleter() *readline.PrefixCompleter {
	commands := getSlashCommands()
	var pcItems []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		pcItems = append(pcItems, readline.PcItem("/"+cmd.Name))
	}
	pcItems = append(pcItems, readline.PcItem("/"))
	for _, pattern := range []string{
		"Explain", "Summarize", "Translate", "Compare",
		"Write a", "What is", "How do I", "Give me an example of",
		"Rewrite this", "Brainstorm",
	} {
		pcItems = append(pcItems, readline.PcItem(pattern))
	}
	return readline.NewPrefixCompleter(pcItems...)
}

// filterInput filters input runes to handle special keys
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showInteractiveHelp(s *ChatSession) {
	commands := getSlashCommands()
	fmt.Println("\n📚 Interactive Commands:")
	fmt.Println("  /                - Show interactive command selector")
	for _, cmd := range commands {
		fmt.Printf("  /%-15s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\n⌨️  Enhanced Features:")
	fmt.Println("  Ctrl+C           - Stop the current stream, or cancel input")
	fmt.Println("  Ctrl+R           - Search input history")
	fmt.Println("  Tab              - Auto-complete commands")
	fmt.Println("  Arrow keys       - Navigate input and history")
	if plugins := s.Plugins().All(); len(plugins) > 0 {
		fmt.Println("\n🔌 Plugin commands are forwarded automatically, e.g. /fetch <url>.")
	}
	fmt.Println("\n💡 Example messages:")
	fmt.Println("  > Explain the difference between goroutines and threads")
	fmt.Println("  > Summarize this article: /fetch https://example.com/post")
	fmt.Println("  > Write a haiku about code review")
}
