package app

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/internal/repository"
	"github.com/fpt/parley-cli/pkg/budget"
	"github.com/fpt/parley-cli/pkg/client"
	"github.com/fpt/parley-cli/pkg/llm"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
	"github.com/fpt/parley-cli/pkg/plugin"
	"github.com/fpt/parley-cli/pkg/stream"
)

const (
	// summaryMinMessages is the smallest conversation worth recapping.
	summaryMinMessages = 4

	// summarySampleEdge is how many messages from each end of the history
	// feed the recap prompt.
	summarySampleEdge = 3

	// summarySampleTokenCap bounds the estimated token cost of the recap
	// sample so a loaded conversation of any size produces a small request.
	summarySampleTokenCap = 512

	// streamRequestTimeout caps one streaming completion request end to end.
	streamRequestTimeout = 60 * time.Second

	// shortRequestTimeout caps non-streaming calls (recap, catalog).
	shortRequestTimeout = 30 * time.Second
)

// ChatSession drives one conversation: it gives plugins first look at user
// input, budgets the outbound context, streams the reply through an
// assembler, and commits finalized messages to history.
//
// A session does not support concurrent Send calls. RequestStop may be
// called from any goroutine while a Send is in flight.
type ChatSession struct {
	llmClient llm.Client
	history   *message.ChatHistory
	budgeter  *budget.Budgeter
	assembler *stream.Assembler
	plugins   *plugin.Registry
	settings  *config.Settings
	logger    *pkgLogger.Logger
	out       io.Writer
}

// NewChatSession creates a session over the given client and plugin registry.
func NewChatSession(llmClient llm.Client, plugins *plugin.Registry, settings *config.Settings, logger *pkgLogger.Logger, out io.Writer) *ChatSession {
	maxHistory := message.DefaultMaxLength
	if settings != nil && settings.Chat.MaxHistory > 0 {
		maxHistory = settings.Chat.MaxHistory
	}

	return &ChatSession{
		llmClient: llmClient,
		history:   message.NewChatHistoryWithLimit(maxHistory),
		budgeter:  budget.NewBudgeter(),
		assembler: stream.NewAssembler(),
		plugins:   plugins,
		settings:  settings,
		logger:    logger.WithComponent("session"),
		out:       out,
	}
}

// History returns the session's conversation history.
func (s *ChatSession) History() *message.ChatHistory { return s.history }

// Client returns the underlying LLM client.
func (s *ChatSession) Client() llm.Client { return s.llmClient }

// Settings returns the session's settings.
func (s *ChatSession) Settings() *config.Settings { return s.settings }

// Plugins returns the session's plugin registry.
func (s *ChatSession) Plugins() *plugin.Registry { return s.plugins }

// OutWriter returns the writer used for rendered output.
func (s *ChatSession) OutWriter() io.Writer {
	if s.out != nil {
		return s.out
	}
	return os.Stdout
}

// Send submits user input to the conversation. Plugins see the input first;
// a handled message never reaches the model. Otherwise the input joins the
// history and a context-budgeted request is streamed. onFragment, when
// non-nil, is invoked from the streaming worker for every fragment as it
// arrives.
//
// The returned message is the committed assistant reply, nil when a plugin
// consumed the input. A reply cut short by RequestStop is still committed,
// with the cancellation marker appended; a transport failure discards the
// partial reply and returns the error.
func (s *ChatSession) Send(ctx context.Context, text string, onFragment func(fragment string)) (*message.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty message")
	}

	if s.plugins.DispatchUserMessage(ctx, text) {
		return nil, nil
	}

	s.history.Add(message.NewUserMessage(text))

	systemPrompt := EffectiveSystemPrompt(s.settings.Chat.SystemPrompt, s.settings.Chat.ResponseStyle)
	payload := s.budgeter.BuildRequest(
		s.history.Messages(),
		systemPrompt,
		s.settings.LLM.ContextLimit,
		s.settings.LLM.MaxTokens,
		s.settings.Chat.HistoryIncluded(),
	)
	if !budget.HasConversationContent(payload) {
		return nil, budget.ErrNothingToSend
	}

	if _, err := s.assembler.Begin(); err != nil {
		return nil, err
	}

	s.logger.InfoWithIntention(pkgLogger.IntentionStream, "Starting stream",
		"model", s.llmClient.Model(),
		"payload_messages", len(payload),
		"estimated_tokens", budget.EstimateMessages(payload))

	streamCtx, cancel := context.WithTimeout(ctx, streamRequestTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.llmClient.ChatStream(streamCtx, payload, func(fragment string) bool {
			if s.assembler.StopRequested() {
				return false
			}
			if err := s.assembler.Append(fragment); err != nil {
				return false
			}
			if onFragment != nil {
				onFragment(fragment)
			}
			return true
		})
	}()
	streamErr := <-errCh

	// A requested stop wins over whatever the transport returned; the
	// partial reply is kept. Plugins only see complete responses.
	if s.assembler.StopRequested() {
		reply, err := s.assembler.End()
		if err != nil {
			return nil, err
		}
		s.history.Add(reply)
		s.logger.InfoWithIntention(pkgLogger.IntentionCancel, "Stream cancelled",
			"partial_chars", len(reply.Content()))
		return reply, nil
	}

	if streamErr != nil {
		_ = s.assembler.Fail(streamErr)
		s.logger.ErrorWithIntention(pkgLogger.IntentionStream, "Stream failed",
			"code", llm.Classify(streamErr), "error", streamErr)
		return nil, streamErr
	}

	reply, err := s.assembler.End()
	if err != nil {
		return nil, err
	}
	s.history.Add(reply)
	s.plugins.DispatchResponse(ctx, reply)

	return reply, nil
}

// RequestStop asks the active stream to stop at the next fragment boundary.
// Safe to call from a signal handler goroutine; a no-op when idle.
func (s *ChatSession) RequestStop() {
	s.assembler.RequestStop()
}

// Streaming reports whether a reply is currently being assembled.
func (s *ChatSession) Streaming() bool {
	return s.assembler.State() == stream.StateStreaming
}

// ClearHistory drops the conversation history.
func (s *ChatSession) ClearHistory() {
	s.history.Clear()
}

// SaveConversation writes the current history through repo.
func (s *ChatSession) SaveConversation(repo repository.HistoryRepository) error {
	if s.history.Len() == 0 {
		return errors.New("nothing to save")
	}
	return repo.Save(s.history.Messages())
}

// LoadConversation replaces the current history with the conversation held
// by repo and returns the number of messages loaded. Validation is all or
// nothing: on any error the session keeps its present history.
func (s *ChatSession) LoadConversation(repo repository.HistoryRepository) (int, error) {
	msgs, err := repo.Load()
	if err != nil {
		return 0, err
	}
	s.history.ReplaceAll(msgs)
	s.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Loaded conversation",
		"message_count", len(msgs))
	return len(msgs), nil
}

// ConversationSummary is a model-produced recap of a loaded conversation.
type ConversationSummary struct {
	Title string `json:"title" jsonschema:"required,description=Short descriptive title for the conversation"`
	Recap string `json:"recap" jsonschema:"required,description=Three or four concise bullet points recapping the conversation"`
}

// SummarizeConversation asks the model to recap the current history from a
// sample of its first and last few messages. The result is for display
// only and is never committed to history. Conversations shorter than
// summaryMinMessages return nil without a model call.
func (s *ChatSession) SummarizeConversation(ctx context.Context) (*ConversationSummary, error) {
	msgs := s.history.Messages()
	if len(msgs) < summaryMinMessages {
		return nil, nil
	}

	prompt := "Summarize the following conversation in three or four concise bullet points and give it a short title.\n\n---\n\n" +
		summarySample(msgs)

	ctx, cancel := context.WithTimeout(ctx, shortRequestTimeout)
	defer cancel()

	summary, err := client.GenerateStructured[ConversationSummary](ctx, s.llmClient, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "conversation summary failed")
	}
	return &summary, nil
}

// summarySample renders the first and last summarySampleEdge messages as
// "role: content" lines. Long contents are truncated so the combined
// excerpts stay within summarySampleTokenCap estimated tokens.
func summarySample(msgs []*message.ChatMessage) string {
	if len(msgs) == 0 {
		return ""
	}

	head := msgs
	var tail []*message.ChatMessage
	if len(msgs) > summarySampleEdge {
		head = msgs[:summarySampleEdge]
		tailStart := len(msgs) - summarySampleEdge
		if tailStart < summarySampleEdge {
			tailStart = summarySampleEdge
		}
		tail = msgs[tailStart:]
	}

	sampled := make([]*message.ChatMessage, 0, len(head)+len(tail))
	sampled = append(sampled, head...)
	sampled = append(sampled, tail...)

	perMessageChars := summarySampleTokenCap * budget.CharsPerToken / len(sampled)
	var b strings.Builder
	for i, m := range sampled {
		if i > 0 {
			b.WriteByte('\n')
		}
		content := m.Content()
		if len(content) > perMessageChars {
			content = content[:perMessageChars] + "..."
		}
		b.WriteString(m.Role().String())
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// GetConversationPreview returns a formatted preview of the last few
// messages, for display after restoring a conversation.
func (s *ChatSession) GetConversationPreview(maxMessages int) string {
	msgs := s.history.Messages()
	if len(msgs) == 0 {
		return ""
	}

	startIdx := 0
	if len(msgs) > maxMessages {
		startIdx = len(msgs) - maxMessages
	}

	var preview strings.Builder
	preview.WriteString("Previous Conversation:\n")
	preview.WriteString(strings.Repeat("-", 50) + "\n")

	isFirstMessage := true
	for _, msg := range msgs[startIdx:] {
		truncated := msg.TruncatedString()
		if truncated == "" {
			continue
		}
		if !isFirstMessage {
			preview.WriteString("\n")
		}
		isFirstMessage = false
		preview.WriteString(truncated + "\n")
	}

	preview.WriteString(strings.Repeat("-", 50) + "\n")
	return preview.String()
}
