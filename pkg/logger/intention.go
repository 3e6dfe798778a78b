package logger

// Intention represents the semantic intent of a log line, orthogonal to level.
// It lets us keep emojis out of source while still emitting meaningful icons
// at the console and structured attributes in logs.
type Intention string

const (
	IntentionStream     Intention = "stream"
	IntentionPlugin     Intention = "plugin"
	IntentionStatistics Intention = "statistics"
	IntentionStatus     Intention = "status"
	IntentionOutput     Intention = "output"
	IntentionSuccess    Intention = "success"
	IntentionWarning    Intention = "warning"
	IntentionDebug      Intention = "debug"
	IntentionCancel     Intention = "cancel"
	IntentionConfig     Intention = "config"
)

// iconFor returns a short emoji string for console output for the intention.
func iconFor(i Intention) string {
	switch i {
	case IntentionStream:
		return "💬"
	case IntentionPlugin:
		return "🔌"
	case IntentionStatistics:
		return "📊"
	case IntentionStatus:
		return "ℹ️"
	case IntentionOutput:
		return "↳"
	case IntentionSuccess:
		return "✅"
	case IntentionWarning:
		return "⚠️"
	case IntentionDebug:
		return "🛠️"
	case IntentionCancel:
		return "🛑"
	case IntentionConfig:
		return "⚙️"
	default:
		return "➤"
	}
}
