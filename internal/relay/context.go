package relay

import "codebot/internal/domain"

const (
	StatusThinking = "⚡ Thinking..."
	StatusScanning = "⚡ Scanning context..."
)

type ContextResult struct {
	Text     string
	AnchorID int
	Status   string
}

// ExtractContext threads the reply to the quoted message when there is one,
// otherwise to the message itself.
func ExtractContext(msg domain.IncomingMessage) ContextResult {
	if msg.ReplyTo == nil {
		return ContextResult{AnchorID: msg.ID, Status: StatusThinking}
	}
	return ContextResult{
		Text:     msg.ReplyTo.TextOrCaption(),
		AnchorID: msg.ReplyTo.MessageID,
		Status:   StatusScanning,
	}
}
