package domain

import "time"

// ChatType classifies the conversation an inbound message arrived in.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
	ChatOther   ChatType = "other"
)

// IncomingMessage is one inbound chat event as delivered by the transport.
// The relay only reads it and drops it once the reply is resolved.
type IncomingMessage struct {
	ID        int
	ChatID    int64
	ChatType  ChatType
	Text      string
	SenderID  int64
	Timestamp time.Time
	ReplyTo   *ReplyTarget // nil when the message is not a reply

	// Command is set only when the platform marks the text as a bot command
	// (lowercased, without "/"). CommandTarget is the "@bot" suffix, if any.
	Command       string
	CommandTarget string
}

// ReplyTarget is the message an IncomingMessage quotes. It points into the
// platform's message log and is never mutated here.
type ReplyTarget struct {
	MessageID int
	Text      string
	Caption   string
	SenderID  int64
}

// TextOrCaption returns the quoted text, falling back to the media caption.
func (r *ReplyTarget) TextOrCaption() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	return r.Caption
}

// EngagementDecision is the outcome of triage for one message.
type EngagementDecision struct {
	Engage   bool
	Reason   string // private | mention | keyword | reply_to_bot, empty when not engaged
	AnchorID int    // message the bot's reply threads to
	Context  string // quoted content, possibly empty
	Status   string // placeholder label shown while the model works
}
