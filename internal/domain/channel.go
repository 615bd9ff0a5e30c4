package domain

import "context"

// Formatting selects how the transport renders outgoing text.
type Formatting string

const (
	FormatRich  Formatting = "rich"
	FormatPlain Formatting = "plain"
)

// BotIdentity is who the bot is on the chat platform.
type BotIdentity struct {
	ID       int64
	Username string
}

// Transport is the outbound half of the chat platform.
type Transport interface {
	Post(ctx context.Context, chatID int64, text string, replyTo int) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, format Formatting) error
}
