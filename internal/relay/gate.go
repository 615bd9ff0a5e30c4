// Package relay is the message-handling pipeline: decide whether to answer,
// collect quoted context, call the completion service and deliver the reply.
package relay

import (
	"strings"

	"codebot/internal/domain"
)

// Engagement reasons, checked in this order.
const (
	ReasonPrivate    = "private"
	ReasonMention    = "mention"
	ReasonKeyword    = "keyword"
	ReasonReplyToBot = "reply_to_bot"
)

// Gate decides whether the bot should answer a message. It has no side
// effects and never touches the network.
type Gate struct {
	botID    int64
	mention  string   // lowercased "@username", empty if unknown
	keywords []string // lowercased, blanks removed
}

func NewGate(bot domain.BotIdentity, keywords []string) *Gate {
	g := &Gate{botID: bot.ID}
	if u := strings.TrimPrefix(strings.TrimSpace(bot.Username), "@"); u != "" {
		g.mention = "@" + strings.ToLower(u)
	}
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			g.keywords = append(g.keywords, kw)
		}
	}
	return g
}

// ShouldEngage reports whether any trigger holds and which one matched first.
func (g *Gate) ShouldEngage(msg domain.IncomingMessage) (bool, string) {
	if msg.ChatType == domain.ChatPrivate {
		return true, ReasonPrivate
	}

	lower := strings.ToLower(msg.Text)
	if g.mention != "" && strings.Contains(lower, g.mention) {
		return true, ReasonMention
	}
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			return true, ReasonKeyword
		}
	}

	if msg.ReplyTo != nil && g.botID != 0 && msg.ReplyTo.SenderID == g.botID {
		return true, ReasonReplyToBot
	}
	return false, ""
}

// Decide runs the gate and, when engaged, resolves the reply anchor, the
// quoted context and the placeholder label.
func (g *Gate) Decide(msg domain.IncomingMessage) domain.EngagementDecision {
	ok, reason := g.ShouldEngage(msg)
	if !ok {
		return domain.EngagementDecision{}
	}
	ctx := ExtractContext(msg)
	return domain.EngagementDecision{
		Engage:   true,
		Reason:   reason,
		AnchorID: ctx.AnchorID,
		Context:  ctx.Text,
		Status:   ctx.Status,
	}
}
