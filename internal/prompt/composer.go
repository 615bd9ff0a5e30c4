// Package prompt turns a user request and optional quoted content into the
// conversation payload sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"codebot/internal/domain"
)

const contextTemplate = "HERE IS THE CODE CONTEXT:\n```\n%s\n```"

// Composer is immutable after construction and safe for concurrent use.
type Composer struct {
	instruction string
}

func NewComposer(p Profile) *Composer {
	return &Composer{instruction: p.SystemInstruction()}
}

// Instruction returns the system instruction every payload starts with.
func (c *Composer) Instruction() string { return c.instruction }

// Compose builds system, optional context, then user. Whitespace-only
// context is treated as absent. userText is passed through verbatim.
func (c *Composer) Compose(userText, contextText string) domain.ConversationPayload {
	payload := make(domain.ConversationPayload, 0, 3)
	payload = append(payload, domain.Message{Role: domain.RoleSystem, Content: c.instruction})
	if strings.TrimSpace(contextText) != "" {
		payload = append(payload, domain.Message{
			Role:    domain.RoleUser,
			Content: fmt.Sprintf(contextTemplate, contextText),
		})
	}
	return append(payload, domain.Message{Role: domain.RoleUser, Content: userText})
}
