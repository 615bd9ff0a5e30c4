package domain

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationPayload is the ordered conversation sent upstream: one system
// entry, an optional context entry, then exactly one trailing user entry.
type ConversationPayload []Message

// Validate checks the payload shape the completion service relies on.
func (p ConversationPayload) Validate() error {
	if len(p) < 2 || len(p) > 3 {
		return fmt.Errorf("payload must have 2 or 3 entries, got %d", len(p))
	}
	if p[0].Role != RoleSystem {
		return fmt.Errorf("payload must start with a system entry, got %q", p[0].Role)
	}
	for i, m := range p[1:] {
		if m.Role == RoleSystem {
			return fmt.Errorf("payload has a second system entry at %d", i+1)
		}
	}
	if p[len(p)-1].Role != RoleUser {
		return fmt.Errorf("payload must end with a user entry, got %q", p[len(p)-1].Role)
	}
	return nil
}

// CompletionRequest carries a payload plus the sampling knobs for one call.
type CompletionRequest struct {
	Payload     ConversationPayload
	Model       string
	Temperature float64
	MaxTokens   int
}

type FailureKind string

const (
	RateLimited   FailureKind = "rate_limited"
	UpstreamError FailureKind = "upstream_error"
	Exhausted     FailureKind = "exhausted"
)

// Failure is the classified error half of a CompletionResult.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}

// CompletionResult is either a success carrying Text or a Failure, never both.
type CompletionResult struct {
	Text    string
	Failure *Failure
}

func Success(text string) CompletionResult {
	return CompletionResult{Text: text}
}

func Fail(kind FailureKind, detail string) CompletionResult {
	return CompletionResult{Failure: &Failure{Kind: kind, Detail: detail}}
}

func (r CompletionResult) OK() bool { return r.Failure == nil }

// Completer sends one request to a model-serving API. Implementations must be
// safe for concurrent use.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) CompletionResult
}
