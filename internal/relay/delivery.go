package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"unicode/utf16"

	"codebot/internal/domain"
	"codebot/internal/metrics"
)

// User-facing failure texts. Diagnostics stay in the logs.
const (
	TextBusy        = "⏳ System busy right now. Please try again in a minute."
	TextUnreachable = "⚠️ Couldn't reach the code brain. Please try again later."
	TextEmpty       = "🤷 The model returned an empty answer."

	maxMessageUnits = 4096 // Telegram counts UTF-16 code units
	truncatedMarker = "\n\n… (truncated)"
)

// Completion is the retrying completion call the deliverer drives.
type Completion interface {
	Complete(ctx context.Context, payload domain.ConversationPayload) domain.CompletionResult
}

type State int

const (
	StateIdle State = iota
	StateStatusPosted
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStatusPosted:
		return "status_posted"
	case StateResolved:
		return "resolved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome records how far one delivery got.
type Outcome struct {
	State    State
	StatusID int
	Result   domain.CompletionResult
	Format   domain.Formatting // formatting of the edit that landed
}

// Deliverer posts a placeholder, waits for the completion and edits the
// placeholder in place with the answer.
type Deliverer struct {
	transport  domain.Transport
	completion Completion
	logger     *slog.Logger
}

type DelivererConfig struct {
	Transport  domain.Transport
	Completion Completion
	Logger     *slog.Logger
}

func NewDeliverer(cfg DelivererConfig) *Deliverer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Deliverer{
		transport:  cfg.Transport,
		completion: cfg.Completion,
		logger:     cfg.Logger,
	}
}

// Deliver runs Idle → StatusPosted → Resolved. A failed status post stops
// before the completion call. A failed final edit leaves the outcome in
// StatusPosted and is returned, not retried.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, anchorID int, status string, payload domain.ConversationPayload) (Outcome, error) {
	out := Outcome{State: StateIdle}
	logger := loggerFrom(ctx, d.logger)

	statusID, err := d.transport.Post(ctx, chatID, status, anchorID)
	if err != nil {
		return out, fmt.Errorf("post status: %w", err)
	}
	out.State = StateStatusPosted
	out.StatusID = statusID

	out.Result = d.complete(ctx, logger, payload)

	var format domain.Formatting
	if out.Result.OK() && strings.TrimSpace(out.Result.Text) != "" {
		format, err = d.editAnswer(ctx, logger, chatID, statusID, truncateForTelegram(out.Result.Text))
	} else {
		if !out.Result.OK() {
			logger.Warn("completion failed",
				"kind", out.Result.Failure.Kind, "detail", out.Result.Failure.Detail)
		}
		format = domain.FormatPlain
		err = d.edit(ctx, chatID, statusID, FailureText(out.Result), format)
	}
	if err != nil {
		logger.Error("final edit failed, dropping", "status_id", statusID, "error", err)
		return out, fmt.Errorf("edit status %d: %w", statusID, err)
	}

	out.State = StateResolved
	out.Format = format
	return out, nil
}

// complete turns a panicking completion into an UpstreamError so the status
// message still gets its final edit.
func (d *Deliverer) complete(ctx context.Context, logger *slog.Logger, payload domain.ConversationPayload) (res domain.CompletionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("completion panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = domain.Fail(domain.UpstreamError, fmt.Sprintf("panic: %v", r))
		}
	}()
	return d.completion.Complete(ctx, payload)
}

// editAnswer tries rich formatting first and falls back to one plain edit.
func (d *Deliverer) editAnswer(ctx context.Context, logger *slog.Logger, chatID int64, msgID int, text string) (domain.Formatting, error) {
	err := d.edit(ctx, chatID, msgID, text, domain.FormatRich)
	if err == nil {
		return domain.FormatRich, nil
	}
	logger.Warn("rich edit rejected, retrying as plain text",
		"status_id", msgID, "error", fmt.Errorf("%w: %v", domain.ErrDeliveryFormatting, err))

	if err := d.edit(ctx, chatID, msgID, text, domain.FormatPlain); err != nil {
		return domain.FormatPlain, err
	}
	return domain.FormatPlain, nil
}

func (d *Deliverer) edit(ctx context.Context, chatID int64, msgID int, text string, format domain.Formatting) error {
	err := d.transport.Edit(ctx, chatID, msgID, text, format)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Deliveries.WithLabelValues(string(format), result).Inc()
	return err
}

// FailureText maps a result that cannot be shown as-is to its user message.
func FailureText(res domain.CompletionResult) string {
	if res.OK() {
		return TextEmpty
	}
	switch res.Failure.Kind {
	case domain.RateLimited, domain.Exhausted:
		return TextBusy
	default:
		return TextUnreachable
	}
}

// truncateForTelegram cuts s at a rune boundary so that it fits the message
// limit, marker included.
func truncateForTelegram(s string) string {
	if utf16Len(s) <= maxMessageUnits {
		return s
	}
	budget := maxMessageUnits - utf16Len(truncatedMarker)
	n := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1 // invalid bytes are sent as U+FFFD
		}
		if n+w > budget {
			return s[:i] + truncatedMarker
		}
		n += w
	}
	return s
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}
