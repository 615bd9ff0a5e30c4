package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"codebot/internal/domain"
	"codebot/internal/metrics"
	"codebot/internal/prompt"

	"github.com/google/uuid"
)

const defaultConcurrency = 8

// Handle results, also used as the messages_total outcome label.
const (
	ResultStale    = "stale"
	ResultCommand  = "command"
	ResultIgnored  = "ignored"
	ResultAnswered = "answered"
	ResultFailed   = "failed"  // resolved with an error text
	ResultAborted  = "aborted" // status post or final edit failed
)

// Loop consumes inbound messages and handles each one in its own goroutine.
// Handlers share nothing mutable; all collaborators are read-only.
type Loop struct {
	bus             domain.MessageBus
	bot             domain.BotIdentity
	gate            *Gate
	composer        *prompt.Composer
	classifier      *prompt.Classifier
	deliverer       *Deliverer
	transport       domain.Transport
	freshnessWindow time.Duration
	concurrency     int
	now             func() time.Time
	logger          *slog.Logger
}

// LoopConfig holds all dependencies and tuning parameters for the relay loop.
type LoopConfig struct {
	Bus             domain.MessageBus
	Bot             domain.BotIdentity
	Gate            *Gate
	Composer        *prompt.Composer
	Classifier      *prompt.Classifier // optional
	Deliverer       *Deliverer
	Transport       domain.Transport
	FreshnessWindow time.Duration // 0 disables the staleness check
	Concurrency     int
	Now             func() time.Time
	Logger          *slog.Logger
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		bus:             cfg.Bus,
		bot:             cfg.Bot,
		gate:            cfg.Gate,
		composer:        cfg.Composer,
		classifier:      cfg.Classifier,
		deliverer:       cfg.Deliverer,
		transport:       cfg.Transport,
		freshnessWindow: cfg.FreshnessWindow,
		concurrency:     cfg.Concurrency,
		now:             cfg.Now,
		logger:          cfg.Logger.With("component", "relay"),
	}
}

// Run processes messages with bounded concurrency until ctx is done or the
// bus closes, then waits for in-flight handlers.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("relay loop started", "concurrency", l.concurrency, "freshness_window", l.freshnessWindow)

	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	// Dispatched messages run to resolution even after shutdown starts.
	handlerCtx := context.WithoutCancel(ctx)

	inbound := l.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("relay loop stopping")
			return nil
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, relay loop stopping")
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func(m domain.IncomingMessage) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						l.logger.Error("message handler panicked",
							"chat_id", m.ChatID, "message_id", m.ID,
							"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
					}
				}()
				l.Handle(handlerCtx, m)
			}(msg)
		}
	}
}

// Handle runs one message through staleness, commands, the gate, prompt
// composition and delivery. It returns one of the Result constants.
func (l *Loop) Handle(ctx context.Context, msg domain.IncomingMessage) string {
	logger := l.logger.With(
		"trace_id", uuid.NewString(),
		"chat_id", msg.ChatID,
		"message_id", msg.ID,
	)
	ctx = withLogger(ctx, logger)

	result := l.handle(ctx, logger, msg)
	metrics.MessagesTotal.WithLabelValues(result).Inc()
	return result
}

func (l *Loop) handle(ctx context.Context, logger *slog.Logger, msg domain.IncomingMessage) string {
	if l.isStale(msg) {
		logger.Info("dropping message",
			"reason", domain.ErrStaleMessage, "age", l.now().Sub(msg.Timestamp).Round(time.Second))
		return ResultStale
	}

	if msg.Command != "" {
		if reply, ok := commandReply(msg.Command, msg.CommandTarget, l.bot.Username); ok {
			if _, err := l.transport.Post(ctx, msg.ChatID, reply, msg.ID); err != nil {
				logger.Warn("command reply failed", "command", msg.Command, "error", err)
			}
		}
		return ResultCommand
	}

	decision := l.gate.Decide(msg)
	if !decision.Engage {
		return ResultIgnored
	}
	metrics.EngagementsTotal.WithLabelValues(decision.Reason).Inc()

	mode := "default"
	if l.classifier != nil {
		mode = l.classifier.Detect(msg.Text)
		metrics.ModeDetections.WithLabelValues(mode).Inc()
	}
	logger.Info("engaging",
		"reason", decision.Reason,
		"mode", mode,
		"has_context", decision.Context != "",
		"anchor_id", decision.AnchorID,
	)

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	payload := l.composer.Compose(msg.Text, decision.Context)
	out, err := l.deliverer.Deliver(ctx, msg.ChatID, decision.AnchorID, decision.Status, payload)
	if err != nil {
		logger.Error("delivery aborted", "state", out.State, "error", err)
		return ResultAborted
	}
	if !out.Result.OK() || strings.TrimSpace(out.Result.Text) == "" {
		return ResultFailed
	}
	logger.Info("answered", "format", out.Format, "chars", len(out.Result.Text))
	return ResultAnswered
}

// isStale treats a zero timestamp as fresh.
func (l *Loop) isStale(msg domain.IncomingMessage) bool {
	if l.freshnessWindow <= 0 || msg.Timestamp.IsZero() {
		return false
	}
	return l.now().Sub(msg.Timestamp) > l.freshnessWindow
}

type loggerKey struct{}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
