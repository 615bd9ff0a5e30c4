package bus

import (
	"log/slog"
	"sync"
	"time"

	"codebot/internal/domain"
	"codebot/internal/metrics"
)

const (
	DefaultBufferSize     = 100
	DefaultPublishTimeout = 10 * time.Second
)

// InMemoryBus hands inbound chat messages from the transport to the relay
// loop over a buffered channel. A full buffer applies backpressure to the
// poller for at most publishTimeout, then the message is dropped.
type InMemoryBus struct {
	inbound        chan domain.IncomingMessage
	mu             sync.RWMutex
	closed         bool
	publishTimeout time.Duration
	logger         *slog.Logger
}

type Config struct {
	BufferSize     int           // 0 means DefaultBufferSize
	PublishTimeout time.Duration // 0 means DefaultPublishTimeout
	Logger         *slog.Logger
}

func New(cfg Config) *InMemoryBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &InMemoryBus{
		inbound:        make(chan domain.IncomingMessage, cfg.BufferSize),
		publishTimeout: cfg.PublishTimeout,
		logger:         cfg.Logger.With("component", "bus"),
	}
}

// Publish enqueues msg. It never blocks longer than the publish timeout.
func (b *InMemoryBus) Publish(msg domain.IncomingMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("publish after close", "chat_id", msg.ChatID, "message_id", msg.ID)
		return
	}

	select {
	case b.inbound <- msg:
		return
	default:
	}

	b.logger.Warn("inbound queue full, waiting", "chat_id", msg.ChatID, "message_id", msg.ID, "depth", len(b.inbound))
	timer := time.NewTimer(b.publishTimeout)
	defer timer.Stop()
	select {
	case b.inbound <- msg:
	case <-timer.C:
		metrics.BusDropped.Inc()
		b.logger.Error("message dropped: inbound queue full",
			"chat_id", msg.ChatID,
			"message_id", msg.ID,
			"waited", b.publishTimeout,
		)
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.IncomingMessage {
	return b.inbound
}

// Close is safe to call more than once.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
