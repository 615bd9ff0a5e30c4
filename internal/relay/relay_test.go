package relay

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"codebot/internal/domain"
	"codebot/internal/prompt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testBot = domain.BotIdentity{ID: 4242, Username: "codebot_test_bot"}

type postCall struct {
	ChatID  int64
	Text    string
	ReplyTo int
}

type editCall struct {
	ChatID    int64
	MessageID int
	Text      string
	Format    domain.Formatting
}

// fakeTransport records calls. rejectRich makes every rich edit fail.
type fakeTransport struct {
	mu         sync.Mutex
	posts      []postCall
	edits      []editCall
	nextID     int
	postErr    error
	rejectRich bool
	editErr    error // applied to every edit
}

func (f *fakeTransport) Post(ctx context.Context, chatID int64, text string, replyTo int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return 0, f.postErr
	}
	f.posts = append(f.posts, postCall{ChatID: chatID, Text: text, ReplyTo: replyTo})
	f.nextID++
	return 1000 + f.nextID, nil
}

func (f *fakeTransport) Edit(ctx context.Context, chatID int64, messageID int, text string, format domain.Formatting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{ChatID: chatID, MessageID: messageID, Text: text, Format: format})
	if f.editErr != nil {
		return f.editErr
	}
	if f.rejectRich && format == domain.FormatRich {
		return errors.New("Bad Request: can't parse entities")
	}
	return nil
}

func (f *fakeTransport) counts() (posts, edits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts), len(f.edits)
}

// stubCompletion returns result and records every payload it sees.
type stubCompletion struct {
	mu       sync.Mutex
	result   domain.CompletionResult
	payloads []domain.ConversationPayload
}

func (s *stubCompletion) Complete(ctx context.Context, payload domain.ConversationPayload) domain.CompletionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return s.result
}

func (s *stubCompletion) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func newTestDeliverer(tr *fakeTransport, c *stubCompletion) *Deliverer {
	return NewDeliverer(DelivererConfig{Transport: tr, Completion: c, Logger: testLogger()})
}

func newTestLoop(tr *fakeTransport, c *stubCompletion, cfg LoopConfig) *Loop {
	profile := prompt.DefaultProfile()
	cfg.Bot = testBot
	cfg.Gate = NewGate(testBot, []string{"codebot"})
	cfg.Composer = prompt.NewComposer(profile)
	cfg.Classifier = prompt.NewClassifier(profile)
	cfg.Deliverer = newTestDeliverer(tr, c)
	cfg.Transport = tr
	cfg.Logger = testLogger()
	return NewLoop(cfg)
}
