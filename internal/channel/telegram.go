package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codebot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultPollTimeout = 30

// Telegram is the chat transport: it long-polls updates onto the bus and
// implements domain.Transport for status posts and edits.
type Telegram struct {
	token       string
	parseMode   string
	pollTimeout int
	endpoint    string
	client      *http.Client

	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token       string
	ParseMode   string // used for rich edits
	PollTimeout int
	APIEndpoint string       // optional, tgbotapi.APIEndpoint format
	HTTPClient  *http.Client // optional
	Logger      *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.ParseMode == "" {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		// long polling holds the request open for PollTimeout seconds
		cfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.PollTimeout+15) * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:       cfg.Token,
		parseMode:   cfg.ParseMode,
		pollTimeout: cfg.PollTimeout,
		endpoint:    cfg.APIEndpoint,
		client:      cfg.HTTPClient,
		logger:      cfg.Logger.With("component", "telegram"),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Connect authenticates with getMe and returns the bot's identity.
func (t *Telegram) Connect() (domain.BotIdentity, error) {
	tgbotapi.SetLogger(botLogger{logger: t.logger, token: t.token})
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return domain.BotIdentity{}, fmt.Errorf("telegram bot init: %w", redact(err, t.token))
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return domain.BotIdentity{ID: bot.Self.ID, Username: bot.Self.UserName}, nil
}

// Start polls for updates and publishes text messages until ctx is done.
// Updates queued while the bot was offline are skipped.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	if t.bot == nil {
		return errors.New("telegram: Connect must be called before Start")
	}

	offset, err := t.skipPending()
	if err != nil {
		t.logger.Warn("cannot skip pending updates", "error", err)
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = t.pollTimeout
	u.AllowedUpdates = []string{"message"}
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "offset", offset)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if msg, ok := ToIncoming(update.Message); ok {
				bus.Publish(msg)
			}
		}
	}
}

// skipPending returns the offset just past the newest queued update.
func (t *Telegram) skipPending() (int, error) {
	pending, err := t.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		return 0, redact(err, t.token)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	last := pending[len(pending)-1].UpdateID
	t.logger.Info("skipping pending updates", "last_update_id", last)
	return last + 1, nil
}

// Post sends text as a plain message threaded to replyTo and returns its id.
func (t *Telegram) Post(ctx context.Context, chatID int64, text string, replyTo int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo > 0 {
		msg.ReplyToMessageID = replyTo
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", redact(err, t.token))
	}
	return sent.MessageID, nil
}

// Edit replaces the text of messageID. Rich uses the configured parse mode,
// plain sends no parse mode at all.
func (t *Telegram) Edit(ctx context.Context, chatID int64, messageID int, text string, format domain.Formatting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if format == domain.FormatRich {
		edit.ParseMode = t.parseMode
	}
	if _, err := t.bot.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("edit message: %w", redact(err, t.token))
	}
	return nil
}

// isNotModified reports Telegram's rejection of an edit to identical text,
// which leaves the message in the state we wanted.
func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "message is not modified")
	}
	return false
}

// ToIncoming converts a Telegram message. Messages without text or sender
// are skipped, as are messages sent by bots.
func ToIncoming(m *tgbotapi.Message) (domain.IncomingMessage, bool) {
	if m == nil || m.Chat == nil || m.From == nil || m.From.IsBot {
		return domain.IncomingMessage{}, false
	}
	if strings.TrimSpace(m.Text) == "" {
		return domain.IncomingMessage{}, false
	}

	msg := domain.IncomingMessage{
		ID:        m.MessageID,
		ChatID:    m.Chat.ID,
		ChatType:  chatType(m.Chat.Type),
		Text:      m.Text,
		SenderID:  m.From.ID,
		Timestamp: time.Unix(int64(m.Date), 0),
	}
	// Only a leading bot_command entity makes a command; "// note" is text.
	if m.IsCommand() {
		name, target, _ := strings.Cut(m.CommandWithAt(), "@")
		msg.Command = strings.ToLower(name)
		msg.CommandTarget = target
	}
	if r := m.ReplyToMessage; r != nil {
		target := &domain.ReplyTarget{
			MessageID: r.MessageID,
			Text:      r.Text,
			Caption:   r.Caption,
		}
		if r.From != nil {
			target.SenderID = r.From.ID
		}
		msg.ReplyTo = target
	}
	return msg, true
}

func chatType(t string) domain.ChatType {
	switch t {
	case "private":
		return domain.ChatPrivate
	case "group", "supergroup":
		return domain.ChatGroup
	default:
		return domain.ChatOther
	}
}
