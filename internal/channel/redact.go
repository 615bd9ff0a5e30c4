package channel

import (
	"fmt"
	"log/slog"
	"strings"
)

// Bot API URLs embed the token, and net/http puts the URL in its errors.

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

// botLogger routes tgbotapi's internal logging through slog with the token
// scrubbed.
type botLogger struct {
	logger *slog.Logger
	token  string
}

func (l botLogger) Println(v ...interface{}) {
	l.log(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log(fmt.Sprintf(format, v...))
}

func (l botLogger) log(msg string) {
	if l.token != "" {
		msg = strings.ReplaceAll(msg, l.token, "<token>")
	}
	l.logger.Warn("telegram client", "msg", msg)
}
