package notify

import (
	"context"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go/v7"
)

// Sink delivers one alert to the visitor. Delivery is fire-and-forget;
// failures are logged and swallowed, never propagated to the poll loop.
type Sink interface {
	Display(title, body string)
}

// LogSink writes alerts to the structured log. It doubles as the local
// fallback when no push transport is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Display(title, body string) {
	s.logger.Info("notification", "title", title, "body", body)
}

// PubNubSink publishes alerts to the visitor's private channel, where the
// device shell turns them into OS notifications.
type PubNubSink struct {
	pn      *pubnub.PubNub
	channel string
	logger  *slog.Logger
}

func NewPubNubSink(pn *pubnub.PubNub, studentID string, logger *slog.Logger) *PubNubSink {
	return &PubNubSink{
		pn:      pn,
		channel: "user-" + studentID,
		logger:  logger,
	}
}

func (s *PubNubSink) Display(title, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := s.pn.PublishWithContext(ctx).
		Channel(s.channel).
		Message(map[string]any{
			"type":  "alert",
			"title": title,
			"body":  body,
		}).
		Execute()
	if err != nil {
		s.logger.Warn("pubnub publish failed", "channel", s.channel, "err", err)
	}
}
