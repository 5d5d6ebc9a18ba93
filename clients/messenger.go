package clients

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/Armoredbrain/RoBoTo/bot"
)

// Messenger delivers bot utterances to the chat frontend and mirrors them to
// the shared chat history.
type Messenger struct {
	client *resty.Client
	log    *slog.Logger
}

func NewMessenger(log *slog.Logger, baseURL string) *Messenger {
	return &Messenger{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		log:    log,
	}
}

func (c *Messenger) Send(ctx context.Context, token string, message bot.Message) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(message).
		Post("/messages")
	if err != nil || resp.IsError() {
		return callError("sendMessage", resp, err, map[string]any{"content": message.Content})
	}
	return nil
}

func (c *Messenger) RecordHistory(ctx context.Context, token string, session *bot.Session, botSay bot.Say) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{"sessionId": session.ID, "say": botSay}).
		Post("/history")
	if err != nil || resp.IsError() {
		return callError("recordHistory", resp, err, map[string]any{"message": botSay})
	}
	return nil
}
