package clients

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/Armoredbrain/RoBoTo/bot"
)

// Orchestrator talks to the diagnostics orchestrator that runs remote scripts
// ("books") against user machines.
type Orchestrator struct {
	client *resty.Client
	log    *slog.Logger
}

func NewOrchestrator(log *slog.Logger, baseURL string) *Orchestrator {
	return &Orchestrator{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		log:    log,
	}
}

func (c *Orchestrator) Books(ctx context.Context, token string) ([]bot.Book, error) {
	var books []bot.Book
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&books).
		Get("/books")
	if err != nil || resp.IsError() {
		return nil, callError("fetchBooks", resp, err, nil)
	}
	return books, nil
}

func (c *Orchestrator) LaunchBook(ctx context.Context, token, bookID string, payload map[string]any) (bot.BookResult, error) {
	var result bot.BookResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&result).
		Post("/books/" + bookID + "/launch")
	if err != nil || resp.IsError() {
		return bot.BookResult{}, callError("launchBook", resp, err, map[string]any{"bookId": bookID, "payload": payload})
	}
	return result, nil
}

func (c *Orchestrator) SendClosure(ctx context.Context, token, ticketUID string, accepted bool) (bot.BookResult, error) {
	var result bot.BookResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{"ticketUid": ticketUID, "accepted": accepted}).
		SetResult(&result).
		Post("/closure")
	if err != nil || resp.IsError() {
		return bot.BookResult{}, callError("sendClosure", resp, err, map[string]any{"ticketUid": ticketUID, "accepted": accepted})
	}
	return result, nil
}
