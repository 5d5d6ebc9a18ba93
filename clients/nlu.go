// Package clients holds the outbound HTTP clients of the bot: the NLU
// classifier, the ITSM ticket backend, the diagnostics orchestrator and the
// messaging sink. Expected service failures come back as *bot.CallError so
// action handlers can push them straight into the session trace.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Armoredbrain/RoBoTo/bot"
)

const defaultTimeout = 30 * time.Second

// NLU talks to the intent classifier.
type NLU struct {
	client *resty.Client
	token  string
	log    *slog.Logger
}

func NewNLU(log *slog.Logger, baseURL, token string) *NLU {
	return &NLU{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		token:  token,
		log:    log,
	}
}

// Connect blocks until the classifier answers its status endpoint, retrying
// every second. The classifier loads its model at startup and refuses parse
// requests until it is ready.
func (n *NLU) Connect(ctx context.Context) error {
	for {
		resp, err := n.client.R().SetContext(ctx).Get("/status")
		if err == nil && !resp.IsError() {
			n.log.Info("nlu is up")
			return nil
		}
		n.log.Info("waiting for nlu", "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for nlu: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
}

type parseResponse struct {
	Intent struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"intent"`
}

func (n *NLU) FindIntent(ctx context.Context, message string) (bot.Intent, error) {
	var parsed parseResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParam("token", n.token).
		SetBody(map[string]string{"text": message}).
		SetResult(&parsed).
		Post("/model/parse")
	if err != nil {
		return bot.Intent{}, &bot.CallError{Source: "findIntent", Message: err.Error(), Data: map[string]any{"message": message}}
	}
	if resp.IsError() {
		return bot.Intent{}, &bot.CallError{Source: "findIntent", Message: resp.Status(), Data: map[string]any{"message": message}}
	}
	return bot.Intent{Name: parsed.Intent.Name}, nil
}
