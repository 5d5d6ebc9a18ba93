package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Armoredbrain/RoBoTo/bot"
)

// ITSM talks to the ticket backend.
type ITSM struct {
	client *resty.Client
	log    *slog.Logger
}

func NewITSM(log *slog.Logger, baseURL string) *ITSM {
	return &ITSM{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultTimeout),
		log:    log,
	}
}

func (c *ITSM) request(ctx context.Context, token string) *resty.Request {
	return c.client.R().SetContext(ctx).SetAuthToken(token)
}

func callError(source string, resp *resty.Response, err error, data any) *bot.CallError {
	if err != nil {
		return &bot.CallError{Source: source, Message: err.Error(), Data: data}
	}
	return &bot.CallError{Source: source, Message: resp.Status(), Data: data}
}

type membershipResponse struct {
	Entities []bot.Entity `json:"entities"`
}

// UserEntity returns the first organizational entity the user belongs to,
// which is where their tickets are filed.
func (c *ITSM) UserEntity(ctx context.Context, token string, userID int) (bot.Entity, error) {
	var membership membershipResponse
	resp, err := c.request(ctx, token).
		SetResult(&membership).
		Get(fmt.Sprintf("/users/%d/membership", userID))
	if err != nil || resp.IsError() {
		return bot.Entity{}, callError("getUserEntity", resp, err, map[string]any{"userNeoId": userID})
	}
	if len(membership.Entities) == 0 {
		return bot.Entity{}, &bot.CallError{Source: "getUserEntity", Message: "user belongs to no entity", Data: map[string]any{"userNeoId": userID}}
	}
	return membership.Entities[0], nil
}

func (c *ITSM) CreateTicket(ctx context.Context, token string, ticket bot.Ticket) (string, error) {
	var created struct {
		UID string `json:"uid"`
	}
	resp, err := c.request(ctx, token).
		SetBody(ticket).
		SetResult(&created).
		Post("/tickets")
	if err != nil || resp.IsError() {
		return "", callError("createTicket", resp, err, ticket)
	}
	return created.UID, nil
}

func (c *ITSM) UpdateTicket(ctx context.Context, token string, ticket bot.Ticket) error {
	resp, err := c.request(ctx, token).
		SetBody(ticket).
		Put("/tickets/" + ticket.UID)
	if err != nil || resp.IsError() {
		return callError("updateTicket", resp, err, ticket)
	}
	return nil
}

func (c *ITSM) DeleteTicket(ctx context.Context, token, uid string) error {
	resp, err := c.request(ctx, token).Delete("/tickets/" + uid)
	if err != nil || resp.IsError() {
		return callError("deleteTicket", resp, err, map[string]any{"ticketUid": uid})
	}
	return nil
}

type resourcesResponse struct {
	Resources []bot.Resource `json:"resources"`
}

func (c *ITSM) Resources(ctx context.Context, token, itsmCode, resourceType string) ([]bot.Resource, error) {
	var listed resourcesResponse
	resp, err := c.request(ctx, token).
		SetQueryParams(map[string]string{"entity": itsmCode, "type": resourceType}).
		SetResult(&listed).
		Get("/resources")
	if err != nil || resp.IsError() {
		return nil, callError("getResources", resp, err, map[string]any{"itsmCode": itsmCode, "resourcesType": resourceType})
	}
	return listed.Resources, nil
}

func (c *ITSM) AddKeyword(ctx context.Context, token, uid, keyword string) error {
	resp, err := c.request(ctx, token).
		SetBody(map[string]string{"keyword": keyword}).
		Post("/tickets/" + uid + "/keywords")
	if err != nil || resp.IsError() {
		return callError("addKeyword", resp, err, map[string]any{"keyword": keyword, "ticketUid": uid})
	}
	return nil
}

type historyEntry struct {
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// SaveChatHistory uploads the conversation so far onto the ticket and returns
// the backend's status code: 207 means some messages were rejected but the
// upload as a whole went through.
func (c *ITSM) SaveChatHistory(ctx context.Context, token, uid string, messages []bot.Say) (int, error) {
	entries := make([]historyEntry, 0, len(messages))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, say := range messages {
		entries = append(entries, historyEntry{Content: say.Message, CreatedAt: now})
	}
	resp, err := c.request(ctx, token).
		SetBody(map[string]any{"messages": entries}).
		Post("/tickets/" + uid + "/chat")
	if err != nil || resp.IsError() {
		return 0, callError("saveChatHistory", resp, err, map[string]any{"messages": messages, "ticketUid": uid})
	}
	return resp.StatusCode(), nil
}
