package bot

import "context"

// IntentFinder classifies a free-text utterance.
type IntentFinder interface {
	FindIntent(ctx context.Context, message string) (Intent, error)
}

// TicketService is the ITSM surface the action handlers need. Implementations
// return *CallError for expected service failures so handlers can append them
// to the trace as-is.
type TicketService interface {
	UserEntity(ctx context.Context, token string, userID int) (Entity, error)
	CreateTicket(ctx context.Context, token string, ticket Ticket) (string, error)
	UpdateTicket(ctx context.Context, token string, ticket Ticket) error
	DeleteTicket(ctx context.Context, token, uid string) error
	Resources(ctx context.Context, token, itsmCode, resourceType string) ([]Resource, error)
	AddKeyword(ctx context.Context, token, uid, keyword string) error
	SaveChatHistory(ctx context.Context, token, uid string, messages []Say) (int, error)
}

// Orchestrator drives remote diagnostic books and closure confirmations.
type Orchestrator interface {
	Books(ctx context.Context, token string) ([]Book, error)
	LaunchBook(ctx context.Context, token, bookID string, payload map[string]any) (BookResult, error)
	SendClosure(ctx context.Context, token, ticketUID string, accepted bool) (BookResult, error)
}

// Messenger delivers bot utterances. Both calls are best-effort: failures
// become trace entries, never abort a turn.
type Messenger interface {
	Send(ctx context.Context, token string, message Message) error
	RecordHistory(ctx context.Context, token string, session *Session, botSay Say) error
}

// FlowLoader loads flow documents and lists the catalog.
type FlowLoader interface {
	Load(name string) (Flow, error)
	Catalog() ([]FlowInfo, error)
}

// SessionSaver persists the full session after each executed step.
type SessionSaver interface {
	Save(ctx context.Context, session *Session) error
}
