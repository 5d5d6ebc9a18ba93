package bot

import "fmt"

// SessionStatus guards concurrent execution on a single session. A session
// cycles AVAILABLE -> BUSY -> AVAILABLE on every turn; CLOSED is terminal.
type SessionStatus int

const (
	StatusAvailable SessionStatus = iota
	StatusBusy
	StatusClosed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusBusy:
		return "BUSY"
	case StatusClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("SessionStatus(%d)", int(s))
}

// TicketType mirrors the ITSM ticket taxonomy.
type TicketType int

const (
	TypeIncident TicketType = 1
	TypeRequest  TicketType = 2
)

// Label returns the short form used when formatting ticket uids.
func (t TicketType) Label() string {
	switch t {
	case TypeIncident:
		return "INC"
	case TypeRequest:
		return "REQ"
	}
	return ""
}

// TicketStatus mirrors the ITSM ticket lifecycle.
type TicketStatus int

const (
	TicketNew      TicketStatus = 1
	TicketAssigned TicketStatus = 2
)

// Coord points at one step inside one flow. A zero StepID means "the flow's
// starting step".
type Coord struct {
	Flow   string `json:"flow" bson:"flow"`
	StepID int    `json:"stepId,omitempty" bson:"stepId,omitempty"`
}

// Follow holds the two static transitions of a step: the success path and the
// recovery path taken when an action reports a recoverable failure.
type Follow struct {
	NextCoord     Coord `json:"nextCoord" bson:"nextCoord"`
	FallbackCoord Coord `json:"fallbackCoord" bson:"fallbackCoord"`
}

// Option is one choice offered to the user alongside a bot message.
type Option struct {
	Label string `json:"label" bson:"label"`
	Value any    `json:"value" bson:"value"`
}

// Say is a bot utterance, optionally with choices for the user's next turn.
type Say struct {
	Message string   `json:"message" bson:"message"`
	Options []Option `json:"options,omitempty" bson:"options,omitempty"`
}

// UserSay is what the user sent for this turn: free text and, when the
// previous bot message offered options, the chosen one.
type UserSay struct {
	Message string  `json:"message"`
	Option  *Option `json:"option,omitempty"`
}

// Step is one node of a flow. A step with no recognized action is a pure
// pass-through: it may still say something and always follows NextCoord.
// Results is only present on steps whose action reports a categorical outcome
// (solved, escalate, confirmation, error, approval) and maps each outcome to
// a coordinate.
type Step struct {
	ID               int              `json:"id" bson:"id"`
	Flow             string           `json:"flow" bson:"flow"`
	Action           string           `json:"action,omitempty" bson:"action,omitempty"`
	Args             map[string]any   `json:"args,omitempty" bson:"args,omitempty"`
	Say              *Say             `json:"say,omitempty" bson:"say,omitempty"`
	Checkpoint       bool             `json:"checkpoint" bson:"checkpoint"`
	WaitForUserInput bool             `json:"waitForUserInput" bson:"waitForUserInput"`
	Follow           Follow           `json:"follow" bson:"follow"`
	Results          map[string]Coord `json:"results,omitempty" bson:"results,omitempty"`
}

// Flow is an immutable, named document of steps. UID and Label feed the flow
// catalog (manual gating and flow listing); they are optional in authored
// documents.
type Flow struct {
	UID         string `json:"uid,omitempty"`
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description"`
	StartingID  int    `json:"startingId"`
	Steps       []Step `json:"steps"`
}

// FlowInfo is a catalog entry for one stored flow document.
type FlowInfo struct {
	UID        string
	Name       string
	Label      string
	Filename   string
	StartingID int
}

// Entity is the ITSM organizational unit a user (and their tickets) belong to.
type Entity struct {
	ID       int    `json:"id" bson:"id"`
	Name     string `json:"name,omitempty" bson:"name,omitempty"`
	ItsmCode string `json:"itsmCode" bson:"itsmCode"`
}

// Resource is one item of an ITSM resource catalog (printer, computer, ...).
type Resource struct {
	ID      int     `json:"id" bson:"id"`
	Name    string  `json:"name" bson:"name"`
	Contact string  `json:"contact,omitempty" bson:"contact,omitempty"`
	Entity  *Entity `json:"entity,omitempty" bson:"entity,omitempty"`
}

// TicketResource is a resource attached to a ticket.
type TicketResource struct {
	Item    Resource `json:"item" bson:"item"`
	Type    string   `json:"type" bson:"type"`
	Tickets []string `json:"tickets" bson:"tickets"`
}

// Ticket is the partial view of an externally tracked support ticket that the
// flows create and mutate.
type Ticket struct {
	UID            string           `json:"uid" bson:"uid"`
	Name           string           `json:"name,omitempty" bson:"name,omitempty"`
	Content        string           `json:"content,omitempty" bson:"content,omitempty"`
	Status         TicketStatus     `json:"status,omitempty" bson:"status,omitempty"`
	Type           TicketType       `json:"type,omitempty" bson:"type,omitempty"`
	Category       string           `json:"category,omitempty" bson:"category,omitempty"`
	ComputerName   string           `json:"computerName,omitempty" bson:"computerName,omitempty"`
	UserRequester  []int            `json:"userRequester" bson:"userRequester"`
	UserAssignedTo []int            `json:"userAssignedTo" bson:"userAssignedTo"`
	UserWatcher    []int            `json:"userWatcher" bson:"userWatcher"`
	Entity         *Entity          `json:"entity,omitempty" bson:"entity,omitempty"`
	Resources      []TicketResource `json:"resources" bson:"resources"`
}

// CallError records a failed interaction with an external dependency that the
// flow can route around via its fallback coordinate. It is trace data, not a
// control-flow exception: the turn keeps going.
type CallError struct {
	Source  string `json:"source" bson:"source"`
	Message string `json:"message" bson:"message"`
	Data    any    `json:"data,omitempty" bson:"data,omitempty"`
}

func (e *CallError) Error() string {
	return e.Source + ": " + e.Message
}

// TraceEntry is one element of a session stacktrace: either an executed step
// or a recoverable error, never both.
type TraceEntry struct {
	Step  *Step      `json:"step,omitempty" bson:"step,omitempty"`
	Error *CallError `json:"error,omitempty" bson:"error,omitempty"`
}

// Session is the conversation's persistent state. The step runner exclusively
// owns its mutation for the duration of one turn; the status gate keeps other
// turns out.
type Session struct {
	ID                 string         `json:"id" bson:"_id,omitempty"`
	Status             SessionStatus  `json:"status" bson:"status"`
	Flow               string         `json:"flow" bson:"flow"`
	NextStep           Coord          `json:"nextStep" bson:"nextStep"`
	Checkpoint         Coord          `json:"checkpoint" bson:"checkpoint"`
	Stacktrace         []TraceEntry   `json:"stacktrace" bson:"stacktrace"`
	History            []Say          `json:"history" bson:"history"`
	Variables          map[string]any `json:"variables" bson:"variables"`
	Ticket             *Ticket        `json:"ticket,omitempty" bson:"ticket,omitempty"`
	TalkingToHuman     bool           `json:"talkingToHuman" bson:"talkingToHuman"`
	Username           string         `json:"username,omitempty" bson:"username,omitempty"`
	TechName           string         `json:"techName,omitempty" bson:"techName,omitempty"`
	UserNeoID          int            `json:"userNeoId,omitempty" bson:"userNeoId,omitempty"`
	NeoBotID           int            `json:"neoBotId,omitempty" bson:"neoBotId,omitempty"`
	ComputerName       string         `json:"computerName,omitempty" bson:"computerName,omitempty"`
	ResourcesType      string         `json:"resourcesType,omitempty" bson:"resourcesType,omitempty"`
	Entity             *Entity        `json:"entity,omitempty" bson:"entity,omitempty"`
	Platform           string         `json:"platform,omitempty" bson:"platform,omitempty"`
	Diagnostics        map[string]any `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
	DiagnosticExitType string         `json:"diagnosticExitType,omitempty" bson:"diagnosticExitType,omitempty"`
}

// PushStep appends an executed step to the stacktrace.
func (s *Session) PushStep(step *Step) {
	s.Stacktrace = append(s.Stacktrace, TraceEntry{Step: step})
}

// PushError appends a recoverable error to the stacktrace.
func (s *Session) PushError(err *CallError) {
	s.Stacktrace = append(s.Stacktrace, TraceEntry{Error: err})
}

// SetVariable writes into the flow's working memory, allocating it on first use.
func (s *Session) SetVariable(key string, value any) {
	if s.Variables == nil {
		s.Variables = make(map[string]any)
	}
	s.Variables[key] = value
}

// Intent is the classifier's verdict on a user utterance.
type Intent struct {
	Name string
	Raw  map[string]any
}

// Book is one named diagnostic script in the orchestrator's catalog.
type Book struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// BookResult is the categorical outcome of a diagnostic run or a closure
// confirmation. Message, when present, becomes variables.orchestratorMessage.
type BookResult struct {
	Value   string `json:"value"`
	Message string `json:"message,omitempty"`
}

// Message is what the messaging sink delivers to the user.
type Message struct {
	Content    string   `json:"content"`
	Options    []Option `json:"options"`
	Sender     int      `json:"sender"`
	Recipients []int    `json:"recipients"`
	TicketUID  string   `json:"ticketUid,omitempty"`
	CreatedAt  string   `json:"createdAt"`
}
