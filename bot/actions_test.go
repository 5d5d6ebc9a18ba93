package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNLU struct {
	intent Intent
	err    error
}

func (f *fakeNLU) FindIntent(_ context.Context, _ string) (Intent, error) {
	return f.intent, f.err
}

type fakeTickets struct {
	entity       Entity
	entityErr    error
	uid          string
	createErr    error
	created      *Ticket
	updateErr    error
	updated      []Ticket
	deleteErr    error
	deletedUID   string
	resources    []Resource
	resourcesErr error
	keywordErr   error
	keywords     []string
	historyCode  int
	historyErr   error
}

func (f *fakeTickets) UserEntity(_ context.Context, _ string, _ int) (Entity, error) {
	return f.entity, f.entityErr
}

func (f *fakeTickets) CreateTicket(_ context.Context, _ string, ticket Ticket) (string, error) {
	f.created = &ticket
	return f.uid, f.createErr
}

func (f *fakeTickets) UpdateTicket(_ context.Context, _ string, ticket Ticket) error {
	f.updated = append(f.updated, ticket)
	return f.updateErr
}

func (f *fakeTickets) DeleteTicket(_ context.Context, _ string, uid string) error {
	f.deletedUID = uid
	return f.deleteErr
}

func (f *fakeTickets) Resources(_ context.Context, _, _, _ string) ([]Resource, error) {
	return f.resources, f.resourcesErr
}

func (f *fakeTickets) AddKeyword(_ context.Context, _, _, keyword string) error {
	f.keywords = append(f.keywords, keyword)
	return f.keywordErr
}

func (f *fakeTickets) SaveChatHistory(_ context.Context, _, _ string, _ []Say) (int, error) {
	if f.historyCode == 0 {
		return 200, f.historyErr
	}
	return f.historyCode, f.historyErr
}

type fakeOrch struct {
	books      []Book
	booksErr   error
	result     BookResult
	launchErr  error
	launchedID string
	payload    map[string]any
	closure    BookResult
	closureErr error
	accepted   *bool
}

func (f *fakeOrch) Books(_ context.Context, _ string) ([]Book, error) {
	return f.books, f.booksErr
}

func (f *fakeOrch) LaunchBook(_ context.Context, _, bookID string, payload map[string]any) (BookResult, error) {
	f.launchedID = bookID
	f.payload = payload
	return f.result, f.launchErr
}

func (f *fakeOrch) SendClosure(_ context.Context, _, _ string, accepted bool) (BookResult, error) {
	f.accepted = &accepted
	return f.closure, f.closureErr
}

type harness struct {
	actions *Actions
	nlu     *fakeNLU
	tickets *fakeTickets
	orch    *fakeOrch
	flows   *fakeFlows
}

func newHarness(mapping map[string][]string) *harness {
	nlu := &fakeNLU{}
	tickets := &fakeTickets{}
	orch := &fakeOrch{}
	flows := &fakeFlows{flows: map[string]Flow{}}
	gate := &Gate{NLU: nlu, Flows: flows, Mapping: mapping}
	return &harness{
		actions: NewActions(testLogger(), nlu, tickets, orch, gate, flows),
		nlu:     nlu,
		tickets: tickets,
		orch:    orch,
		flows:   flows,
	}
}

func exchangeFor(step Step, session *Session, userSay UserSay) *Exchange {
	return &Exchange{Session: session, Step: &step, UserSay: userSay, Token: "token"}
}

var routedStep = Step{
	ID: 5, Flow: "main",
	Follow: Follow{
		NextCoord:     Coord{Flow: "main", StepID: 6},
		FallbackCoord: Coord{Flow: "main", StepID: 9},
	},
}

func TestEndSessionClosesTheConversation(t *testing.T) {
	h := newHarness(nil)
	session := &Session{Status: StatusBusy}

	outcome, err := h.actions.endSession(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, session.Status)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
}

func TestSaveSessionVariables(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"city": "Lyon", "retries": 2}
	session := &Session{}

	_, err := h.actions.saveSessionVariables(context.Background(), exchangeFor(step, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, "Lyon", session.Variables["city"])
	assert.Equal(t, 2, session.Variables["retries"])
}

func TestSaveSessionVariablesWithUserInput(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"username": ""}
	session := &Session{}

	_, err := h.actions.saveSessionVariablesWithUserInput(context.Background(), exchangeFor(step, session, UserSay{Message: "ada"}))
	require.NoError(t, err)
	assert.Equal(t, "ada", session.Variables["username"])
}

func TestChangeSayMessage(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Say = &Say{Message: "authored message"}
	session := &Session{Variables: map[string]any{"orchestratorMessage": "the disk is full"}}

	ex := exchangeFor(step, session, UserSay{})
	_, err := h.actions.changeSayMessage(context.Background(), ex)
	require.NoError(t, err)
	assert.Equal(t, "the disk is full", ex.Step.Say.Message)
}

func TestCreateTicketHappyPath(t *testing.T) {
	h := newHarness(nil)
	h.tickets.entity = Entity{ID: 1, ItsmCode: "GL1"}
	h.tickets.uid = "GL1-123"
	step := routedStep
	step.Args = map[string]any{"name": "Printer broken", "type": float64(1)}
	session := &Session{UserNeoID: 4, ComputerName: "PC-42", History: []Say{{Message: "hi"}}}

	outcome, err := h.actions.createTicket(context.Background(), exchangeFor(step, session, UserSay{}))
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	require.NotNil(t, session.Ticket)
	assert.Equal(t, "GL1-123", session.Ticket.UID)
	assert.Equal(t, "Printer broken", session.Ticket.Name)
	assert.Equal(t, DefaultTicketContent, session.Ticket.Content)
	assert.Equal(t, TypeIncident, session.Ticket.Type)
	assert.Equal(t, []int{4}, session.Ticket.UserRequester)
	require.NotNil(t, session.Entity)
	assert.Equal(t, "GL1", session.Entity.ItsmCode)
}

func TestCreateTicketIsIdempotent(t *testing.T) {
	h := newHarness(nil)
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.createTicket(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	assert.Nil(t, h.tickets.created)
}

func TestCreateTicketEntityLookupFailure(t *testing.T) {
	h := newHarness(nil)
	h.tickets.entityErr = &CallError{Source: "getUserEntity", Message: "503 Service Unavailable"}
	session := &Session{UserNeoID: 4}

	outcome, err := h.actions.createTicket(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)

	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "getUserEntity", outcome.Errors[0].Source)
	assert.Nil(t, session.Ticket)
}

func TestCreateTicketHistoryFailureKeepsTheTicket(t *testing.T) {
	h := newHarness(nil)
	h.tickets.uid = "GL1-123"
	h.tickets.historyErr = &CallError{Source: "saveChatHistory", Message: "502 Bad Gateway"}
	session := &Session{UserNeoID: 4}

	outcome, err := h.actions.createTicket(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)

	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "saveChatHistory", outcome.Errors[0].Source)
	require.NotNil(t, session.Ticket)
	assert.Equal(t, "GL1-123", session.Ticket.UID)
}

func TestCreateTicketPartialHistorySwapsTheSay(t *testing.T) {
	h := newHarness(nil)
	h.tickets.uid = "GL1-123"
	h.tickets.historyCode = 207
	step := routedStep
	step.Args = map[string]any{"defaultMessage": "your ticket is created, some history was lost"}
	step.Say = &Say{Message: "your ticket ${ticket.uid} is created"}
	session := &Session{UserNeoID: 4}

	ex := exchangeFor(step, session, UserSay{})
	outcome, err := h.actions.createTicket(context.Background(), ex)
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	assert.Equal(t, "your ticket is created, some history was lost", ex.Step.Say.Message)
}

func TestUpdateTicketWithUserInputAppendsContent(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"content": ""}
	session := &Session{Ticket: &Ticket{UID: "GL1-1", Content: "<p>first part</p>"}}

	outcome, err := h.actions.updateTicketWithUserInput(context.Background(), exchangeFor(step, session, UserSay{Message: "second part"}))
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	assert.Equal(t, "<p>first part second part</p>", session.Ticket.Content)
	require.Len(t, h.tickets.updated, 1)
}

func TestUpdateTicketWithoutTicketFallsBack(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"name": "new name"}

	outcome, err := h.actions.updateTicket(context.Background(), exchangeFor(step, &Session{}, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, step.Follow.FallbackCoord, outcome.Next)
	assert.Empty(t, h.tickets.updated)
}

func TestDeleteTicket(t *testing.T) {
	h := newHarness(nil)
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.deleteTicket(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	assert.Equal(t, "GL1-1", h.tickets.deletedUID)
	assert.Nil(t, session.Ticket)
}

func TestDeleteTicketWithoutTicketIsANoOp(t *testing.T) {
	h := newHarness(nil)

	outcome, err := h.actions.deleteTicket(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	assert.Empty(t, h.tickets.deletedUID)
}

func TestCheckTicketError(t *testing.T) {
	h := newHarness(nil)

	cases := []struct {
		name   string
		ticket *Ticket
		want   Coord
	}{
		{"no ticket", nil, routedStep.Follow.FallbackCoord},
		{"placeholder name", &Ticket{Name: DefaultTicketName, Content: "<p>real</p>"}, routedStep.Follow.FallbackCoord},
		{"placeholder content fr", &Ticket{Name: "real", Content: "Ticket sans contenu"}, routedStep.Follow.FallbackCoord},
		{"placeholder content en", &Ticket{Name: "real", Content: "Ticket without content"}, routedStep.Follow.FallbackCoord},
		{"filled in", &Ticket{Name: "real", Content: "<p>real</p>"}, routedStep.Follow.NextCoord},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := &Session{Ticket: tc.ticket}
			outcome, err := h.actions.checkTicketError(context.Background(), exchangeFor(routedStep, session, UserSay{}))
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome.Next)
		})
	}
}

func TestTalkingToHuman(t *testing.T) {
	h := newHarness(nil)
	session := &Session{}

	outcome, err := h.actions.talkingToHuman(context.Background(), exchangeFor(routedStep, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	assert.True(t, session.TalkingToHuman)
}

func TestCheckFilePathAppendsPathToTicketContent(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"content": "chemin du fichier :"}
	session := &Session{Ticket: &Ticket{UID: "GL1-1", Content: "<p>mon imprimante est en panne</p>"}}

	outcome, err := h.actions.checkFilePath(context.Background(), exchangeFor(step, session, UserSay{Message: `C:\logs\print.log`}))
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	assert.Equal(t, `<p>mon imprimante est en panne chemin du fichier : C:\logs\print.log</p>`, session.Ticket.Content)
	require.Len(t, h.tickets.updated, 1)
	assert.Equal(t, session.Ticket.Content, h.tickets.updated[0].Content)
}

func TestCheckFilePathWithoutTicketFallsBack(t *testing.T) {
	h := newHarness(nil)

	outcome, err := h.actions.checkFilePath(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Message: "/tmp/log"}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	assert.Empty(t, h.tickets.updated)
}

func TestCheckFilePathUpdateFailureFallsBack(t *testing.T) {
	h := newHarness(nil)
	h.tickets.updateErr = &CallError{Source: "updateTicket", Message: "500 Internal Server Error"}
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.checkFilePath(context.Background(), exchangeFor(routedStep, session, UserSay{Message: "/tmp/log"}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "updateTicket", outcome.Errors[0].Source)
}

func TestAddKeyword(t *testing.T) {
	h := newHarness(nil)
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.addKeyword(context.Background(), exchangeFor(routedStep, session, UserSay{Message: "printer"}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	assert.Equal(t, []string{"printer"}, h.tickets.keywords)
}

func TestAddKeywordFailureFallsBack(t *testing.T) {
	h := newHarness(nil)
	h.tickets.keywordErr = &CallError{Source: "addKeyword", Message: "500 Internal Server Error"}
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.addKeyword(context.Background(), exchangeFor(routedStep, session, UserSay{Message: "printer"}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "addKeyword", outcome.Errors[0].Source)
}

func TestGetResourcesOffersOptionsAndKeepsCatalog(t *testing.T) {
	h := newHarness(nil)
	h.tickets.resources = []Resource{{ID: 1, Name: "Printer A"}, {ID: 2, Name: "Printer B"}}
	step := routedStep
	step.Args = map[string]any{"resourcesType": "printer"}
	step.Say = &Say{Message: "pick one", Options: []Option{{Label: "none of these", Value: 0}}}
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	ex := exchangeFor(step, session, UserSay{})
	outcome, err := h.actions.getResources(context.Background(), ex)
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	assert.Equal(t, "Printer", session.ResourcesType)
	require.Len(t, ex.Step.Say.Options, 3)
	assert.Equal(t, "Printer A", ex.Step.Say.Options[0].Label)
	assert.Equal(t, "none of these", ex.Step.Say.Options[2].Label)
	assert.NotNil(t, session.Variables["resources"])
}

func TestSetResourceAttachesThePickedResource(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Args = map[string]any{"type": "Printer", "resourceIdKey": "printerName"}
	session := &Session{
		Ticket:    &Ticket{UID: "GL1-1"},
		Variables: map[string]any{"resources": []Resource{{ID: 2, Name: "Printer B"}}},
	}

	outcome, err := h.actions.setResource(context.Background(), exchangeFor(step, session, UserSay{Option: &Option{Label: "Printer B", Value: float64(2)}}))
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	require.Len(t, session.Ticket.Resources, 1)
	assert.Equal(t, "Printer B", session.Ticket.Resources[0].Item.Name)
	assert.Equal(t, "Printer", session.Ticket.Resources[0].Type)
	assert.Equal(t, "Printer B", session.Variables["printerName"])
}

func TestSetResourceReadsPersistedVariableShape(t *testing.T) {
	h := newHarness(nil)
	session := &Session{
		Ticket: &Ticket{UID: "GL1-1"},
		Variables: map[string]any{"resources": []any{
			map[string]any{"id": float64(7), "name": "Printer C"},
		}},
	}

	outcome, err := h.actions.setResource(context.Background(), exchangeFor(routedStep, session, UserSay{Option: &Option{Value: float64(7)}}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	require.Len(t, session.Ticket.Resources, 1)
	assert.Equal(t, "Printer C", session.Ticket.Resources[0].Item.Name)
}

func TestYesOrNoGate(t *testing.T) {
	h := newHarness(nil)

	t.Run("affirmative option", func(t *testing.T) {
		outcome, err := h.actions.yesOrNoGate(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Option: &Option{Label: "Oui", Value: float64(1)}}))
		require.NoError(t, err)
		assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	})

	t.Run("negative option", func(t *testing.T) {
		outcome, err := h.actions.yesOrNoGate(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Option: &Option{Label: "No", Value: float64(0)}}))
		require.NoError(t, err)
		assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
	})

	t.Run("free text classified as agreement", func(t *testing.T) {
		h.nlu.intent = Intent{Name: "agree"}
		outcome, err := h.actions.yesOrNoGate(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Message: "sure, go ahead"}))
		require.NoError(t, err)
		assert.Equal(t, routedStep.Follow.NextCoord, outcome.Next)
	})

	t.Run("classifier failure falls back", func(t *testing.T) {
		h.nlu.err = &CallError{Source: "findIntent", Message: "timeout"}
		outcome, err := h.actions.yesOrNoGate(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Message: "sure"}))
		require.NoError(t, err)
		assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
		require.Len(t, outcome.Errors, 1)
	})
}

func TestTargetFlowRoutesOnIntent(t *testing.T) {
	h := newHarness(map[string][]string{"printer_issue": {"printer_broken"}})
	h.nlu.intent = Intent{Name: "printer_broken"}

	outcome, err := h.actions.targetFlow(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Message: "my printer is dead"}))
	require.NoError(t, err)
	assert.Equal(t, Coord{Flow: "printer_issue", StepID: routedStep.Follow.NextCoord.StepID}, outcome.Next)
}

func TestTargetFlowUnknownIntentFallsBack(t *testing.T) {
	h := newHarness(map[string][]string{"printer_issue": {"printer_broken"}})
	h.nlu.intent = Intent{Name: "greeting"}

	outcome, err := h.actions.targetFlow(context.Background(), exchangeFor(routedStep, &Session{}, UserSay{Message: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, routedStep.Follow.FallbackCoord, outcome.Next)
}

func TestFlowGateRecordsUtteranceOnTicket(t *testing.T) {
	h := newHarness(map[string][]string{"printer_issue": {"printer_broken"}})
	h.nlu.intent = Intent{Name: "printer_broken"}
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

	outcome, err := h.actions.flowGate(context.Background(), exchangeFor(routedStep, session, UserSay{Message: "printer is dead"}))
	require.NoError(t, err)
	assert.Equal(t, "printer_issue", outcome.Next.Flow)
	assert.Equal(t, "printer is dead", session.Ticket.Content)
}

func TestManualFlowGateUsesTheCatalog(t *testing.T) {
	h := newHarness(nil)
	h.flows.flows["printer_issue"] = Flow{UID: "flow-7", Name: "Printer Issue", StartingID: 2}
	session := &Session{Ticket: &Ticket{UID: "GL1-1"}}
	option := &Option{Label: "Printer problem", Value: "flow-7"}

	outcome, err := h.actions.manualFlowGate(context.Background(), exchangeFor(routedStep, session, UserSay{Option: option}))
	require.NoError(t, err)
	assert.Equal(t, Coord{Flow: "printer_issue", StepID: 2}, outcome.Next)
	assert.Equal(t, "Printer problem", session.Ticket.Content)
}

func TestDisplayAllAvailableFlows(t *testing.T) {
	h := newHarness(nil)
	h.flows.flows["printer_issue"] = Flow{UID: "flow-7", Name: "Printer Issue", Label: "Printer problem", StartingID: 1}
	step := routedStep
	step.Say = &Say{Message: "what can I do for you?"}

	ex := exchangeFor(step, &Session{}, UserSay{})
	outcome, err := h.actions.displayAllAvailableFlows(context.Background(), ex)
	require.NoError(t, err)

	assert.Equal(t, step.Follow.NextCoord, outcome.Next)
	require.Len(t, ex.Step.Say.Options, 1)
	assert.Equal(t, "Printer problem", ex.Step.Say.Options[0].Label)
	assert.Equal(t, "flow-7", ex.Step.Say.Options[0].Value)
}

func TestLaunchBook(t *testing.T) {
	step := routedStep
	step.Args = map[string]any{"book": "disk_cleanup", "computerName": ""}
	step.Results = map[string]Coord{
		"solved":   {Flow: "main", StepID: 10},
		"escalate": {Flow: "main", StepID: 11},
		"error":    {Flow: "main", StepID: 12},
	}

	t.Run("routes on the book verdict", func(t *testing.T) {
		h := newHarness(nil)
		h.orch.books = []Book{{ID: "b1", Filename: "disk_cleanup"}}
		h.orch.result = BookResult{Value: "solved", Message: "disk cleaned"}
		session := &Session{
			Ticket:      &Ticket{UID: "GL1-1"},
			Diagnostics: map[string]any{"os": "windows"},
			Variables:   map[string]any{"computerName": "PC-42"},
		}

		outcome, err := h.actions.launchBook(context.Background(), exchangeFor(step, session, UserSay{}))
		require.NoError(t, err)

		assert.Equal(t, Coord{Flow: "main", StepID: 10}, outcome.Next)
		assert.Equal(t, "b1", h.orch.launchedID)
		assert.Equal(t, map[string]any{"computerName": "PC-42"}, h.orch.payload)
		assert.Equal(t, "disk cleaned", session.Variables["orchestratorMessage"])
		assert.Equal(t, "solved", session.DiagnosticExitType)
	})

	t.Run("requires diagnostics", func(t *testing.T) {
		h := newHarness(nil)
		session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

		outcome, err := h.actions.launchBook(context.Background(), exchangeFor(step, session, UserSay{}))
		require.NoError(t, err)
		assert.Equal(t, Coord{Flow: "main", StepID: 12}, outcome.Next)
	})

	t.Run("book catalog failure", func(t *testing.T) {
		h := newHarness(nil)
		h.orch.booksErr = &CallError{Source: "fetchBooks", Message: "503 Service Unavailable"}
		session := &Session{Ticket: &Ticket{UID: "GL1-1"}, Diagnostics: map[string]any{}}

		outcome, err := h.actions.launchBook(context.Background(), exchangeFor(step, session, UserSay{}))
		require.NoError(t, err)
		assert.Equal(t, Coord{Flow: "main", StepID: 12}, outcome.Next)
		require.Len(t, outcome.Errors, 1)
		assert.Equal(t, "fetchBooks", outcome.Errors[0].Source)
	})

	t.Run("unknown book", func(t *testing.T) {
		h := newHarness(nil)
		h.orch.books = []Book{{ID: "b2", Filename: "other_book"}}
		session := &Session{Ticket: &Ticket{UID: "GL1-1"}, Diagnostics: map[string]any{}}

		outcome, err := h.actions.launchBook(context.Background(), exchangeFor(step, session, UserSay{}))
		require.NoError(t, err)
		assert.Equal(t, Coord{Flow: "main", StepID: 12}, outcome.Next)
	})
}

func TestSendClosureToOrchestrator(t *testing.T) {
	step := routedStep
	step.Args = map[string]any{"accepted": true}
	step.Results = map[string]Coord{
		"confirmation": {Flow: "main", StepID: 20},
		"error":        {Flow: "main", StepID: 21},
	}

	t.Run("routes on the orchestrator verdict", func(t *testing.T) {
		h := newHarness(nil)
		h.orch.closure = BookResult{Value: "confirmation"}
		session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

		outcome, err := h.actions.sendClosureToOrchestrator(context.Background(), exchangeFor(step, session, UserSay{}))
		require.NoError(t, err)
		assert.Equal(t, Coord{Flow: "main", StepID: 20}, outcome.Next)
		require.NotNil(t, h.orch.accepted)
		assert.True(t, *h.orch.accepted)
	})

	t.Run("accepted must be a boolean", func(t *testing.T) {
		h := newHarness(nil)
		loose := step
		loose.Args = map[string]any{"accepted": "yes"}
		session := &Session{Ticket: &Ticket{UID: "GL1-1"}}

		outcome, err := h.actions.sendClosureToOrchestrator(context.Background(), exchangeFor(loose, session, UserSay{}))
		require.NoError(t, err)
		assert.Equal(t, Coord{Flow: "main", StepID: 21}, outcome.Next)
		assert.Nil(t, h.orch.accepted)
	})
}

func TestCheckDiagnosticsResults(t *testing.T) {
	h := newHarness(nil)
	step := routedStep
	step.Results = map[string]Coord{"solved": {Flow: "main", StepID: 30}}
	session := &Session{DiagnosticExitType: "solved"}

	outcome, err := h.actions.checkDiagnosticsResults(context.Background(), exchangeFor(step, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, Coord{Flow: "main", StepID: 30}, outcome.Next)

	session.DiagnosticExitType = "unknown"
	outcome, err = h.actions.checkDiagnosticsResults(context.Background(), exchangeFor(step, session, UserSay{}))
	require.NoError(t, err)
	assert.Equal(t, step.Follow.FallbackCoord, outcome.Next)
}

func TestWrapHTML(t *testing.T) {
	assert.Equal(t, "<p>one two</p>", wrapHTML("<p>one</p>", "two"))
	assert.Equal(t, "<p>only</p>", wrapHTML("", "only", ""))
	assert.Equal(t, "<p></p>", wrapHTML())
}
