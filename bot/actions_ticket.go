package bot

import (
	"context"
	"slices"
	"strings"
	"unicode"
)

// createTicket opens an ITSM ticket for the session's user. Idempotent: a
// session that already carries a ticket passes through. The entity lookup and
// the create itself are hard prerequisites of the success path; a failed
// chat-history upload keeps the ticket but routes to the fallback, and a 207
// means the history was only partially accepted, in which case the step's
// defaultMessage replaces the authored say.
func (a *Actions) createTicket(ctx context.Context, ex *Exchange) (Outcome, error) {
	session := ex.Session
	if session.Ticket != nil {
		return next(ex.Step), nil
	}

	entity, err := a.tickets.UserEntity(ctx, ex.Token, session.UserNeoID)
	if err != nil {
		return fallback(ex.Step, AsCallError("getUserEntity", err, map[string]any{"userNeoId": session.UserNeoID})), nil
	}
	session.Entity = &entity

	ticket := Ticket{
		Name:           DefaultTicketName,
		Content:        DefaultTicketContent,
		Status:         TicketNew,
		Type:           ticketTypeArg(ex.Step.Args),
		ComputerName:   session.ComputerName,
		UserRequester:  []int{session.UserNeoID},
		UserAssignedTo: []int{},
		UserWatcher:    []int{},
		Entity:         &entity,
		Resources:      []TicketResource{},
	}
	if name := stringArg(ex.Step.Args, "name"); name != "" {
		ticket.Name = name
	}

	uid, err := a.tickets.CreateTicket(ctx, ex.Token, ticket)
	if err != nil {
		return fallback(ex.Step, AsCallError("createTicket", err, ticket)), nil
	}
	ticket.UID = uid
	session.Ticket = &ticket

	status, err := a.tickets.SaveChatHistory(ctx, ex.Token, uid, session.History)
	if err != nil {
		return fallback(ex.Step, AsCallError("saveChatHistory", err, map[string]any{"messages": session.History, "ticketUid": uid})), nil
	}
	if status == 207 {
		ex.Step.Say = &Say{Message: stringArg(ex.Step.Args, "defaultMessage")}
	}
	return next(ex.Step), nil
}

// updateTicket applies the step's authored args to the open ticket. Only the
// fields flows are allowed to touch are copied over.
func (a *Actions) updateTicket(ctx context.Context, ex *Exchange) (Outcome, error) {
	if ex.Session.Ticket == nil {
		return fallback(ex.Step), nil
	}
	ticket := ex.Session.Ticket
	if name := stringArg(ex.Step.Args, "name"); name != "" {
		ticket.Name = name
	}
	if content := stringArg(ex.Step.Args, "content"); content != "" {
		ticket.Content = wrapHTML(content)
	}
	if category := stringArg(ex.Step.Args, "category"); category != "" {
		ticket.Category = category
	}
	if err := a.tickets.UpdateTicket(ctx, ex.Token, *ticket); err != nil {
		return fallback(ex.Step, AsCallError("updateTicket", err, ticket)), nil
	}
	return next(ex.Step), nil
}

// updateTicketWithUserInput writes the user's utterance into the ticket field
// named by the step's first args key. Free text lands in content appended to
// what is already there; name and category are replaced outright.
func (a *Actions) updateTicketWithUserInput(ctx context.Context, ex *Exchange) (Outcome, error) {
	if ex.Session.Ticket == nil {
		return fallback(ex.Step), nil
	}
	field, ok := firstArgKey(ex.Step.Args)
	if !ok {
		return fallback(ex.Step), nil
	}
	ticket := ex.Session.Ticket
	input := utteranceOf(ex.UserSay)
	switch field {
	case "name":
		ticket.Name = input
	case "content":
		ticket.Content = wrapHTML(ticket.Content, input)
	case "category":
		ticket.Category = input
	default:
		return fallback(ex.Step), nil
	}
	if err := a.tickets.UpdateTicket(ctx, ex.Token, *ticket); err != nil {
		return fallback(ex.Step, AsCallError("updateTicket", err, ticket)), nil
	}
	return next(ex.Step), nil
}

// deleteTicket drops the open ticket, both remotely and from the session. A
// session without a ticket passes through.
func (a *Actions) deleteTicket(ctx context.Context, ex *Exchange) (Outcome, error) {
	if ex.Session.Ticket == nil {
		return next(ex.Step), nil
	}
	uid := ex.Session.Ticket.UID
	if err := a.tickets.DeleteTicket(ctx, ex.Token, uid); err != nil {
		return fallback(ex.Step, AsCallError("deleteTicket", err, map[string]any{"ticketUid": uid})), nil
	}
	ex.Session.Ticket = nil
	return next(ex.Step), nil
}

// checkTicketError routes to the fallback when the open ticket still carries
// placeholder name or content, meaning an earlier update never landed.
func (a *Actions) checkTicketError(_ context.Context, ex *Exchange) (Outcome, error) {
	ticket := ex.Session.Ticket
	if ticket == nil {
		return fallback(ex.Step), nil
	}
	if slices.Contains(emptyTicketNames, ticket.Name) || slices.Contains(emptyTicketContents, ticket.Content) {
		return fallback(ex.Step), nil
	}
	return next(ex.Step), nil
}

// checkFilePath appends the step's authored content and the user's answer
// (typically a file path) to the ticket's content.
func (a *Actions) checkFilePath(ctx context.Context, ex *Exchange) (Outcome, error) {
	if ex.Session.Ticket == nil {
		return fallback(ex.Step), nil
	}
	ticket := ex.Session.Ticket
	ticket.Content = wrapHTML(ticket.Content, stringArg(ex.Step.Args, "content"), ex.UserSay.Message)
	if err := a.tickets.UpdateTicket(ctx, ex.Token, *ticket); err != nil {
		return fallback(ex.Step, AsCallError("updateTicket", err, ticket)), nil
	}
	return next(ex.Step), nil
}

// addKeyword tags the open ticket with the step's keyword, or with the user's
// utterance when the step does not pin one. No ticket means nothing to tag.
func (a *Actions) addKeyword(ctx context.Context, ex *Exchange) (Outcome, error) {
	if ex.Session.Ticket == nil {
		return next(ex.Step), nil
	}
	keyword := stringArg(ex.Step.Args, "keyword")
	if keyword == "" {
		keyword = utteranceOf(ex.UserSay)
	}
	uid := ex.Session.Ticket.UID
	if err := a.tickets.AddKeyword(ctx, ex.Token, uid, keyword); err != nil {
		return fallback(ex.Step, AsCallError("addKeyword", err, map[string]any{"keyword": keyword, "ticketUid": uid})), nil
	}
	return next(ex.Step), nil
}

// getResources fetches the resource catalog of the ticket's entity for the
// step's resource type, keeps it in the session variables for setResource,
// and offers one option per resource ahead of the step's own options.
func (a *Actions) getResources(ctx context.Context, ex *Exchange) (Outcome, error) {
	session := ex.Session
	resourcesType := stringArg(ex.Step.Args, "resourcesType")
	if session.Ticket == nil || resourcesType == "" {
		return fallback(ex.Step), nil
	}

	itsmCode, _, _ := strings.Cut(session.Ticket.UID, "-")
	resourcesType = titleCase(resourcesType)
	resources, err := a.tickets.Resources(ctx, ex.Token, itsmCode, resourcesType)
	if err != nil {
		return fallback(ex.Step, AsCallError("getResources", err, map[string]any{"itsmCode": itsmCode, "resourcesType": resourcesType})), nil
	}

	session.ResourcesType = resourcesType
	session.SetVariable("resources", resources)

	if ex.Step.Say == nil {
		ex.Step.Say = &Say{}
	}
	options := make([]Option, 0, len(resources)+len(ex.Step.Say.Options))
	for _, resource := range resources {
		options = append(options, Option{Label: resource.Name, Value: resource.ID})
	}
	ex.Step.Say.Options = append(options, ex.Step.Say.Options...)
	return next(ex.Step), nil
}

// setResource attaches the resource the user picked (by id) to the open
// ticket, reading the catalog getResources left in the session variables.
func (a *Actions) setResource(_ context.Context, ex *Exchange) (Outcome, error) {
	session := ex.Session
	if session.Ticket == nil || ex.UserSay.Option == nil {
		return fallback(ex.Step), nil
	}
	id := optionID(ex.UserSay.Option.Value)
	if id <= 0 {
		return fallback(ex.Step), nil
	}
	for _, resource := range resourcesFromVariables(session.Variables["resources"]) {
		if resource.ID != id {
			continue
		}
		session.Ticket.Resources = append(session.Ticket.Resources, TicketResource{
			Item:    resource,
			Type:    stringArg(ex.Step.Args, "type"),
			Tickets: []string{},
		})
		if key := stringArg(ex.Step.Args, "resourceIdKey"); key != "" {
			session.SetVariable(key, resource.Name)
		}
		return next(ex.Step), nil
	}
	return fallback(ex.Step), nil
}

func ticketTypeArg(args map[string]any) TicketType {
	switch v := args["type"].(type) {
	case int:
		return TicketType(v)
	case float64:
		return TicketType(int(v))
	case string:
		if strings.EqualFold(v, "request") {
			return TypeRequest
		}
	}
	return TypeIncident
}

func optionID(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// resourcesFromVariables reads back what getResources stored. In-memory the
// value is still []Resource; after a trip through Mongo or JSON it comes back
// as []any of maps.
func resourcesFromVariables(value any) []Resource {
	switch v := value.(type) {
	case []Resource:
		return v
	case []any:
		resources := make([]Resource, 0, len(v))
		for _, item := range v {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			resource := Resource{Name: stringArg(fields, "name")}
			resource.ID = optionID(fields["id"])
			resources = append(resources, resource)
		}
		return resources
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
