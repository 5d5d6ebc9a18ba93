package bot

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// Sentinel replaces any reference that does not resolve to a scalar value.
// The resolver never fails outward: a bad path yields the sentinel and a log
// line, and the conversation keeps going.
const Sentinel = "Hu Ho"

var placeholderPattern = regexp.MustCompile(`\$\{([\w.]*)\}`)

// Substitute resolves the first ${path} reference in message against the
// session. Only the first occurrence is substituted; later placeholders are
// left verbatim for the next authoring pass to catch.
func Substitute(log *slog.Logger, session *Session, message string) string {
	match := placeholderPattern.FindStringSubmatch(message)
	if match == nil {
		return message
	}
	return strings.Replace(message, match[0], Resolve(log, session, match[1]), 1)
}

// Resolve returns the string form of the session value addressed by a dotted
// path. The addressable surface is a closed set: flow, nextStep.*, ticket.*
// and the open variables.* subtree. ticket.uid gets bespoke formatting.
func Resolve(log *slog.Logger, session *Session, path string) string {
	if path == "ticket.uid" {
		return formatTicketUID(log, session)
	}

	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "flow":
		if rest != "" {
			return miss(log, path)
		}
		return session.Flow
	case "nextStep":
		switch rest {
		case "flow":
			return session.NextStep.Flow
		case "stepId":
			return strconv.Itoa(session.NextStep.StepID)
		}
		return miss(log, path)
	case "ticket":
		return resolveTicket(log, session, path, rest)
	case "variables":
		return resolveVariable(log, session, path, rest)
	}
	return miss(log, path)
}

func resolveTicket(log *slog.Logger, session *Session, path, field string) string {
	if session.Ticket == nil {
		return miss(log, path)
	}
	t := session.Ticket
	switch field {
	case "name":
		return t.Name
	case "content":
		return t.Content
	case "category":
		return t.Category
	case "computerName":
		return t.ComputerName
	case "status":
		return strconv.Itoa(int(t.Status))
	case "type":
		return strconv.Itoa(int(t.Type))
	}
	return miss(log, path)
}

func resolveVariable(log *slog.Logger, session *Session, path, varPath string) string {
	if varPath == "" || session.Variables == nil {
		return miss(log, path)
	}
	value := gabs.Wrap(session.Variables).Path(varPath)
	if value == nil {
		return miss(log, path)
	}
	switch v := value.Data().(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return miss(log, path)
	default:
		// Objects and arrays have no sensible single-string form.
		return miss(log, path)
	}
}

// formatTicketUID renders "[<prefix>] <TYPE> <number>" from a uid shaped like
// "GL1-123", dropping the type segment when the ticket has no known type.
func formatTicketUID(log *slog.Logger, session *Session) string {
	if session.Ticket == nil {
		return miss(log, "ticket.uid")
	}
	prefix, number, found := strings.Cut(session.Ticket.UID, "-")
	if !found {
		return miss(log, "ticket.uid")
	}
	if label := session.Ticket.Type.Label(); label != "" {
		return fmt.Sprintf("[%s] %s %s", prefix, label, number)
	}
	return fmt.Sprintf("[%s] %s", prefix, number)
}

func miss(log *slog.Logger, path string) string {
	if log != nil {
		log.Error("cannot resolve session reference", "source", "resolve", "path", path)
	}
	return Sentinel
}
