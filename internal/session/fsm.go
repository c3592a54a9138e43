// Package session holds the conversation state machine. Transition is a
// pure function of the current states and one inbound event; it returns the
// next states and the effects the caller must carry out.
package session

import "anonrelay/backend/internal/models"

// State is a sender's interaction phase.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingSubmission State = "awaiting_submission"
)

// Action is the payload of a reply-action: which sender and which log
// entry an operator reply addresses.
type Action struct {
	TargetID int64
	RefID    uint64
}

// OperatorState is the single shared reply slot. The zero value is Inactive.
type OperatorState struct {
	Target  Action
	Pending bool
}

// Inactive is the operator state with no pending reply.
var Inactive = OperatorState{}

// AwaitingReplyText returns the state waiting for reply content to a.
func AwaitingReplyText(a Action) OperatorState {
	return OperatorState{Target: a, Pending: true}
}

// Awaiting reports whether a reply context is pending.
func (o OperatorState) Awaiting() bool {
	return o.Pending
}

// Command is a recognized slash command.
type Command string

const (
	CommandStart            Command = "start"
	CommandCancel           Command = "cancel"
	CommandExportLog        Command = "adminlog"
	CommandClearLog         Command = "adminlogclear"
	CommandEnterMaintenance Command = "stopbot"
	CommandExitMaintenance  Command = "startbot"
)

// OperatorOnly reports whether only operators may run c.
func (c Command) OperatorOnly() bool {
	switch c {
	case CommandExportLog, CommandClearLog, CommandEnterMaintenance, CommandExitMaintenance:
		return true
	}
	return false
}

// MenuItem is a fixed keyboard label.
type MenuItem string

const (
	MenuNone    MenuItem = ""
	MenuCompose MenuItem = "compose"
	MenuStats   MenuItem = "stats"
	MenuHelp    MenuItem = "help"
	MenuCancel  MenuItem = "cancel"
)

// EventType discriminates Event.
type EventType int

const (
	EventCommand EventType = iota
	EventMenu
	EventContent
	EventAction
)

// Event is one classified inbound item. Menu events also carry the label
// text in Content so it can be relayed verbatim when it is not read as a
// menu choice.
type Event struct {
	Type    EventType
	Command Command
	Menu    MenuItem
	Content models.Content
	Action  Action
}

// EffectType names something the caller has to do after a transition.
type EffectType int

const (
	EffectMaintenanceNotice EffectType = iota
	EffectShowMenu
	EffectShowHelp
	EffectShowStats
	EffectPromptSubmission
	EffectSubmissionCancelled
	EffectSubmit
	EffectUnsupportedContent
	EffectPromptReply
	EffectSendReply
	EffectReplyCancelled
	EffectExportLog
	EffectClearLog
	EffectSetMaintenance
)

// Effect carries the data its type needs: Content for Submit and
// SendReply, Reply for SendReply, Maintenance for SetMaintenance.
type Effect struct {
	Type        EffectType
	Content     models.Content
	Reply       OperatorState
	Maintenance bool
}

// Input is everything Transition looks at.
type Input struct {
	Sender      State
	Operator    OperatorState
	IsOperator  bool
	Maintenance bool
	Event       Event
}

// Output is the next states plus effects, in execution order.
type Output struct {
	Sender   State
	Operator OperatorState
	Effects  []Effect
}

func (o *Output) emit(e Effect) {
	o.Effects = append(o.Effects, e)
}

func isCancel(ev Event) bool {
	return (ev.Type == EventCommand && ev.Command == CommandCancel) ||
		(ev.Type == EventMenu && ev.Menu == MenuCancel)
}

// Transition computes the next states for one event.
func Transition(in Input) Output {
	if in.Sender == "" {
		in.Sender = StateIdle
	}
	out := Output{Sender: in.Sender, Operator: in.Operator}
	ev := in.Event

	// Privileged input from anyone else is dropped without a trace so the
	// response never reveals which identities are operators.
	if ev.Type == EventCommand && ev.Command.OperatorOnly() {
		if !in.IsOperator {
			return out
		}
		switch ev.Command {
		case CommandExportLog:
			out.emit(Effect{Type: EffectExportLog})
		case CommandClearLog:
			out.emit(Effect{Type: EffectClearLog})
		case CommandEnterMaintenance:
			out.emit(Effect{Type: EffectSetMaintenance, Maintenance: true})
		case CommandExitMaintenance:
			out.emit(Effect{Type: EffectSetMaintenance, Maintenance: false})
		}
		return out
	}

	if ev.Type == EventAction {
		if !in.IsOperator {
			return out
		}
		out.Sender = StateIdle
		out.Operator = AwaitingReplyText(ev.Action)
		out.emit(Effect{Type: EffectPromptReply})
		return out
	}

	if in.Maintenance && !in.IsOperator {
		out.emit(Effect{Type: EffectMaintenanceNotice})
		return out
	}

	if ev.Type == EventCommand && ev.Command == CommandStart {
		out.Sender = StateIdle
		if in.IsOperator {
			out.Operator = Inactive
		}
		out.emit(Effect{Type: EffectShowMenu})
		return out
	}

	if in.IsOperator && in.Operator.Awaiting() {
		return operatorReply(in, out)
	}

	switch in.Sender {
	case StateAwaitingSubmission:
		switch {
		case isCancel(ev):
			out.Sender = StateIdle
			out.emit(Effect{Type: EffectSubmissionCancelled})
		case ev.Type == EventCommand:
			// Unknown commands are not content.
		case !ev.Content.Supported():
			out.emit(Effect{Type: EffectUnsupportedContent})
		default:
			out.Sender = StateIdle
			out.emit(Effect{Type: EffectSubmit, Content: ev.Content})
		}
	default:
		out.Sender = StateIdle
		switch {
		case ev.Type == EventCommand && ev.Command == CommandCancel:
			out.emit(Effect{Type: EffectSubmissionCancelled})
		case ev.Type == EventMenu && ev.Menu == MenuCompose:
			out.Sender = StateAwaitingSubmission
			out.emit(Effect{Type: EffectPromptSubmission})
		case ev.Type == EventMenu && ev.Menu == MenuStats:
			out.emit(Effect{Type: EffectShowStats})
		case ev.Type == EventMenu && ev.Menu == MenuHelp:
			out.emit(Effect{Type: EffectShowHelp})
		default:
			out.emit(Effect{Type: EffectShowMenu})
		}
	}
	return out
}

// operatorReply handles input while a reply context is pending: anything
// but cancel is the reply itself, even if it looks like a menu label.
func operatorReply(in Input, out Output) Output {
	ev := in.Event
	switch {
	case isCancel(ev):
		out.Operator = Inactive
		out.emit(Effect{Type: EffectReplyCancelled})
	case ev.Type == EventCommand:
		// Unknown commands are not reply content.
	case !ev.Content.Supported():
		out.emit(Effect{Type: EffectUnsupportedContent})
	default:
		out.Sender = StateIdle
		out.Operator = Inactive
		out.emit(Effect{Type: EffectSendReply, Content: ev.Content, Reply: in.Operator})
	}
	return out
}
