// Package relay carries sender submissions to the operator and operator
// replies back, driven by the session state machine.
package relay

import (
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/localization"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/session"
	"anonrelay/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Inbound is one classified update from the transport.
type Inbound struct {
	Participant models.Participant
	Event       session.Event
	// Source is the original message, used when content is copied.
	Source MessageRef
}

// Deps are the collaborators of a Service.
type Deps struct {
	Sessions  session.Store
	Ledger    *ledger.Ledger
	Gate      *Gate
	Transport Transport
	Texts     Texts
	Operators Operators
	// Language selects the texts of operator-facing headers and buttons.
	Language string
	Metrics  *Metrics
}

// Service handles inbound events. Handle is safe for concurrent use:
// events of one participant are serialized, and so is every event that
// touches the shared operator reply slot.
type Service struct {
	sessions  session.Store
	ledger    *ledger.Ledger
	gate      *Gate
	router    *Router
	transport Transport
	texts     Texts
	operators Operators
	metrics   *Metrics

	locks      sync.Map
	operatorMu sync.Mutex
}

// NewService wires a Service and its Router.
func NewService(d Deps) *Service {
	return &Service{
		sessions:  d.Sessions,
		ledger:    d.Ledger,
		gate:      d.Gate,
		router:    NewRouter(d.Transport, d.Ledger, d.Operators, d.Texts, d.Language, d.Metrics),
		transport: d.Transport,
		texts:     d.Texts,
		operators: d.Operators,
		metrics:   d.Metrics,
	}
}

func (s *Service) lock(participantID int64, operator bool) func() {
	v, _ := s.locks.LoadOrStore(participantID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	if operator {
		s.operatorMu.Lock()
	}
	return func() {
		if operator {
			s.operatorMu.Unlock()
		}
		mu.Unlock()
	}
}

func privileged(ev session.Event) bool {
	return ev.Type == session.EventAction ||
		(ev.Type == session.EventCommand && ev.Command.OperatorOnly())
}

// Handle runs one event through the state machine and carries out the
// resulting effects. Failures are reported to the participant with one
// localized notice and returned; operator-only input from anyone else is
// dropped silently and reported as ErrUnauthorized.
func (s *Service) Handle(ctx context.Context, in Inbound) error {
	p := in.Participant
	isOperator := s.operators.Has(p.ID)
	unlock := s.lock(p.ID, isOperator)
	defer unlock()

	if !isOperator && privileged(in.Event) {
		return ErrUnauthorized
	}

	sender, err := s.sessions.Get(ctx, p.ID)
	if err != nil {
		return s.fail(ctx, p, newError(CodeInternal, "load session", err))
	}
	operator := session.Inactive
	if isOperator {
		if operator, err = s.sessions.Operator(ctx); err != nil {
			return s.fail(ctx, p, newError(CodeInternal, "load operator state", err))
		}
	}

	out := session.Transition(session.Input{
		Sender:      sender,
		Operator:    operator,
		IsOperator:  isOperator,
		Maintenance: s.gate.IsActive(),
		Event:       in.Event,
	})

	if out.Sender != sender {
		if err := s.sessions.Set(ctx, p.ID, out.Sender); err != nil {
			return s.fail(ctx, p, newError(CodeInternal, "save session", err))
		}
	}
	if isOperator && out.Operator != operator {
		if err := s.sessions.SetOperator(ctx, out.Operator); err != nil {
			return s.fail(ctx, p, newError(CodeInternal, "save operator state", err))
		}
	}

	for _, eff := range out.Effects {
		if err := s.apply(ctx, in, eff); err != nil {
			return s.fail(ctx, p, err)
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, in Inbound, eff session.Effect) error {
	p := in.Participant
	switch eff.Type {
	case session.EffectMaintenanceNotice:
		opts := SendOptions{Markdown: true, RemoveKeyboard: true}
		if err := s.transport.SendText(ctx, p.ID, s.text(p, localization.KeyMaintenance), opts); err != nil {
			s.metrics.deliveryFailure("notice")
			return newError(CodeDeliveryFailed, "send maintenance notice", err)
		}
		return nil
	case session.EffectShowMenu:
		return s.say(ctx, p, localization.KeyWelcome, s.mainKeyboard(p))
	case session.EffectShowHelp:
		return s.say(ctx, p, localization.KeyHelp, s.mainKeyboard(p))
	case session.EffectShowStats:
		count, err := s.ledger.Usage(ctx, p.ID)
		if err != nil {
			return newError(CodeInternal, "read usage", err)
		}
		return s.send(ctx, p, fmt.Sprintf(s.text(p, localization.KeyStats), count), s.mainKeyboard(p))
	case session.EffectPromptSubmission:
		return s.say(ctx, p, localization.KeyComposePrompt, [][]string{{s.text(p, localization.KeyButtonCancel)}})
	case session.EffectSubmissionCancelled:
		return s.say(ctx, p, localization.KeySubmissionCancelled, s.mainKeyboard(p))
	case session.EffectSubmit:
		return s.submit(ctx, in, eff.Content)
	case session.EffectUnsupportedContent:
		return s.say(ctx, p, localization.KeyUnsupported, nil)
	case session.EffectPromptReply:
		return s.say(ctx, p, localization.KeyReplyPrompt, [][]string{{s.text(p, localization.KeyButtonCancelReply)}})
	case session.EffectSendReply:
		if err := s.router.RelayReply(ctx, p.ID, eff.Reply, eff.Content, in.Source); err != nil {
			return err
		}
		return s.say(ctx, p, localization.KeyReplySent, s.mainKeyboard(p))
	case session.EffectReplyCancelled:
		return s.say(ctx, p, localization.KeyReplyCancelled, s.mainKeyboard(p))
	case session.EffectExportLog:
		return s.exportLog(ctx, p)
	case session.EffectClearLog:
		if err := s.ledger.Clear(ctx); err != nil {
			return newError(CodeInternal, "clear log", err)
		}
		log.Printf("INFO: Log cleared by operator %d", p.ID)
		return s.say(ctx, p, localization.KeyLogCleared, nil)
	case session.EffectSetMaintenance:
		if err := s.gate.SetActive(ctx, eff.Maintenance); err != nil {
			return newError(CodeInternal, "set maintenance", err)
		}
		if eff.Maintenance {
			return s.say(ctx, p, localization.KeyMaintenanceOn, nil)
		}
		return s.say(ctx, p, localization.KeyMaintenanceOff, nil)
	}
	return nil
}

// submit logs and counts first; relay failures never undo that.
func (s *Service) submit(ctx context.Context, in Inbound, c models.Content) error {
	p := in.Participant
	entry, count, err := s.ledger.Record(ctx, p, c)
	if err != nil {
		return newError(CodeInternal, "record submission", err)
	}
	s.metrics.submission(c.Kind)
	log.Printf("INFO: Logged submission #%d (%s), sender total %d", entry.ID, entry.Kind, count)

	if err := s.router.RelaySubmission(ctx, entry, in.Source); err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			return err
		}
		log.Printf("WARN: No operator configured, submission #%d is only logged", entry.ID)
	}
	return s.say(ctx, p, localization.KeySubmissionSent, s.mainKeyboard(p))
}

func (s *Service) exportLog(ctx context.Context, p models.Participant) error {
	data, err := s.ledger.Export(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return s.say(ctx, p, localization.KeyLogEmpty, nil)
	}
	if err != nil {
		return newError(CodeInternal, "export log", err)
	}
	opts := SendOptions{Markdown: true, Caption: s.text(p, localization.KeyLogCaption)}
	if err := s.transport.SendDocument(ctx, p.ID, ledger.ExportFileName, data, opts); err != nil {
		s.metrics.deliveryFailure("export")
		return newError(CodeDeliveryFailed, "send log export", err)
	}
	return nil
}

// fail sends the notice matching err's code and returns err.
func (s *Service) fail(ctx context.Context, p models.Participant, err error) error {
	key := localization.KeyInternalError
	switch CodeOf(err) {
	case CodeDeliveryFailed:
		key = localization.KeyDeliveryFailed
	case CodeMissingTarget:
		key = localization.KeyMissingTarget
	case CodeEmptyLog:
		key = localization.KeyLogEmpty
	}
	log.Printf("ERROR: Handling update from %d failed: %v", p.ID, err)

	opts := SendOptions{Markdown: true, Keyboard: s.mainKeyboard(p)}
	if serr := s.transport.SendText(ctx, p.ID, s.text(p, key), opts); serr != nil {
		log.Printf("ERROR: Failed to send failure notice to %d: %v", p.ID, serr)
	}
	return err
}

func (s *Service) text(p models.Participant, key string) string {
	return s.texts.GetString(p.LanguageCode, key)
}

func (s *Service) mainKeyboard(p models.Participant) [][]string {
	return [][]string{
		{s.text(p, localization.KeyButtonCompose)},
		{s.text(p, localization.KeyButtonStats), s.text(p, localization.KeyButtonHelp)},
	}
}

func (s *Service) say(ctx context.Context, p models.Participant, key string, keyboard [][]string) error {
	return s.send(ctx, p, s.text(p, key), keyboard)
}

func (s *Service) send(ctx context.Context, p models.Participant, text string, keyboard [][]string) error {
	opts := SendOptions{Markdown: true, Keyboard: keyboard}
	if err := s.transport.SendText(ctx, p.ID, text, opts); err != nil {
		s.metrics.deliveryFailure("notice")
		return newError(CodeDeliveryFailed, "send notice", err)
	}
	return nil
}
