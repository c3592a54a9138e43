package relay

import (
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/localization"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/session"
	"context"
	"log"
	"strings"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// escapeMarkdown makes user text safe inside a Markdown message.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Router shapes outbound payloads between senders and the operator.
// Nothing it sends to the operator identifies the sender.
type Router struct {
	transport Transport
	ledger    *ledger.Ledger
	operators Operators
	texts     Texts
	lang      string
	metrics   *Metrics
}

// NewRouter creates a Router. lang selects the texts of headers and
// buttons it adds.
func NewRouter(t Transport, l *ledger.Ledger, ops Operators, texts Texts, lang string, m *Metrics) *Router {
	return &Router{
		transport: t,
		ledger:    l,
		operators: ops,
		texts:     texts,
		lang:      lang,
		metrics:   m,
	}
}

// RelaySubmission delivers a logged submission to the primary operator with
// a reply-action pointing back at entry. src is the sender's original
// message, copied for media kinds.
func (r *Router) RelaySubmission(ctx context.Context, entry models.LogEntry, src MessageRef) error {
	operatorID, ok := r.operators.Primary()
	if !ok {
		return ErrNotConfigured
	}

	header := r.texts.GetString(r.lang, localization.KeySubmissionHeader)
	button := &ActionButton{
		Label: r.texts.GetString(r.lang, localization.KeyButtonReply),
		Data:  EncodeAction(session.Action{TargetID: entry.Participant.ID, RefID: entry.ID}),
	}

	if entry.Kind == models.KindText {
		text := header + "\n\n" + escapeMarkdown(entry.Content)
		if err := r.transport.SendText(ctx, operatorID, text, SendOptions{Markdown: true, Action: button}); err != nil {
			r.metrics.deliveryFailure("submission")
			return newError(CodeDeliveryFailed, "send submission", err)
		}
		return nil
	}

	if err := r.transport.SendText(ctx, operatorID, header, SendOptions{Markdown: true}); err != nil {
		r.metrics.deliveryFailure("submission")
		return newError(CodeDeliveryFailed, "send submission header", err)
	}
	if err := r.transport.SendCopy(ctx, operatorID, src, SendOptions{Action: button}); err != nil {
		r.metrics.deliveryFailure("submission")
		return newError(CodeDeliveryFailed, "copy submission", err)
	}
	return nil
}

// RelayReply delivers operator content to the sender st points at and
// records it. No record is written when delivery fails.
func (r *Router) RelayReply(ctx context.Context, operatorID int64, st session.OperatorState, c models.Content, src MessageRef) error {
	if !st.Awaiting() {
		return ErrMissingTarget
	}
	target := st.Target.TargetID
	header := r.texts.GetString(r.lang, localization.KeyReplyHeader)

	var err error
	switch {
	case c.Kind == models.KindText:
		err = r.transport.SendText(ctx, target, header+"\n\n"+escapeMarkdown(c.Text), SendOptions{Markdown: true})
	case c.Caption != "":
		err = r.transport.SendCopy(ctx, target, src, SendOptions{
			Markdown: true,
			Caption:  header + "\n\n" + escapeMarkdown(c.Caption),
		})
	default:
		err = r.transport.SendText(ctx, target, header, SendOptions{Markdown: true})
		if err == nil {
			err = r.transport.SendCopy(ctx, target, src, SendOptions{})
		}
	}
	if err != nil {
		r.metrics.deliveryFailure("reply")
		return newError(CodeDeliveryFailed, "send reply", err)
	}
	r.metrics.reply()

	rec := models.AdminReplyRecord{
		InReplyTo:           st.Target.RefID,
		TargetParticipantID: target,
		OperatorID:          operatorID,
		Content:             c.AuditText(),
	}
	// The reply is already out; a failed audit write is logged only.
	if err := r.ledger.AppendReply(ctx, &rec); err != nil {
		log.Printf("ERROR: Reply to entry #%d delivered but not recorded: %v", st.Target.RefID, err)
		return nil
	}
	log.Printf("INFO: Operator reply to entry #%d delivered", st.Target.RefID)
	return nil
}
