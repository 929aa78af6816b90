package orch

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Orchestrator routes inbound events to room members and drives membership
// changes through the registry.
type Orchestrator struct {
	Registry *app.Registry
	Policy   app.Policy
	Metrics  *metrics.Relay

	// Now and NewID stamp relayed messages.
	Now   func() time.Time
	NewID func() string
}

func New(reg *app.Registry, policy app.Policy, m *metrics.Relay) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Policy:   policy,
		Metrics:  m,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// route describes one relayed event kind.
type route struct {
	required []string
	out      domain.EventKind
	// includeSender is false for kinds the sender should not see echoed.
	includeSender bool
	payload       func(o *Orchestrator, in domain.Inbound) any
}

func userIDPayload(_ *Orchestrator, in domain.Inbound) any { return in.UserID }

var routes = map[domain.EventKind]route{
	domain.EventSendMessage: {
		required:      []string{domain.FieldRoom, domain.FieldAuthor, domain.FieldText},
		out:           domain.EventNewMessage,
		includeSender: true,
		payload: func(o *Orchestrator, in domain.Inbound) any {
			return domain.Message{
				ID:        o.NewID(),
				Author:    in.Author,
				Text:      in.Text,
				Timestamp: o.Now().UnixMilli(),
			}
		},
	},
	domain.EventDeleteMessage: {
		required:      []string{domain.FieldRoom, domain.FieldMessageID},
		out:           domain.EventMessageDeleted,
		includeSender: true,
		payload:       func(_ *Orchestrator, in domain.Inbound) any { return in.MessageID },
	},
	domain.EventMuteUser: {
		required:      []string{domain.FieldRoom, domain.FieldUserID},
		out:           domain.EventUserMuted,
		includeSender: true,
		payload:       userIDPayload,
	},
	domain.EventRequestCollaboration: {
		required:      []string{domain.FieldRoom, domain.FieldUserID},
		out:           domain.EventCollaborationRequested,
		includeSender: true,
		payload:       userIDPayload,
	},
	domain.EventApproveCollaboration: {
		required:      []string{domain.FieldRoom, domain.FieldUserID},
		out:           domain.EventCollaborationApproved,
		includeSender: true,
		payload:       userIDPayload,
	},
	domain.EventEndCollaboration: {
		required:      []string{domain.FieldRoom, domain.FieldUserID},
		out:           domain.EventCollaborationEnded,
		includeSender: true,
		payload:       userIDPayload,
	},
}

// Dispatch handles one inbound event from sid. A returned error means the
// event was dropped; nothing is sent back to the sender.
func (o *Orchestrator) Dispatch(sid core.ConnID, in domain.Inbound) error {
	switch in.Kind {
	case domain.EventJoinStream:
		if err := o.require(in, domain.FieldRoom); err != nil {
			return err
		}
		o.Metrics.EventAccepted(string(in.Kind))
		o.Join(sid, in.Room)
		return nil
	case domain.EventLeaveStream:
		if err := o.require(in, domain.FieldRoom); err != nil {
			return err
		}
		o.Metrics.EventAccepted(string(in.Kind))
		o.Leave(sid, in.Room)
		return nil
	}

	rt, ok := routes[in.Kind]
	if !ok {
		o.Metrics.EventRejected("unknown_event")
		return fmt.Errorf("%w: %q", domain.ErrUnknownEvent, in.Kind)
	}
	if err := o.require(in, rt.required...); err != nil {
		return err
	}
	o.Metrics.EventAccepted(string(in.Kind))

	except := sid
	if rt.includeSender {
		except = ""
	}
	_, err := o.Publish(in.Room, except, rt.out, rt.payload(o, in))
	return err
}

func (o *Orchestrator) require(in domain.Inbound, fields ...string) error {
	for _, f := range fields {
		if !in.Has(f) {
			o.Metrics.EventRejected("missing_field")
			return fmt.Errorf("%w: %s in %s", domain.ErrMissingField, f, in.Kind)
		}
	}
	return nil
}

// RejectReason maps a dispatch or decode error to a metrics label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, domain.ErrMissingField):
		return "missing_field"
	case errors.Is(err, domain.ErrBadPayload):
		return "bad_payload"
	default:
		return "other"
	}
}

// Reject records an event dropped before it reached Dispatch.
func (o *Orchestrator) Reject(sid core.ConnID, err error) {
	o.Metrics.EventRejected(RejectReason(err))
	log.Warn().Str("module", "orch").Str("sid", string(sid)).Err(err).Msg("inbound event dropped")
}
