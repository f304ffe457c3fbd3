package drain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
)

const (
	receiverKindSession    = "session"
	receiverKindPlain      = "plain"
	receiverKindDeadLetter = "dead_letter"
)

// Negotiator hands out one receiver per outer iteration. The first call of a
// run probes whether the queue accepts sessions; the result is written to the
// caller's SessionMode and reused by every later call.
type Negotiator struct {
	client      Client
	sessionWait time.Duration
	prefetch    int
	logger      pslog.Logger
	metrics     *Metrics
}

func NewNegotiator(client Client, sessionWait time.Duration, prefetch int, logger pslog.Logger, metrics *Metrics) *Negotiator {
	if client == nil {
		panic("Client must be provided")
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	res := &Negotiator{
		client:      client,
		sessionWait: sessionWait,
		prefetch:    prefetch,
		logger:      logger,
		metrics:     metrics,
	}

	return res
}

// Acquire returns a receiver for target, updating mode on the first probe.
// It returns ErrExhausted when no session became available in time.
func (obj *Negotiator) Acquire(ctx context.Context, target Target, mode *SessionMode) (Receiver, error) {
	if target.DeadLetter {
		return obj.plain(ctx, target, receiverKindDeadLetter)
	}

	if *mode != SessionModeIncapable {
		obj.logger.Debug("drain.session.accepting", "queue", target.QueueName, "mode", mode.String())
		rcv, err := obj.client.AcceptNextSession(ctx, target.QueueName, obj.sessionWait)
		switch {
		case err == nil:
			*mode = SessionModeCapable
			obj.metrics.observeReceiver(target.QueueName, receiverKindSession)
			obj.logger.Info("drain.session.accepted", "queue", target.QueueName, "session", rcv.SessionID())
			return rcv, nil
		case errors.Is(err, ErrSessionTimeout):
			obj.logger.Info("drain.exhausted", "queue", target.QueueName, "reason", "no session available")
			return nil, fmt.Errorf("%w: %w", ErrExhausted, err)
		case errors.Is(err, ErrSessionsNotSupported):
			// a settled mode that is not Incapable means sessions were accepted before
			if mode.Settled() {
				return nil, fmt.Errorf("%w: %w", ErrSessionModeChanged, err)
			}
			*mode = SessionModeIncapable
			obj.logger.Info("drain.session.unsupported", "queue", target.QueueName)
		default:
			return nil, fmt.Errorf("accept session on %q: %w", target.QueueName, err)
		}
	}

	return obj.plain(ctx, target, receiverKindPlain)
}

func (obj *Negotiator) plain(ctx context.Context, target Target, kind string) (Receiver, error) {
	rcv, err := obj.client.NewReceiver(ctx, target.QueueName, ReceiverOptions{
		DeadLetter: target.DeadLetter,
		Prefetch:   obj.prefetch,
	})
	if err != nil {
		return nil, fmt.Errorf("create receiver on %q: %w", target.QueueName, err)
	}

	obj.metrics.observeReceiver(target.QueueName, kind)
	obj.logger.Info("drain.receiver.plain", "queue", target.QueueName, "dead_letter", target.DeadLetter)

	return rcv, nil
}
