package drain

import (
	"context"
	"time"
)

type (
	// Target identifies the queue being drained.
	Target struct {
		ConnectionString string
		QueueName        string
		DeadLetter       bool
	}

	// Counts is a point-in-time snapshot of the messages left in a queue.
	Counts struct {
		Active     int64
		DeadLetter int64
	}

	// Message is whatever the backend hands out. It goes back to the
	// receiver that produced it for acknowledgement.
	Message = interface{}

	ReceiverOptions struct {
		DeadLetter bool
		Prefetch   int
	}
)

// Pick returns the count that matters for the target.
func (obj Counts) Pick(target Target) int64 {
	if target.DeadLetter {
		return obj.DeadLetter
	}
	return obj.Active
}

type (
	// CountQuery reports how many messages are left.
	CountQuery interface {
		GetCount(ctx context.Context, queueName string) (Counts, error)
	}

	// Receiver is a peek-lock receiver. Close must be called once the
	// receiver is no longer used; unacknowledged messages return to the queue.
	Receiver interface {
		// ReceiveBatch waits up to wait for at least one message and returns
		// up to maxMessages messages. An empty result means nothing arrived in time.
		ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error)
		Acknowledge(ctx context.Context, msg Message) error
		Close(ctx context.Context) error
	}

	SessionReceiver interface {
		Receiver
		SessionID() string
	}

	// Client opens receivers.
	//
	// AcceptNextSession reports ErrSessionsNotSupported when the queue does not
	// accept session receivers and ErrSessionTimeout when no session became
	// available within wait. Both may be wrapped.
	Client interface {
		AcceptNextSession(ctx context.Context, queueName string, wait time.Duration) (SessionReceiver, error)
		NewReceiver(ctx context.Context, queueName string, opts ReceiverOptions) (Receiver, error)
	}

	// Backend is what a queue adapter provides.
	Backend interface {
		Client
		CountQuery
		Close(ctx context.Context) error
	}
)
