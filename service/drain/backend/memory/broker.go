// Package memory is an in-process queue broker with peek-lock receiving,
// sessions and a dead-letter sub-queue. It backs the tests and the mem://
// endpoint of drainq.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dc0d/drainq/service/drain"
	"github.com/google/uuid"
)

var (
	ErrQueueNotFound   = errors.New("queue not found")
	ErrRequiresSession = errors.New("queue requires a session receiver")
	ErrNotLocked       = errors.New("message is not locked by this receiver")
	ErrReceiverClosed  = errors.New("receiver is closed")
	ErrBrokerClosed    = errors.New("broker is closed")
)

type (
	Message struct {
		ID        string
		SessionID string
		Body      []byte

		lockedBy *receiver
	}

	// Stats counts the calls made against a queue.
	Stats struct {
		SessionAccepts  int
		ReceiverCreates int
		Receives        int
		Acknowledged    int
	}

	QueueOption func(*queue)
)

// WithSessions makes the queue session-enabled: only session receivers can
// read from it and every message needs a session id.
func WithSessions() QueueOption {
	return func(q *queue) { q.requiresSession = true }
}

// WithAcknowledgeHook runs fn before every acknowledgement; a non-nil error
// fails the acknowledgement.
func WithAcknowledgeHook(fn func(msg *Message) error) QueueOption {
	return func(q *queue) { q.ackHook = fn }
}

type queue struct {
	name            string
	requiresSession bool
	ackHook         func(msg *Message) error

	active     []*Message
	deadLetter []*Message
	sessions   map[string]*receiver
	changed    chan struct{}
	stats      Stats
}

// Broker holds named queues. It implements drain.Backend.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*queue
	closed bool
}

var _ drain.Backend = (*Broker)(nil)

func NewBroker() *Broker {
	res := &Broker{
		queues: make(map[string]*queue),
	}

	return res
}

// CreateQueue adds an empty queue. Creating an existing queue resets its options
// but keeps its messages.
func (obj *Broker) CreateQueue(name string, opts ...QueueOption) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	q, ok := obj.queues[name]
	if !ok {
		q = &queue{
			name:     name,
			sessions: make(map[string]*receiver),
			changed:  make(chan struct{}),
		}
		obj.queues[name] = q
	}
	q.requiresSession = false
	q.ackHook = nil
	for _, opt := range opts {
		opt(q)
	}
}

// Send appends messages to the active queue. Missing ids are generated.
func (obj *Broker) Send(queueName string, msgs ...Message) error {
	return obj.enqueue(queueName, false, msgs)
}

// SendDeadLetter appends messages to the dead-letter sub-queue.
func (obj *Broker) SendDeadLetter(queueName string, msgs ...Message) error {
	return obj.enqueue(queueName, true, msgs)
}

func (obj *Broker) enqueue(queueName string, deadLetter bool, msgs []Message) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	q, err := obj.lookup(queueName)
	if err != nil {
		return err
	}

	for i := range msgs {
		msg := msgs[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if !deadLetter && q.requiresSession && msg.SessionID == "" {
			return fmt.Errorf("message %s: session id is required on %q", msg.ID, queueName)
		}
		msg.lockedBy = nil
		if deadLetter {
			q.deadLetter = append(q.deadLetter, &msg)
		} else {
			q.active = append(q.active, &msg)
		}
	}
	q.broadcast()

	return nil
}

// Stats returns the call counters of a queue.
func (obj *Broker) Stats(queueName string) Stats {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	q, ok := obj.queues[queueName]
	if !ok {
		return Stats{}
	}
	return q.stats
}

func (obj *Broker) GetCount(ctx context.Context, queueName string) (drain.Counts, error) {
	if err := ctx.Err(); err != nil {
		return drain.Counts{}, err
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()

	q, err := obj.lookup(queueName)
	if err != nil {
		return drain.Counts{}, err
	}

	return drain.Counts{
		Active:     int64(len(q.active)),
		DeadLetter: int64(len(q.deadLetter)),
	}, nil
}

func (obj *Broker) AcceptNextSession(ctx context.Context, queueName string, wait time.Duration) (drain.SessionReceiver, error) {
	obj.mu.Lock()
	q, err := obj.lookup(queueName)
	if err != nil {
		obj.mu.Unlock()
		return nil, err
	}
	q.stats.SessionAccepts++
	if !q.requiresSession {
		obj.mu.Unlock()
		return nil, fmt.Errorf("accept session on %q: %w", queueName, drain.ErrSessionsNotSupported)
	}
	obj.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		obj.mu.Lock()
		if obj.closed {
			obj.mu.Unlock()
			return nil, ErrBrokerClosed
		}

		if id, ok := q.nextSession(); ok {
			res := &receiver{broker: obj, queue: q, session: id, held: make(map[string]*Message)}
			q.sessions[id] = res
			obj.mu.Unlock()
			return res, nil
		}
		changed := q.changed
		obj.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("accept session on %q after %v: %w", queueName, wait, drain.ErrSessionTimeout)
		case <-changed:
		}
	}
}

func (obj *Broker) NewReceiver(ctx context.Context, queueName string, opts drain.ReceiverOptions) (drain.Receiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()

	q, err := obj.lookup(queueName)
	if err != nil {
		return nil, err
	}
	q.stats.ReceiverCreates++
	if q.requiresSession && !opts.DeadLetter {
		return nil, fmt.Errorf("receiver on %q: %w", queueName, ErrRequiresSession)
	}

	res := &receiver{
		broker:     obj,
		queue:      q,
		deadLetter: opts.DeadLetter,
		prefetch:   opts.Prefetch,
		held:       make(map[string]*Message),
	}
	return res, nil
}

func (obj *Broker) Close(ctx context.Context) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	obj.closed = true
	for _, q := range obj.queues {
		q.broadcast()
	}

	return nil
}

func (obj *Broker) lookup(queueName string) (*queue, error) {
	if obj.closed {
		return nil, ErrBrokerClosed
	}
	q, ok := obj.queues[queueName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrQueueNotFound, queueName)
	}
	return q, nil
}

// nextSession returns the first session that has an unlocked message and
// no receiver. Caller holds the broker lock.
func (obj *queue) nextSession() (string, bool) {
	for _, msg := range obj.active {
		if msg.lockedBy != nil {
			continue
		}
		if _, taken := obj.sessions[msg.SessionID]; taken {
			continue
		}
		return msg.SessionID, true
	}
	return "", false
}

func (obj *queue) broadcast() {
	close(obj.changed)
	obj.changed = make(chan struct{})
}

func (obj *queue) remove(msg *Message, deadLetter bool) {
	list := &obj.active
	if deadLetter {
		list = &obj.deadLetter
	}
	for i, m := range *list {
		if m == msg {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
