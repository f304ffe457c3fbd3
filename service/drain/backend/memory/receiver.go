package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dc0d/drainq/service/drain"
)

// receiver locks the messages it hands out until they are acknowledged or
// the receiver is closed. A session receiver also holds its session.
type receiver struct {
	broker     *Broker
	queue      *queue
	session    string
	deadLetter bool
	// prefetch caps the messages locked per receive; zero means no cap.
	prefetch int
	held     map[string]*Message
	closed   bool
}

func (obj *receiver) SessionID() string { return obj.session }

func (obj *receiver) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]drain.Message, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		obj.broker.mu.Lock()
		if obj.closed {
			obj.broker.mu.Unlock()
			return nil, ErrReceiverClosed
		}
		if obj.broker.closed {
			obj.broker.mu.Unlock()
			return nil, ErrBrokerClosed
		}
		obj.queue.stats.Receives++

		batch := obj.lockAvailable(maxMessages)
		if len(batch) > 0 {
			obj.broker.mu.Unlock()
			return batch, nil
		}
		changed := obj.queue.changed
		obj.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-changed:
		}
	}
}

func (obj *receiver) lockAvailable(maxMessages int) []drain.Message {
	list := obj.queue.active
	if obj.deadLetter {
		list = obj.queue.deadLetter
	}

	if obj.prefetch > 0 {
		maxMessages = min(maxMessages, obj.prefetch)
	}

	var res []drain.Message
	for _, msg := range list {
		if len(res) >= maxMessages {
			break
		}
		if msg.lockedBy != nil {
			continue
		}
		if obj.session != "" && msg.SessionID != obj.session {
			continue
		}
		msg.lockedBy = obj
		obj.held[msg.ID] = msg
		res = append(res, msg)
	}

	return res
}

func (obj *receiver) Acknowledge(ctx context.Context, m drain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, ok := m.(*Message)
	if !ok {
		return fmt.Errorf("unexpected message type %T", m)
	}

	obj.broker.mu.Lock()
	hook := obj.queue.ackHook
	obj.broker.mu.Unlock()
	if hook != nil {
		if err := hook(msg); err != nil {
			return err
		}
	}

	obj.broker.mu.Lock()
	defer obj.broker.mu.Unlock()

	if obj.closed {
		return ErrReceiverClosed
	}
	if msg.lockedBy != obj {
		return fmt.Errorf("message %s: %w", msg.ID, ErrNotLocked)
	}

	obj.queue.remove(msg, obj.deadLetter)
	delete(obj.held, msg.ID)
	msg.lockedBy = nil
	obj.queue.stats.Acknowledged++

	return nil
}

// Close unlocks every message still held and releases the session.
func (obj *receiver) Close(ctx context.Context) error {
	obj.broker.mu.Lock()
	defer obj.broker.mu.Unlock()

	if obj.closed {
		return nil
	}
	obj.closed = true

	for id, msg := range obj.held {
		msg.lockedBy = nil
		delete(obj.held, id)
	}
	if obj.session != "" {
		delete(obj.queue.sessions, obj.session)
	}
	obj.queue.broadcast()

	return nil
}
