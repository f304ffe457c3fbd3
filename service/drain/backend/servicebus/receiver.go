package servicebus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/dc0d/drainq/service/drain"
)

// messageReceiver is what *azservicebus.Receiver and
// *azservicebus.SessionReceiver have in common.
type messageReceiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	Close(ctx context.Context) error
}

type receiver struct {
	inner     messageReceiver
	sessionID string
}

func (obj *receiver) SessionID() string { return obj.sessionID }

// ReceiveBatch waits at most wait for the first message. A wait that runs
// out empty-handed is an empty batch, not an error.
func (obj *receiver) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]drain.Message, error) {
	receiveCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msgs, err := obj.inner.ReceiveMessages(receiveCtx, maxMessages, nil)
	if err != nil && !(ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}

	var result []drain.Message
	for _, msg := range msgs {
		result = append(result, msg)
	}

	return result, nil
}

func (obj *receiver) Acknowledge(ctx context.Context, m drain.Message) error {
	msg, ok := m.(*azservicebus.ReceivedMessage)
	if !ok {
		return fmt.Errorf("unexpected message type %T", m)
	}

	if err := obj.inner.CompleteMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("complete message %s: %w", msg.MessageID, err)
	}

	return nil
}

func (obj *receiver) Close(ctx context.Context) error {
	return obj.inner.Close(ctx)
}
