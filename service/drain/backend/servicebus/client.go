// Package servicebus drains Azure Service Bus queues, with or without
// sessions, and their dead-letter sub-queues.
package servicebus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"
	"github.com/Azure/go-amqp"
	"github.com/dc0d/drainq/service/drain"
)

const ApplicationID = "DrainQ"

// retry policy of the messaging client; the drain loop itself never retries.
var defaultRetryOptions = azservicebus.RetryOptions{
	MaxRetries:    1,
	RetryDelay:    100 * time.Millisecond,
	MaxRetryDelay: 5 * time.Second,
}

type (
	messagingClient interface {
		AcceptNextSessionForQueue(ctx context.Context, queueName string, options *azservicebus.SessionReceiverOptions) (*azservicebus.SessionReceiver, error)
		NewReceiverForQueue(queueName string, options *azservicebus.ReceiverOptions) (*azservicebus.Receiver, error)
		Close(ctx context.Context) error
	}

	adminClient interface {
		GetQueue(ctx context.Context, queueName string, options *admin.GetQueueOptions) (*admin.GetQueueResponse, error)
		GetQueueRuntimeProperties(ctx context.Context, queueName string, options *admin.GetQueueRuntimePropertiesOptions) (*admin.GetQueueRuntimePropertiesResponse, error)
	}
)

// Client implements drain.Backend over a Service Bus namespace.
type Client struct {
	client messagingClient
	admin  adminClient
}

var _ drain.Backend = (*Client)(nil)

// IsConnectionString reports whether s looks like a Service Bus connection string.
func IsConnectionString(s string) bool {
	return strings.Contains(strings.ToLower(s), "endpoint=sb://")
}

func New(connectionString string) (*Client, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, &azservicebus.ClientOptions{
		ApplicationID: ApplicationID,
		RetryOptions:  defaultRetryOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("create service bus client: %w", err)
	}

	adminClient, err := admin.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("create service bus admin client: %w", err)
	}

	res := &Client{
		client: client,
		admin:  adminClient,
	}

	return res, nil
}

func (obj *Client) GetCount(ctx context.Context, queueName string) (drain.Counts, error) {
	resp, err := obj.admin.GetQueueRuntimeProperties(ctx, queueName, nil)
	if err != nil {
		return drain.Counts{}, fmt.Errorf("get runtime properties of %q: %w", queueName, err)
	}
	if resp == nil {
		return drain.Counts{}, fmt.Errorf("queue %q not found", queueName)
	}

	return drain.Counts{
		Active:     int64(resp.ActiveMessageCount),
		DeadLetter: int64(resp.DeadLetterMessageCount),
	}, nil
}

func (obj *Client) AcceptNextSession(ctx context.Context, queueName string, wait time.Duration) (drain.SessionReceiver, error) {
	acceptCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	rcv, err := obj.client.AcceptNextSessionForQueue(acceptCtx, queueName, &azservicebus.SessionReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, obj.classifyAcceptError(ctx, queueName, err)
	}

	res := &receiver{
		inner:     rcv,
		sessionID: rcv.SessionID(),
	}

	return res, nil
}

func (obj *Client) NewReceiver(ctx context.Context, queueName string, opts drain.ReceiverOptions) (drain.Receiver, error) {
	rcvOpts := &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	}
	if opts.DeadLetter {
		rcvOpts.SubQueue = azservicebus.SubQueueDeadLetter
	}

	rcv, err := obj.client.NewReceiverForQueue(queueName, rcvOpts)
	if err != nil {
		return nil, err
	}

	return &receiver{inner: rcv}, nil
}

func (obj *Client) Close(ctx context.Context) error {
	return obj.client.Close(ctx)
}

// classifyAcceptError maps the failures of a session accept onto
// drain.ErrSessionTimeout and drain.ErrSessionsNotSupported. When the error
// itself is inconclusive the queue properties decide.
func (obj *Client) classifyAcceptError(ctx context.Context, queueName string, err error) error {
	if isTimeout(ctx, err) {
		return fmt.Errorf("%w: %w", drain.ErrSessionTimeout, err)
	}
	if isSessionRefusal(err) {
		return fmt.Errorf("%w: %w", drain.ErrSessionsNotSupported, err)
	}

	if ctx.Err() != nil {
		return err
	}
	resp, qerr := obj.admin.GetQueue(ctx, queueName, nil)
	if qerr != nil || resp == nil || resp.RequiresSession == nil {
		return err
	}
	if !*resp.RequiresSession {
		return fmt.Errorf("%w: %w", drain.ErrSessionsNotSupported, err)
	}

	return err
}

// isTimeout reports whether err is the service or the bounded wait giving up
// while the caller's context is still alive.
func isTimeout(ctx context.Context, err error) bool {
	var sbErr *azservicebus.Error
	if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeTimeout {
		return true
	}
	return ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

func isSessionRefusal(err error) bool {
	var amqpErr *amqp.Error
	if !errors.As(err, &amqpErr) {
		return false
	}
	switch amqpErr.Condition {
	case amqp.ErrCondNotAllowed, amqp.ErrCondNotImplemented:
		return true
	}
	return false
}
