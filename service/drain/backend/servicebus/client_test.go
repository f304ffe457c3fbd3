package servicebus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"
	"github.com/Azure/go-amqp"
	"github.com/dc0d/drainq/service/drain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessaging struct {
	acceptFunc   func(ctx context.Context) error
	receiverOpts []*azservicebus.ReceiverOptions
	closed       int
}

func (obj *fakeMessaging) AcceptNextSessionForQueue(ctx context.Context, queueName string, options *azservicebus.SessionReceiverOptions) (*azservicebus.SessionReceiver, error) {
	return nil, obj.acceptFunc(ctx)
}

func (obj *fakeMessaging) NewReceiverForQueue(queueName string, options *azservicebus.ReceiverOptions) (*azservicebus.Receiver, error) {
	obj.receiverOpts = append(obj.receiverOpts, options)
	return nil, errors.New("no link in tests")
}

func (obj *fakeMessaging) Close(ctx context.Context) error {
	obj.closed++
	return nil
}

type fakeAdmin struct {
	requiresSession *bool
	runtime         *admin.GetQueueRuntimePropertiesResponse
	err             error
	getQueueCalls   int
}

func (obj *fakeAdmin) GetQueue(ctx context.Context, queueName string, options *admin.GetQueueOptions) (*admin.GetQueueResponse, error) {
	obj.getQueueCalls++
	if obj.err != nil {
		return nil, obj.err
	}
	res := &admin.GetQueueResponse{}
	res.RequiresSession = obj.requiresSession
	return res, nil
}

func (obj *fakeAdmin) GetQueueRuntimeProperties(ctx context.Context, queueName string, options *admin.GetQueueRuntimePropertiesOptions) (*admin.GetQueueRuntimePropertiesResponse, error) {
	return obj.runtime, obj.err
}

func boolPtr(v bool) *bool { return &v }

func Test_IsConnectionString(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConnectionString("Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=k;SharedAccessKey=s"))
	assert.True(t, IsConnectionString("endpoint=SB://ns.servicebus.windows.net/"))
	assert.False(t, IsConnectionString("sqs://eu-west-1"))
}

func Test_Client_should_count_active_and_dead_letter_messages(t *testing.T) {
	t.Parallel()

	runtime := &admin.GetQueueRuntimePropertiesResponse{}
	runtime.ActiveMessageCount = 2500
	runtime.DeadLetterMessageCount = 10

	sut := &Client{client: &fakeMessaging{}, admin: &fakeAdmin{runtime: runtime}}
	counts, err := sut.GetCount(context.Background(), "orders")

	require.NoError(t, err)
	assert.Equal(t, drain.Counts{Active: 2500, DeadLetter: 10}, counts)
}

func Test_Client_should_fail_to_count_a_missing_queue(t *testing.T) {
	t.Parallel()

	sut := &Client{client: &fakeMessaging{}, admin: &fakeAdmin{}}
	_, err := sut.GetCount(context.Background(), "orders")

	assert.Error(t, err)
}

func Test_Client_should_report_a_session_timeout_when_the_wait_runs_out(t *testing.T) {
	t.Parallel()

	messaging := &fakeMessaging{acceptFunc: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	adm := &fakeAdmin{}
	sut := &Client{client: messaging, admin: adm}

	_, err := sut.AcceptNextSession(context.Background(), "orders", time.Millisecond*10)

	assert.ErrorIs(t, err, drain.ErrSessionTimeout)
	assert.Zero(t, adm.getQueueCalls)
}

func Test_Client_should_not_mistake_cancellation_for_a_timeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	messaging := &fakeMessaging{acceptFunc: func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}
	sut := &Client{client: messaging, admin: &fakeAdmin{}}

	_, err := sut.AcceptNextSession(ctx, "orders", time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, drain.ErrSessionTimeout)
}

func Test_Client_should_report_sessions_not_supported_on_amqp_refusal(t *testing.T) {
	t.Parallel()

	refusal := &amqp.Error{Condition: amqp.ErrCondNotAllowed, Description: "session receivers are not supported on this entity"}
	messaging := &fakeMessaging{acceptFunc: func(context.Context) error { return refusal }}
	sut := &Client{client: messaging, admin: &fakeAdmin{}}

	_, err := sut.AcceptNextSession(context.Background(), "orders", time.Second)

	assert.ErrorIs(t, err, drain.ErrSessionsNotSupported)
	assert.ErrorIs(t, err, refusal)
}

func Test_Client_should_ask_the_queue_properties_when_the_error_is_inconclusive(t *testing.T) {
	t.Parallel()

	cause := errors.New("link attach failed")
	messaging := &fakeMessaging{acceptFunc: func(context.Context) error { return cause }}

	t.Run(`queue without sessions`, func(t *testing.T) {
		sut := &Client{client: messaging, admin: &fakeAdmin{requiresSession: boolPtr(false)}}
		_, err := sut.AcceptNextSession(context.Background(), "orders", time.Second)
		assert.ErrorIs(t, err, drain.ErrSessionsNotSupported)
	})

	t.Run(`queue with sessions`, func(t *testing.T) {
		sut := &Client{client: messaging, admin: &fakeAdmin{requiresSession: boolPtr(true)}}
		_, err := sut.AcceptNextSession(context.Background(), "orders", time.Second)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, drain.ErrSessionsNotSupported)
	})

	t.Run(`admin failure keeps the original error`, func(t *testing.T) {
		sut := &Client{client: messaging, admin: &fakeAdmin{err: errors.New("forbidden")}}
		_, err := sut.AcceptNextSession(context.Background(), "orders", time.Second)
		assert.Equal(t, cause, err)
	})
}

func Test_Client_should_open_the_dead_letter_sub_queue(t *testing.T) {
	t.Parallel()

	messaging := &fakeMessaging{}
	sut := &Client{client: messaging, admin: &fakeAdmin{}}

	_, err := sut.NewReceiver(context.Background(), "orders", drain.ReceiverOptions{DeadLetter: true})
	assert.Error(t, err)
	_, err = sut.NewReceiver(context.Background(), "orders", drain.ReceiverOptions{})
	assert.Error(t, err)

	require.Len(t, messaging.receiverOpts, 2)
	assert.Equal(t, azservicebus.SubQueueDeadLetter, messaging.receiverOpts[0].SubQueue)
	assert.Equal(t, azservicebus.ReceiveModePeekLock, messaging.receiverOpts[0].ReceiveMode)
	assert.Zero(t, messaging.receiverOpts[1].SubQueue)

	require.NoError(t, sut.Close(context.Background()))
	assert.Equal(t, 1, messaging.closed)
}
