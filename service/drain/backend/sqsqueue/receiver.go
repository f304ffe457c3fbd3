package sqsqueue

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/dc0d/drainq/service/drain"
)

type receiver struct {
	api        API
	queueURL   string
	visibility int32
}

// ReceiveBatch long-polls once. SQS returns at most ten messages per call,
// so maxMessages is capped.
func (obj *receiver) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]drain.Message, error) {
	input := &sqs.ReceiveMessageInput{}

	input.MaxNumberOfMessages = int32(min(max(maxMessages, 1), maxBatch))
	input.WaitTimeSeconds = int32(min(math.Ceil(wait.Seconds()), maxWaitSeconds))
	input.VisibilityTimeout = obj.visibility
	input.QueueUrl = aws.String(obj.queueURL)

	output, err := obj.api.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, err
	}

	var result []drain.Message
	for _, msg := range output.Messages {
		result = append(result, msg)
	}

	return result, nil
}

func (obj *receiver) Acknowledge(ctx context.Context, m drain.Message) error {
	msg, ok := m.(types.Message)
	if !ok {
		return fmt.Errorf("unexpected message type %T", m)
	}

	input := &sqs.DeleteMessageInput{}
	input.QueueUrl = aws.String(obj.queueURL)
	input.ReceiptHandle = msg.ReceiptHandle

	if _, err := obj.api.DeleteMessage(ctx, input); err != nil {
		return fmt.Errorf("delete message %s: %w", aws.ToString(msg.MessageId), err)
	}

	return nil
}

// Close is a no-op: SQS receives are stateless and undeleted messages
// reappear when their visibility timeout ends.
func (obj *receiver) Close(ctx context.Context) error { return nil }
