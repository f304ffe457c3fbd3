// Package sqsqueue drains Amazon SQS queues. SQS has no session receivers,
// so every session probe reports drain.ErrSessionsNotSupported; the
// dead-letter queue is the target of the source queue's redrive policy.
package sqsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/dc0d/drainq/service/drain"
)

const (
	Scheme = "sqs"

	// limits of the ReceiveMessage API
	maxBatch       = 10
	maxWaitSeconds = 20

	defaultVisibilityTimeout = 60
)

var ErrNoDeadLetterQueue = errors.New("queue has no redrive policy")

// API is the part of *sqs.Client used here.
type API interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type Options struct {
	Region   string
	Profile  string
	Endpoint string
	// VisibilityTimeout is how long, in seconds, a received message stays
	// hidden from other receivers.
	VisibilityTimeout int32
}

// ParseURL reads options from an endpoint such as
// sqs://?region=eu-west-1&profile=dev&endpoint=http://localhost:4566&visibility=60.
func ParseURL(raw string) (Options, error) {
	var res Options

	u, err := url.Parse(raw)
	if err != nil {
		return res, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return res, fmt.Errorf("unexpected scheme %q, want %q", u.Scheme, Scheme)
	}

	q := u.Query()
	res.Region = q.Get("region")
	if res.Region == "" {
		res.Region = u.Host
	}
	res.Profile = q.Get("profile")
	res.Endpoint = q.Get("endpoint")
	if v := q.Get("visibility"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return res, fmt.Errorf("visibility: invalid timeout %q", v)
		}
		res.VisibilityTimeout = int32(n)
	}

	return res, nil
}

// Client implements drain.Backend over SQS. Queue URLs are resolved once
// and cached.
type Client struct {
	api        API
	visibility int32

	mu   sync.Mutex
	urls map[string]string
}

var _ drain.Backend = (*Client)(nil)

// New loads the default AWS configuration (environment, shared config,
// profile) and builds an SQS client.
func New(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewFromAPI(api, opts.VisibilityTimeout), nil
}

func NewFromAPI(api API, visibilityTimeout int32) *Client {
	if api == nil {
		panic("API must be provided")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = defaultVisibilityTimeout
	}

	res := &Client{
		api:        api,
		visibility: visibilityTimeout,
		urls:       make(map[string]string),
	}

	return res
}

func (obj *Client) GetCount(ctx context.Context, queueName string) (drain.Counts, error) {
	var res drain.Counts

	queueURL, err := obj.queueURL(ctx, queueName, "")
	if err != nil {
		return res, err
	}

	attrs, err := obj.attributes(ctx, queueURL,
		types.QueueAttributeNameApproximateNumberOfMessages,
		types.QueueAttributeNameRedrivePolicy)
	if err != nil {
		return res, err
	}
	if res.Active, err = approximateCount(attrs); err != nil {
		return res, fmt.Errorf("queue %q: %w", queueName, err)
	}

	if attrs[string(types.QueueAttributeNameRedrivePolicy)] == "" {
		return res, nil
	}
	dlqURL, err := obj.deadLetterURL(ctx, queueName)
	if err != nil {
		return res, err
	}
	dlqAttrs, err := obj.attributes(ctx, dlqURL, types.QueueAttributeNameApproximateNumberOfMessages)
	if err != nil {
		return res, err
	}
	if res.DeadLetter, err = approximateCount(dlqAttrs); err != nil {
		return res, fmt.Errorf("dead-letter queue of %q: %w", queueName, err)
	}

	return res, nil
}

func (obj *Client) AcceptNextSession(ctx context.Context, queueName string, wait time.Duration) (drain.SessionReceiver, error) {
	return nil, fmt.Errorf("sqs queue %q: %w", queueName, drain.ErrSessionsNotSupported)
}

func (obj *Client) NewReceiver(ctx context.Context, queueName string, opts drain.ReceiverOptions) (drain.Receiver, error) {
	var (
		queueURL string
		err      error
	)
	if opts.DeadLetter {
		queueURL, err = obj.deadLetterURL(ctx, queueName)
	} else {
		queueURL, err = obj.queueURL(ctx, queueName, "")
	}
	if err != nil {
		return nil, err
	}

	res := &receiver{
		api:        obj.api,
		queueURL:   queueURL,
		visibility: obj.visibility,
	}

	return res, nil
}

func (obj *Client) Close(ctx context.Context) error { return nil }

func (obj *Client) queueURL(ctx context.Context, queueName, owner string) (string, error) {
	key := owner + "/" + queueName

	obj.mu.Lock()
	cached, ok := obj.urls[key]
	obj.mu.Unlock()
	if ok {
		return cached, nil
	}

	input := &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	}
	if owner != "" {
		input.QueueOwnerAWSAccountId = aws.String(owner)
	}
	output, err := obj.api.GetQueueUrl(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get url of queue %q: %w", queueName, err)
	}

	res := aws.ToString(output.QueueUrl)
	obj.mu.Lock()
	obj.urls[key] = res
	obj.mu.Unlock()

	return res, nil
}

func (obj *Client) deadLetterURL(ctx context.Context, queueName string) (string, error) {
	queueURL, err := obj.queueURL(ctx, queueName, "")
	if err != nil {
		return "", err
	}

	attrs, err := obj.attributes(ctx, queueURL, types.QueueAttributeNameRedrivePolicy)
	if err != nil {
		return "", err
	}
	policy := attrs[string(types.QueueAttributeNameRedrivePolicy)]
	if policy == "" {
		return "", fmt.Errorf("queue %q: %w", queueName, ErrNoDeadLetterQueue)
	}

	var redrive struct {
		DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	}
	if err := json.Unmarshal([]byte(policy), &redrive); err != nil {
		return "", fmt.Errorf("queue %q: decode redrive policy: %w", queueName, err)
	}

	// arn:aws:sqs:<region>:<account>:<name>
	parts := strings.Split(redrive.DeadLetterTargetArn, ":")
	if len(parts) != 6 || parts[2] != "sqs" {
		return "", fmt.Errorf("queue %q: unexpected dead-letter target %q", queueName, redrive.DeadLetterTargetArn)
	}

	return obj.queueURL(ctx, parts[5], parts[4])
}

func (obj *Client) attributes(ctx context.Context, queueURL string, names ...types.QueueAttributeName) (map[string]string, error) {
	output, err := obj.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: names,
	})
	if err != nil {
		return nil, fmt.Errorf("get attributes of %s: %w", queueURL, err)
	}

	return output.Attributes, nil
}

func approximateCount(attrs map[string]string) (int64, error) {
	v := attrs[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message count %q: %w", v, err)
	}
	return n, nil
}
