package main

import (
	"context"
	"errors"
	"strings"

	"github.com/dc0d/drainq/service/drain"
	"github.com/dc0d/drainq/service/drain/backend/memory"
	"github.com/dc0d/drainq/service/drain/backend/servicebus"
	"github.com/dc0d/drainq/service/drain/backend/sqsqueue"
)

var errUnknownBackend = errors.New("connection string is neither a Service Bus connection string nor a sqs:// or mem:// endpoint")

// openBackend picks the adapter from the shape of the connection string.
func openBackend(ctx context.Context, connectionString, queueName string) (drain.Backend, error) {
	switch {
	case strings.HasPrefix(connectionString, memory.Scheme+"://"):
		broker, err := memory.Open(connectionString, queueName)
		if err != nil {
			return nil, err
		}
		return broker, nil
	case strings.HasPrefix(connectionString, sqsqueue.Scheme+"://"):
		opts, err := sqsqueue.ParseURL(connectionString)
		if err != nil {
			return nil, err
		}
		client, err := sqsqueue.New(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	case servicebus.IsConnectionString(connectionString):
		client, err := servicebus.New(connectionString)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, errUnknownBackend
}
