package drain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"
)

const (
	DefaultBatchSize    = 1000
	DefaultReceiveWait  = 2 * time.Second
	DefaultSessionWait  = 30 * time.Second
	DefaultCloseTimeout = 10 * time.Second
)

// Drainer empties queues. It runs one outer iteration at a time; the only
// concurrency is the acknowledgement of a received batch.
type Drainer struct {
	client         Client
	counter        CountQuery
	logger         pslog.Logger
	metrics        *Metrics
	batchSize      int
	receiveWait    time.Duration
	sessionWait    time.Duration
	closeTimeout   time.Duration
	ackConcurrency int
}

func New(opts Options) *Drainer {
	opts.validate()

	res := &Drainer{
		client:         opts.Client,
		counter:        opts.Counter,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		batchSize:      opts.BatchSize,
		receiveWait:    opts.ReceiveWait,
		sessionWait:    opts.SessionWait,
		closeTimeout:   opts.CloseTimeout,
		ackConcurrency: opts.AckConcurrency,
	}

	return res
}

// Report describes a finished (or aborted) drain.
type Report struct {
	Iterations   int
	Batches      int
	Acknowledged int64
	// Remaining is the last count observed.
	Remaining int64
	Mode      SessionMode
	// Exhausted is set when the run ended because no session became available.
	Exhausted bool
}

// Drain empties target. It returns nil once the count reaches zero or the
// queue reports itself exhausted; any other failure aborts the run.
// Messages acknowledged before a failure stay acknowledged.
func (obj *Drainer) Drain(ctx context.Context, target Target) (Report, error) {
	var (
		report Report
		mode   SessionMode
	)

	logger := obj.logger.With("run", uuid.NewString(), "queue", target.QueueName, "dead_letter", target.DeadLetter)
	negotiator := NewNegotiator(obj.client, obj.sessionWait, obj.batchSize, logger, obj.metrics)

	count, err := obj.count(ctx, logger, target)
	if err != nil {
		return report, err
	}
	report.Remaining = count

	for count > 0 {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		exhausted, err := obj.iterate(ctx, logger, negotiator, target, &mode, &report)
		report.Mode = mode
		if err != nil {
			return report, err
		}
		if exhausted {
			report.Exhausted = true
			break
		}

		count, err = obj.count(ctx, logger, target)
		if err != nil {
			return report, err
		}
		report.Remaining = count
	}

	logger.Info("drain.done",
		"acknowledged", humanize.Comma(report.Acknowledged),
		"batches", report.Batches,
		"mode", report.Mode.String(),
		"exhausted", report.Exhausted)

	return report, nil
}

func (obj *Drainer) iterate(
	ctx context.Context,
	logger pslog.Logger,
	negotiator *Negotiator,
	target Target,
	mode *SessionMode,
	report *Report) (exhausted bool, err error) {
	rcv, err := negotiator.Acquire(ctx, target, mode)
	if errors.Is(err, ErrExhausted) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer obj.release(ctx, logger, rcv)

	report.Iterations++
	readAny, err := obj.drainReceiver(ctx, logger, target, rcv, report)
	logger.Debug("drain.receiver.drained", "read_any", readAny)

	return false, err
}

// release closes rcv even when ctx is already canceled.
func (obj *Drainer) release(ctx context.Context, logger pslog.Logger, rcv Receiver) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), obj.closeTimeout)
	defer cancel()

	if err := rcv.Close(closeCtx); err != nil {
		logger.Warn("drain.receiver.close_failed", "error", err)
	}
}

// drainReceiver reads rcv until a receive comes back empty. It reports
// whether anything was read.
func (obj *Drainer) drainReceiver(
	ctx context.Context,
	logger pslog.Logger,
	target Target,
	rcv Receiver,
	report *Report) (bool, error) {
	readAny := false

	for {
		if err := ctx.Err(); err != nil {
			return readAny, err
		}

		batch, err := rcv.ReceiveBatch(ctx, obj.batchSize, obj.receiveWait)
		if err != nil {
			return readAny, fmt.Errorf("receive batch from %q: %w", target.QueueName, err)
		}
		if len(batch) == 0 {
			return readAny, nil
		}

		readAny = true
		report.Batches++
		logger.Info("drain.batch.received", "count", len(batch))

		acked, err := obj.acknowledge(ctx, rcv, batch)
		report.Acknowledged += acked
		obj.metrics.observeAcknowledged(target.QueueName, int(acked))
		if err != nil {
			return readAny, err
		}

		logger.Info("drain.batch.completed", "count", acked)
	}
}

// acknowledge completes every message of batch concurrently and waits for all
// of them. The first failure cancels the acknowledgements still pending.
func (obj *Drainer) acknowledge(ctx context.Context, rcv Receiver, batch []Message) (int64, error) {
	var acked atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if obj.ackConcurrency > 0 {
		g.SetLimit(obj.ackConcurrency)
	}

	for _, msg := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := rcv.Acknowledge(gctx, msg); err != nil {
				return fmt.Errorf("%w: %w", ErrAcknowledge, err)
			}
			acked.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return acked.Load(), err
}

func (obj *Drainer) count(ctx context.Context, logger pslog.Logger, target Target) (int64, error) {
	counts, err := obj.counter.GetCount(ctx, target.QueueName)
	if err != nil {
		return 0, fmt.Errorf("count messages in %q: %w", target.QueueName, err)
	}

	res := counts.Pick(target)
	obj.metrics.observeRemaining(target.QueueName, res)
	logger.Info("drain.count", "count", humanize.Comma(res))

	return res, nil
}

type Options struct {
	Client  Client
	Counter CountQuery
	Logger  pslog.Logger
	Metrics *Metrics

	// BatchSize is the most messages asked for per receive; it is also
	// the prefetch of plain receivers.
	BatchSize   int
	ReceiveWait time.Duration
	SessionWait time.Duration
	// CloseTimeout bounds releasing a receiver.
	CloseTimeout time.Duration
	// AckConcurrency caps in-flight acknowledgements per batch. Zero means
	// the whole batch at once.
	AckConcurrency int
}

func (obj *Options) validate() {
	if obj.Client == nil {
		panic("Client must be provided")
	}

	if obj.Counter == nil {
		panic("Counter must be provided")
	}

	if obj.Logger == nil {
		obj.Logger = pslog.NoopLogger()
	}
	if obj.BatchSize <= 0 {
		obj.BatchSize = DefaultBatchSize
	}
	if obj.ReceiveWait <= 0 {
		obj.ReceiveWait = DefaultReceiveWait
	}
	if obj.SessionWait <= 0 {
		obj.SessionWait = DefaultSessionWait
	}
	if obj.CloseTimeout <= 0 {
		obj.CloseTimeout = DefaultCloseTimeout
	}
	if obj.AckConcurrency < 0 {
		obj.AckConcurrency = 0
	}
}
