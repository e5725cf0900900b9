package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Handler must return nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	log     zerolog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, logger zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	return newConsumer(r, workers, logger.With().Str("topic", topic).Str("group", group).Logger())
}

func newConsumer(r messageReader, workers int, logger zerolog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: logger}
}

// Start dispatches messages to a pool of workers until ctx is cancelled, the
// reader fails or a handler returns an error. A cancelled context is a clean
// exit. A handler error stops the consumer with that message and everything
// after it in its partition left uncommitted, so a restart redelivers them.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	offsets := newCommitLog(c.r.CommitMessages)
	jobs := make(chan kafka.Message, c.workers*2)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for m := range jobs {
				if gctx.Err() != nil {
					continue
				}
				if err := h(gctx, m); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					c.log.Error().Err(err).Int("partition", m.Partition).Int64("offset", m.Offset).Msg("handle message")
					return fmt.Errorf("handle partition %d offset %d: %w", m.Partition, m.Offset, err)
				}
				if err := offsets.handled(gctx, m); err != nil {
					c.log.Error().Err(err).Int64("offset", m.Offset).Msg("commit offset")
				}
			}
			return nil
		})
	}

	var readErr error
dispatch:
	for {
		m, err := c.r.FetchMessage(gctx)
		if err != nil {
			if gctx.Err() == nil {
				readErr = err
			}
			break
		}
		offsets.dispatched(m)
		select {
		case jobs <- m:
		case <-gctx.Done():
			break dispatch
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil {
		return err
	}
	return readErr
}

// commitLog commits an offset only once every earlier message of the same
// partition has been handled. Workers finish out of order; committing a later
// offset first would skip a message that is still in flight or failed.
type commitLog struct {
	mu       sync.Mutex
	commit   func(ctx context.Context, msgs ...kafka.Message) error
	inflight map[int][]int64
	done     map[int]map[int64]kafka.Message
}

func newCommitLog(commit func(ctx context.Context, msgs ...kafka.Message) error) *commitLog {
	return &commitLog{
		commit:   commit,
		inflight: make(map[int][]int64),
		done:     make(map[int]map[int64]kafka.Message),
	}
}

// dispatched records fetch order. It must be called before m reaches a worker.
func (l *commitLog) dispatched(m kafka.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight[m.Partition] = append(l.inflight[m.Partition], m.Offset)
}

// handled marks m processed and commits the furthest message of its partition
// whose predecessors are all processed. Commits happen under the lock so they
// reach the broker in offset order.
func (l *commitLog) handled(ctx context.Context, m kafka.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	done := l.done[m.Partition]
	if done == nil {
		done = make(map[int64]kafka.Message)
		l.done[m.Partition] = done
	}
	done[m.Offset] = m

	var (
		last  kafka.Message
		ready bool
	)
	q := l.inflight[m.Partition]
	for len(q) > 0 {
		dm, ok := done[q[0]]
		if !ok {
			break
		}
		delete(done, q[0])
		last, ready = dm, true
		q = q[1:]
	}
	l.inflight[m.Partition] = q
	if !ready {
		return nil
	}
	return l.commit(ctx, last)
}
