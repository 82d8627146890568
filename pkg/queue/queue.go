package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/citizenwallet/feed/internal/metrics"
	"github.com/citizenwallet/feed/pkg/indexer"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("queue is full")

const defaultBackoff = time.Second

type Service struct {
	name       string
	queue      chan indexer.Message
	quit       chan bool
	maxRetries int
	backoff    time.Duration

	ctx    context.Context
	wm     indexer.WebhookMessager
	logger *zap.Logger

	// set while a full queue report is in flight
	reportingFull atomic.Bool
}

// Processor handles a batch of messages and returns the ones that failed along with
// their errors, in the same order
type Processor interface {
	Process([]indexer.Message) ([]indexer.Message, []error)
}

func NewService(name string, maxRetries, bufferSize int, ctx context.Context, wm indexer.WebhookMessager) *Service {
	if ctx == nil {
		ctx = context.Background()
	}

	return &Service{
		name:       name,
		queue:      make(chan indexer.Message, bufferSize),
		quit:       make(chan bool, 1),
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		ctx:        ctx,
		wm:         wm,
		logger:     zap.NewNop(),
	}
}

func (s *Service) SetLogger(l *zap.Logger) {
	s.logger = l.With(zap.String("queue", s.name))
}

// SetBackoff sets the base delay before a failed message is retried, it grows with
// every retry
func (s *Service) SetBackoff(d time.Duration) {
	s.backoff = d
}

// Enqueue adds a message without blocking, the message is dropped when the queue is full
func (s *Service) Enqueue(message indexer.Message) {
	select {
	case s.queue <- message:
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn("dropping message", zap.String("id", message.ID))
		s.reportFull()
	}
}

// reportFull sends the full queue error in the background, drops that happen while
// a report is still being sent are only logged and counted
func (s *Service) reportFull() {
	if s.wm == nil || !s.reportingFull.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer s.reportingFull.Store(false)

		s.notifyError(fmt.Errorf("%s: %w", s.name, ErrQueueFull))
	}()
}

// Close stops Start, it does not block when Start already returned
func (s *Service) Close() {
	select {
	case s.quit <- true:
	default:
	}
}

func (s *Service) Start(p Processor) error {
	for {
		select {
		case message := <-s.queue:
			// process what is buffered along with the message
			messages := []indexer.Message{message}
			for n := len(s.queue); n > 0; n-- {
				messages = append(messages, <-s.queue)
			}

			invalid, errs := p.Process(messages)
			metrics.NotificationsTotal.WithLabelValues("processed").Add(float64(len(messages) - len(invalid)))

			for i, m := range invalid {
				var err error
				if i < len(errs) {
					err = errs[i]
				}

				s.retry(m, err)
			}
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-s.quit:
			// quit the service
			return nil
		}
	}
}

func (s *Service) retry(m indexer.Message, err error) {
	if m.RetryCount >= s.maxRetries {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("message failed", zap.String("id", m.ID), zap.Int("retries", m.RetryCount), zap.Error(err))
		if err != nil {
			s.notifyError(err)
		}
		return
	}

	m.RetryCount++

	// requeue later to avoid a busy loop
	time.AfterFunc(time.Duration(m.RetryCount)*s.backoff, func() {
		s.Enqueue(m)
	})
}

func (s *Service) notifyError(err error) {
	if s.wm == nil {
		return
	}

	if nerr := s.wm.NotifyError(s.ctx, err); nerr != nil {
		s.logger.Warn("unable to notify error", zap.Error(nerr))
	}
}
