package webhook

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMessager reports errors to sentry, plain messages are ignored
type SentryMessager struct {
	hub *sentry.Hub
}

// NewSentryMessager uses the current hub when hub is nil
func NewSentryMessager(hub *sentry.Hub) *SentryMessager {
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	return &SentryMessager{hub: hub}
}

func (s *SentryMessager) Notify(ctx context.Context, message string) error {
	return nil
}

func (s *SentryMessager) NotifyError(ctx context.Context, err error) error {
	s.hub.CaptureException(err)

	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}

	s.hub.Flush(time.Until(deadline))

	return nil
}
