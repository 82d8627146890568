package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/citizenwallet/feed/pkg/indexer"
)

var ErrSend = errors.New("error sending message")

type Message struct {
	Content string `json:"content"`
}

// Messager posts discord style messages to a webhook
type Messager struct {
	BaseURL string
	Name    string

	notify bool
	client *http.Client
}

func NewMessager(baseURL, name string, notify bool) *Messager {
	return &Messager{
		BaseURL: baseURL,
		Name:    name,
		notify:  notify && baseURL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (b *Messager) Notify(ctx context.Context, message string) error {
	return b.send(ctx, fmt.Sprintf("[%s] %s", b.Name, message))
}

func (b *Messager) NotifyWarning(ctx context.Context, errorMessage error) error {
	return b.send(ctx, fmt.Sprintf("[%s] warning: %s", b.Name, errorMessage.Error()))
}

func (b *Messager) NotifyError(ctx context.Context, errorMessage error) error {
	return b.send(ctx, fmt.Sprintf("[%s] error: %s", b.Name, errorMessage.Error()))
}

func (b *Messager) send(ctx context.Context, content string) error {
	if !b.notify {
		return nil
	}

	data, err := json.Marshal(Message{Content: content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	// discord answers 204 when the message is accepted
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d", ErrSend, resp.StatusCode)
	}

	return nil
}

type combined []indexer.WebhookMessager

// Combine returns a messager that forwards every message to all of ms
func Combine(ms ...indexer.WebhookMessager) indexer.WebhookMessager {
	c := combined{}
	for _, m := range ms {
		if m != nil {
			c = append(c, m)
		}
	}

	return c
}

func (c combined) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, m := range c {
		errs = append(errs, m.Notify(ctx, message))
	}

	return errors.Join(errs...)
}

func (c combined) NotifyError(ctx context.Context, err error) error {
	var errs []error
	for _, m := range c {
		errs = append(errs, m.NotifyError(ctx, err))
	}

	return errors.Join(errs...)
}
