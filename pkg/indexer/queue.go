package indexer

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         string
	CreatedAt  time.Time
	RetryCount int
	Message    any
}

// NewTransfersMessage is queued every time a source delivers transfers the feed had not seen
type NewTransfersMessage struct {
	Account   string
	Transfers []*Transfer
}

func newMessage(id string, message any) *Message {
	return &Message{
		ID:         id,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		Message:    message,
	}
}

func NewTransfersMsg(account string, txs []*Transfer) *Message {
	return newMessage(uuid.NewString(), NewTransfersMessage{
		Account:   account,
		Transfers: txs,
	})
}
