package queue

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/pkg/indexer"
)

// TransferNotifier announces new transfers through a messager
type TransferNotifier struct {
	ctx      context.Context
	wm       indexer.WebhookMessager
	symbol   string
	decimals int
}

func NewTransferNotifier(ctx context.Context, wm indexer.WebhookMessager, symbol string, decimals int) *TransferNotifier {
	return &TransferNotifier{
		ctx:      ctx,
		wm:       wm,
		symbol:   symbol,
		decimals: decimals,
	}
}

// Process method processes messages of type indexer.NewTransfersMessage
func (n *TransferNotifier) Process(messages []indexer.Message) (invalid []indexer.Message, errors []error) {
	invalid = []indexer.Message{}
	errors = []error{}

	for _, message := range messages {
		ntm, ok := message.Message.(indexer.NewTransfersMessage)
		if !ok {
			invalid = append(invalid, message)
			errors = append(errors, fmt.Errorf("invalid new transfers message %s", message.ID))
			continue
		}

		if len(ntm.Transfers) == 0 {
			continue
		}

		err := n.wm.Notify(n.ctx, n.Describe(ntm))
		if err != nil {
			invalid = append(invalid, message)
			errors = append(errors, err)
		}
	}

	return invalid, errors
}

// Describe summarizes a batch of transfers in one line
func (n *TransferNotifier) Describe(ntm indexer.NewTransfersMessage) string {
	total := new(big.Int)
	senders := []string{}
	seen := map[string]bool{}

	for _, tx := range ntm.Transfers {
		total.Add(total, tx.ValueOrZero())

		if !seen[tx.From] {
			seen[tx.From] = true
			senders = append(senders, common.ShortenSender(tx.From, 6))
		}
	}

	account := "all accounts"
	if ntm.Account != "" {
		account = common.ShortenSender(ntm.Account, 6)
	}

	noun := "transfers"
	if len(ntm.Transfers) == 1 {
		noun = "transfer"
	}

	return fmt.Sprintf("%d new %s for %s: %s %s from %s",
		len(ntm.Transfers),
		noun,
		account,
		common.FromUnits(total, n.decimals).String(),
		n.symbol,
		strings.Join(senders, ", "))
}
