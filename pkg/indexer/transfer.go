package indexer

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusUnknown TransferStatus = ""
	TransferStatusSending TransferStatus = "sending"
	TransferStatusPending TransferStatus = "pending"
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusFail    TransferStatus = "fail"
)

func TransferStatusFromString(s string) (TransferStatus, error) {
	switch s {
	case "sending":
		return TransferStatusSending, nil
	case "pending":
		return TransferStatusPending, nil
	case "success":
		return TransferStatusSuccess, nil
	case "fail", "failed":
		return TransferStatusFail, nil
	}

	return TransferStatusUnknown, errors.New("unknown status: " + s)
}

type Transfer struct {
	Hash        string           `json:"hash"`
	TxHash      string           `json:"tx_hash"`
	TokenID     int64            `json:"token_id"`
	CreatedAt   time.Time        `json:"created_at"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Nonce       int64            `json:"nonce"`
	Value       *big.Int         `json:"value"`
	Data        *TransferData    `json:"data,omitempty"`
	Status      TransferStatus   `json:"status"`
	FromProfile *TransferProfile `json:"fromProfile,omitempty"`
}

// TransferData is the annotation attached by sources that are not on chain
type TransferData struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"value,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	ValueUSD    *decimal.Decimal `json:"valueUsd,omitempty"`
	Via         string           `json:"via,omitempty"`
}

// TransferProfile is a display hint for senders that have no on-chain profile
type TransferProfile struct {
	Name   string `json:"name"`
	ImgSrc string `json:"imgsrc"`
}

// TransferData implements the sql.Scanner interface
func (td *TransferData) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("type assertion .([]byte) failed")
	}

	if len(b) == 0 {
		return nil
	}

	return json.Unmarshal(b, td)
}

// TransferData implements the driver.Valuer interface
func (td TransferData) Value() (driver.Value, error) {
	return json.Marshal(td)
}

// SyntheticHash generates a stable identity for records that do not come from a chain.
// The same parts always produce the same hash.
func SyntheticHash(parts ...string) string {
	buf := new(bytes.Buffer)

	for i, p := range parts {
		if i > 0 {
			buf.WriteByte('|')
		}
		buf.WriteString(p)
	}

	return crypto.Keccak256Hash(buf.Bytes()).Hex()
}

// ValueOrZero returns the value of the transfer, a nil value counts as zero
func (t *Transfer) ValueOrZero() *big.Int {
	if t.Value == nil {
		return new(big.Int)
	}

	return t.Value
}

// Update updates the transfer using the given transfer
func (t *Transfer) Update(tx *Transfer) {
	// update all fields
	t.Hash = tx.Hash
	t.TxHash = tx.TxHash
	t.TokenID = tx.TokenID
	t.CreatedAt = tx.CreatedAt
	t.From = tx.From
	t.To = tx.To
	t.Nonce = tx.Nonce
	t.Value = tx.Value
	t.Data = tx.Data
	t.Status = tx.Status
	t.FromProfile = tx.FromProfile
}

// Clone returns a deep copy of the transfer
func (t *Transfer) Clone() *Transfer {
	c := *t

	if t.Value != nil {
		c.Value = new(big.Int).Set(t.Value)
	}

	if t.Data != nil {
		d := *t.Data
		c.Data = &d
	}

	if t.FromProfile != nil {
		p := *t.FromProfile
		c.FromProfile = &p
	}

	return &c
}
