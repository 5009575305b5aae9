package engine

import (
	"time"

	"github.com/mit-dci/litnode/lncore"
)

// Invoice is a decoded payment request.  Encoded is what gets handed to the
// payer.
type Invoice struct {
	Encoded       string
	Network       lncore.Network
	Payee         lncore.PublicKey
	PaymentHash   lncore.PaymentHash
	PaymentSecret lncore.PaymentSecret
	AmountMsat    *uint64
	Description   string
	Timestamp     time.Time
	Expiry        time.Duration
}

func (inv *Invoice) String() string {
	return inv.Encoded
}

func (inv *Invoice) IsExpired(now time.Time) bool {
	return now.After(inv.Timestamp.Add(inv.Expiry))
}
