package qln

import (
	"encoding/json"
	"fmt"

	"github.com/mit-dci/litnode/lncore"
)

const (
	channelsKey = "qln/channels"
	invoicesKey = "qln/invoices"
)

// invoiceRecord is what we keep for every invoice we issued.
type invoiceRecord struct {
	Preimage   lncore.PaymentPreimage `json:"preimage"`
	Secret     lncore.PaymentSecret   `json:"secret"`
	AmountMsat *uint64                `json:"amount_msat,omitempty"`
}

func (nd *LitNode) loadChannels() error {
	raw, ok, err := nd.store.Read(channelsKey)
	if err != nil {
		return fmt.Errorf("%w: reading channels: %v", lncore.ErrPersistenceFailed, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, &nd.channels); err != nil {
		return fmt.Errorf("%w: decoding channels: %v", lncore.ErrPersistenceFailed, err)
	}
	return nil
}

// saveChannels writes all channels.  Caller holds mtx.
func (nd *LitNode) saveChannels() error {
	raw, err := json.Marshal(nd.channels)
	if err != nil {
		return err
	}
	if err := nd.store.Write(channelsKey, raw); err != nil {
		return fmt.Errorf("%w: %v", lncore.ErrPersistenceFailed, err)
	}
	return nil
}

func (nd *LitNode) loadInvoices() error {
	raw, ok, err := nd.store.Read(invoicesKey)
	if err != nil {
		return fmt.Errorf("%w: reading invoices: %v", lncore.ErrPersistenceFailed, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, &nd.invoices); err != nil {
		return fmt.Errorf("%w: decoding invoices: %v", lncore.ErrPersistenceFailed, err)
	}
	return nil
}

// saveInvoices writes all invoice records.  Caller holds mtx.
func (nd *LitNode) saveInvoices() error {
	raw, err := json.Marshal(nd.invoices)
	if err != nil {
		return err
	}
	if err := nd.store.Write(invoicesKey, raw); err != nil {
		return fmt.Errorf("%w: %v", lncore.ErrPersistenceFailed, err)
	}
	return nil
}
