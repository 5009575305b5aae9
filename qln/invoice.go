package qln

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

const (
	maxDescriptionLen = 639
	compactSigLen     = 65
)

var invoiceNetworks = []lncore.Network{lncore.Mainnet, lncore.Testnet, lncore.Regtest, lncore.Signet}

// CreateInvoice issues an invoice payable to us.  The preimage never leaves
// the engine until the payment is claimed.
func (nd *LitNode) CreateInvoice(amountMsat *uint64, description string, expirySecs uint32) (*engine.Invoice, error) {
	if len(description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description longer than %d bytes", engine.ErrInvoice, maxDescriptionLen)
	}

	preimage := lncore.NewPaymentPreimage()
	inv := &engine.Invoice{
		Network:       nd.network,
		Payee:         nd.NodeID(),
		PaymentHash:   preimage.Hash(),
		PaymentSecret: lncore.NewPaymentSecret(),
		Description:   description,
		Timestamp:     time.Unix(time.Now().Unix(), 0),
		Expiry:        time.Duration(expirySecs) * time.Second,
	}
	if amountMsat != nil {
		amt := *amountMsat
		inv.AmountMsat = &amt
	}

	enc, err := encodeInvoice(inv, nd.idkey)
	if err != nil {
		return nil, err
	}
	inv.Encoded = enc

	nd.mtx.Lock()
	defer nd.mtx.Unlock()
	nd.invoices[inv.PaymentHash] = invoiceRecord{
		Preimage:   preimage,
		Secret:     inv.PaymentSecret,
		AmountMsat: inv.AmountMsat,
	}
	if err := nd.saveInvoices(); err != nil {
		delete(nd.invoices, inv.PaymentHash)
		return nil, err
	}
	return inv, nil
}

// ParseInvoice decodes and checks the signature of an encoded invoice.
func (nd *LitNode) ParseInvoice(s string) (*engine.Invoice, error) {
	inv, err := decodeInvoice(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvoice, err)
	}
	return inv, nil
}

// invoice body: timestamp(8) expiry(4) payee(33) hash(32) secret(32)
// hasamount(1) amount(8) desclen(2) desc, then a compact signature over
// sha256(hrp || body).
func invoiceBody(inv *engine.Invoice) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint64(inv.Timestamp.Unix()))
	binary.Write(&buf, binary.BigEndian, uint32(inv.Expiry/time.Second))
	buf.Write(inv.Payee[:])
	buf.Write(inv.PaymentHash[:])
	buf.Write(inv.PaymentSecret[:])
	if inv.AmountMsat != nil {
		buf.WriteByte(1)
		binary.Write(&buf, binary.BigEndian, *inv.AmountMsat)
	} else {
		buf.WriteByte(0)
		binary.Write(&buf, binary.BigEndian, uint64(0))
	}
	binary.Write(&buf, binary.BigEndian, uint16(len(inv.Description)))
	buf.WriteString(inv.Description)
	return buf.Bytes()
}

func invoiceDigest(hrp string, body []byte) []byte {
	h := sha256.New()
	h.Write([]byte(hrp))
	h.Write(body)
	return h.Sum(nil)
}

func encodeInvoice(inv *engine.Invoice, key *btcec.PrivateKey) (string, error) {
	hrp := inv.Network.InvoicePrefix()
	body := invoiceBody(inv)

	sig := ecdsa.SignCompact(key, invoiceDigest(hrp, body), true)
	data, err := bech32.ConvertBits(append(body, sig...), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, data)
}

func decodeInvoice(s string) (*engine.Invoice, error) {
	s = strings.TrimSpace(s)
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, err
	}

	inv := &engine.Invoice{Encoded: strings.ToLower(s)}
	found := false
	for _, n := range invoiceNetworks {
		if n.InvoicePrefix() == hrp {
			inv.Network, found = n, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown invoice prefix %q", hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(raw) < compactSigLen {
		return nil, fmt.Errorf("invoice too short")
	}
	body, sig := raw[:len(raw)-compactSigLen], raw[len(raw)-compactSigLen:]

	r := bytes.NewReader(body)
	var (
		ts, amt   uint64
		expiry    uint32
		hasAmount uint8
		descLen   uint16
	)
	if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &expiry); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, inv.Payee[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, inv.PaymentHash[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, inv.PaymentSecret[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &hasAmount); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &amt); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &descLen); err != nil {
		return nil, err
	}
	desc := make([]byte, descLen)
	if _, err := io.ReadFull(r, desc); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes in invoice", r.Len())
	}

	inv.Timestamp = time.Unix(int64(ts), 0)
	inv.Expiry = time.Duration(expiry) * time.Second
	inv.Description = string(desc)
	if hasAmount == 1 {
		inv.AmountMsat = &amt
	}

	pub, _, err := ecdsa.RecoverCompact(sig, invoiceDigest(hrp, body))
	if err != nil {
		return nil, fmt.Errorf("bad invoice signature: %v", err)
	}
	if lncore.PublicKeyFromBtcec(pub) != inv.Payee {
		return nil, fmt.Errorf("invoice not signed by payee %s", inv.Payee)
	}
	return inv, nil
}
