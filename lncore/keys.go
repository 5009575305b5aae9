package lncore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// PublicKey is a compressed secp256k1 node id.
type PublicKey [33]byte

// ParsePublicKey decodes a hex encoded compressed public key and checks that
// it is actually on the curve.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey

	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(pk) {
		return pk, ErrPublicKeyInvalid
	}
	if _, err := btcec.ParsePubKey(raw); err != nil {
		return pk, fmt.Errorf("%w: %s", ErrPublicKeyInvalid, err.Error())
	}

	copy(pk[:], raw)
	return pk, nil
}

// PublicKeyFromBtcec converts a btcec key into a node id.
func PublicKeyFromBtcec(k *btcec.PublicKey) PublicKey {
	var pk PublicKey
	copy(pk[:], k.SerializeCompressed())
	return pk
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// IsZero reports whether the key was never set.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText only decodes the hex, so anything MarshalText wrote reads
// back.  User input goes through ParsePublicKey instead.
func (pk *PublicKey) UnmarshalText(b []byte) error {
	if err := decodeFixedHex(string(b), pk[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrPublicKeyInvalid, err)
	}
	return nil
}

// ChannelID identifies a channel.  Before funding it holds the temporary id.
type ChannelID [32]byte

// ParseChannelID decodes a 32 byte hex channel id.
func ParseChannelID(s string) (ChannelID, error) {
	var id ChannelID
	if err := decodeFixedHex(s, id[:]); err != nil {
		return id, ErrChannelIdInvalid
	}
	return id, nil
}

func (id ChannelID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ChannelID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ChannelID) UnmarshalText(b []byte) error {
	v, err := ParseChannelID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// UserChannelID is the 128 bit id we pick locally for each channel we open.
type UserChannelID [16]byte

// NewUserChannelID returns a random user channel id.
func NewUserChannelID() UserChannelID {
	var u UserChannelID
	rand.Read(u[:])
	return u
}

func (u UserChannelID) String() string {
	return hex.EncodeToString(u[:])
}

func (u UserChannelID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UserChannelID) UnmarshalText(b []byte) error {
	return decodeFixedHex(string(b), u[:])
}

// PaymentHash is the sha256 of a payment preimage.
type PaymentHash [32]byte

// ParsePaymentHash decodes a 32 byte hex payment hash.
func ParsePaymentHash(s string) (PaymentHash, error) {
	var h PaymentHash
	if err := decodeFixedHex(s, h[:]); err != nil {
		return h, ErrPaymentHashInvalid
	}
	return h, nil
}

func (h PaymentHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h PaymentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *PaymentHash) UnmarshalText(b []byte) error {
	v, err := ParsePaymentHash(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// PaymentPreimage is the secret whose hash locks a payment.
type PaymentPreimage [32]byte

// NewPaymentPreimage returns a random preimage.
func NewPaymentPreimage() PaymentPreimage {
	var p PaymentPreimage
	rand.Read(p[:])
	return p
}

// Hash returns the payment hash locked by this preimage.
func (p PaymentPreimage) Hash() PaymentHash {
	return PaymentHash(sha256.Sum256(p[:]))
}

func (p PaymentPreimage) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(p[:])), nil
}

func (p *PaymentPreimage) UnmarshalText(b []byte) error {
	return decodeFixedHex(string(b), p[:])
}

// PaymentSecret is the invoice secret a payer has to present.
type PaymentSecret [32]byte

// NewPaymentSecret returns a random payment secret.
func NewPaymentSecret() PaymentSecret {
	var s PaymentSecret
	rand.Read(s[:])
	return s
}

func (s PaymentSecret) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

func (s *PaymentSecret) UnmarshalText(b []byte) error {
	return decodeFixedHex(string(b), s[:])
}

func decodeFixedHex(s string, dst []byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
