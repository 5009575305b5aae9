package lncore

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyG  = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	testKey2G = "02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
)

func TestParsePeerInfo(t *testing.T) {
	pi, err := ParsePeerInfo(testKeyG + "@127.0.0.1:9735")
	require.NoError(t, err)
	assert.Equal(t, testKeyG, pi.PubKey.String())
	assert.Equal(t, "127.0.0.1:9735", pi.Address)
	assert.Equal(t, testKeyG+"@127.0.0.1:9735", pi.String())

	pi, err = ParsePeerInfo(testKey2G + "@[::1]:19735")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:19735", pi.Address)
}

var badPeerInfos = []string{
	"",
	testKeyG,
	testKeyG + "@",
	testKeyG + "@127.0.0.1",
	testKeyG + "@127.0.0.1:0",
	testKeyG + "@127.0.0.1:notaport",
	testKeyG + "@:9735",
	"nothex@127.0.0.1:9735",
	"02" + strings.Repeat("ff", 32) + "@127.0.0.1:9735",
	testKeyG + "@a@b:1",
}

func TestParsePeerInfoFail(t *testing.T) {
	for _, s := range badPeerInfos {
		_, err := ParsePeerInfo(s)
		if !errors.Is(err, ErrPeerInfoParseFailed) {
			t.Errorf("parsed %q but should not have (err %v)", s, err)
		}
	}
}

func TestParsePublicKeyOutOfField(t *testing.T) {
	_, err := ParsePublicKey("02" + strings.Repeat("ff", 32))
	assert.ErrorIs(t, err, ErrPublicKeyInvalid)
}

func TestPublicKeyTextRoundTrip(t *testing.T) {
	var off PublicKey
	off[0] = 2
	for _, pk := range []PublicKey{{}, off} {
		b, err := json.Marshal(pk)
		require.NoError(t, err)
		var got PublicKey
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, pk, got)
	}

	var pk PublicKey
	assert.ErrorIs(t, pk.UnmarshalText([]byte("02ab")), ErrPublicKeyInvalid)
}

func TestParseNetwork(t *testing.T) {
	for in, want := range map[string]Network{
		"mainnet": Mainnet,
		"bitcoin": Mainnet,
		"Testnet": Testnet,
		"regtest": Regtest,
		"signet":  Signet,
	} {
		got, err := ParseNetwork(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseNetwork("litecoin")
	assert.ErrorIs(t, err, ErrNetworkInvalid)
}

func TestPreimageHash(t *testing.T) {
	p := NewPaymentPreimage()
	h := p.Hash()

	parsed, err := ParsePaymentHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParsePaymentHash("abcd")
	assert.ErrorIs(t, err, ErrPaymentHashInvalid)
}
