// Package esplora talks to an Esplora block explorer REST API.  It is the
// node's default chain source and feeds the wallet's UTXO view.
package esplora

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/logging"
)

const requestTimeout = 30 * time.Second

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger

	mtx      sync.Mutex
	lastHash string
}

func NewClient(baseURL string, log *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// UTXO is an unspent output as reported by /address/:addr/utxo.  All fields
// have to be exported for the json decoder.
type UTXO struct {
	Txid   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Status Status `json:"status"`
}

type Status struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// TipHeight returns the height of the best block.
func (c *Client) TipHeight(ctx context.Context) (uint32, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	h, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad tip height %q: %v", body, err)
	}
	return uint32(h), nil
}

// TipHash returns the hash of the best block.
func (c *Client) TipHash(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/blocks/tip/hash")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// BlockHash returns the hash of the block at height on the best chain.
func (c *Client) BlockHash(ctx context.Context, height uint32) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/block-height/%d", height))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// AddressUTXOs lists unspent outputs paying to addr, confirmed or not.
func (c *Client) AddressUTXOs(ctx context.Context, addr string) ([]UTXO, error) {
	body, err := c.get(ctx, "/address/"+addr+"/utxo")
	if err != nil {
		return nil, err
	}
	var utxos []UTXO
	if err := json.Unmarshal(body, &utxos); err != nil {
		return nil, fmt.Errorf("decode utxos of %s: %v", addr, err)
	}
	return utxos, nil
}

// Broadcast submits a serialized transaction and returns its txid.
func (c *Client) Broadcast(ctx context.Context, tx []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx",
		strings.NewReader(hex.EncodeToString(tx)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("POST /tx: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	txid := strings.TrimSpace(string(body))
	c.log.Infof("broadcast tx %s", txid)
	return txid, nil
}

// Sync tells each confirmable about the best block, if it changed since the
// last successful Sync.
func (c *Client) Sync(ctx context.Context, confirmables []engine.Confirmable) error {
	height, err := c.TipHeight(ctx)
	if err != nil {
		return err
	}
	hash, err := c.BlockHash(ctx, height)
	if err != nil {
		return err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if hash == c.lastHash {
		return nil
	}

	c.log.Debugf("new best block %s at height %d", hash, height)
	for _, cf := range confirmables {
		cf.BestBlockUpdated(hash, height)
	}
	c.lastHash = hash
	return nil
}
