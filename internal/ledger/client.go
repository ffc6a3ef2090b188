package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"example.com/supplychain/services/tracker/config"
	"example.com/supplychain/services/tracker/internal/models"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

// selector returns the 4-byte function selector for an ABI signature
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// shipmentsSelector is the selector of the contract's public mapping getter
// shipments(uint256) -> (uint256 id, string name, uint256 quantity,
// uint256 manufactureTimestamp, address producer, uint8 currentStatus)
var shipmentsSelector = selector("shipments(uint256)")

// Client reads the supply-chain contract over JSON-RPC
type Client struct {
	rpcURL   string
	contract string
	http     *http.Client
	retries  int
	baseWait time.Duration
}

// NewClient creates a contract reader from the ledger configuration
func NewClient(cfg config.LedgerConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		rpcURL:   cfg.RPCURL,
		contract: strings.ToLower(strings.TrimSpace(cfg.ContractAddress)),
		http:     &http.Client{Timeout: timeout},
		retries:  cfg.MaxRetries,
		baseWait: cfg.RetryBaseDelay,
	}
}

// rpcRequest is the JSON-RPC 2.0 request envelope
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcError is a JSON-RPC error object returned by the node
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// httpStatusError reports a non-2xx response from the RPC endpoint
type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("rpc endpoint returned HTTP %d", e.StatusCode)
}

// ReadShipment calls shipments(id) on the contract and decodes the result.
// Transient transport failures are retried with bounded exponential backoff;
// business outcomes (revert, never-written id) surface immediately.
func (c *Client) ReadShipment(ctx context.Context, id uint64) (*ShipmentRecord, error) {
	var record *ShipmentRecord
	err := withRetry(ctx, c.retries, c.baseWait, func() error {
		var callErr error
		record, callErr = c.readShipmentOnce(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) readShipmentOnce(ctx context.Context, id uint64) (*ShipmentRecord, error) {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, shipmentsSelector...)
	data = append(data, encodeUint256(new(big.Int).SetUint64(id))...)

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	return decodeShipment(result, id)
}

// call performs eth_call against the contract at the latest block
func (c *Client) call(ctx context.Context, data []byte) ([]byte, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []interface{}{
			map[string]string{
				"to":   c.contract,
				"data": "0x" + hex.EncodeToString(data),
			},
			"latest",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &httpStatusError{StatusCode: res.StatusCode}
	}

	var parsed struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return nil, parsed.Error
	}

	raw := strings.TrimPrefix(parsed.Result, "0x")
	out, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed rpc result: %w", err)
	}

	return out, nil
}

// encodeUint256 left-pads a big integer to one ABI word
func encodeUint256(v *big.Int) []byte {
	word := make([]byte, wordSize)
	b := v.Bytes()
	copy(word[wordSize-len(b):], b)
	return word
}

func word(data []byte, index int) ([]byte, error) {
	start := index * wordSize
	end := start + wordSize
	if end > len(data) {
		return nil, fmt.Errorf("return data too short: want word %d, have %d bytes", index, len(data))
	}
	return data[start:end], nil
}

func wordUint64(data []byte, index int) (uint64, error) {
	w, err := word(data, index)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(w).Uint64(), nil
}

// decodeShipment unpacks the getter's six-slot return tuple. The name slot is
// a dynamic string: its head word holds the byte offset of the length-prefixed
// content.
func decodeShipment(data []byte, queried uint64) (*ShipmentRecord, error) {
	if len(data) < 6*wordSize {
		return nil, fmt.Errorf("return data too short for shipment tuple: %d bytes", len(data))
	}

	id, err := wordUint64(data, 0)
	if err != nil {
		return nil, err
	}
	// The contract mapping returns a zero tuple for identifiers it has never
	// stored.
	if id == 0 && queried != 0 {
		return nil, ErrNotOnChain
	}

	nameOffset, err := wordUint64(data, 1)
	if err != nil {
		return nil, err
	}
	quantity, err := wordUint64(data, 2)
	if err != nil {
		return nil, err
	}
	manufactureTS, err := wordUint64(data, 3)
	if err != nil {
		return nil, err
	}
	producerWord, err := word(data, 4)
	if err != nil {
		return nil, err
	}
	statusIdx, err := wordUint64(data, 5)
	if err != nil {
		return nil, err
	}

	// The offset and length words come from an untrusted node; compare against
	// the remaining space instead of adding, so a huge word cannot wrap the
	// guard and panic the slice below.
	size := uint64(len(data))
	if nameOffset > size || size-nameOffset < wordSize {
		return nil, fmt.Errorf("string offset %d out of range", nameOffset)
	}
	nameLen := new(big.Int).SetBytes(data[nameOffset : nameOffset+wordSize]).Uint64()
	nameStart := nameOffset + wordSize
	if nameLen > size-nameStart {
		return nil, fmt.Errorf("string of length %d out of range", nameLen)
	}
	name := string(data[nameStart : nameStart+nameLen])

	if statusIdx > math.MaxUint8 {
		return nil, fmt.Errorf("on-chain status index %d out of range", statusIdx)
	}
	status, err := models.StatusFromIndex(uint8(statusIdx))
	if err != nil {
		return nil, err
	}

	// Address occupies the low 20 bytes of its word
	producer := "0x" + hex.EncodeToString(producerWord[wordSize-20:])

	return &ShipmentRecord{
		ID:                   id,
		Name:                 name,
		Quantity:             quantity,
		ManufactureTimestamp: time.Unix(int64(manufactureTS), 0).UTC(),
		Producer:             producer,
		Status:               status,
	}, nil
}
