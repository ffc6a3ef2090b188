package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/supplychain/services/tracker/config"
	"example.com/supplychain/services/tracker/internal/models"

	"github.com/stretchr/testify/require"
)

// encodeShipmentTuple builds the getter's ABI return data for tests
func encodeShipmentTuple(id uint64, name string, quantity, manufactureTS uint64, producer string, statusIdx uint64) string {
	appendWord := func(data []byte, v uint64) []byte {
		return append(data, encodeUint256(new(big.Int).SetUint64(v))...)
	}

	var data []byte
	data = appendWord(data, id)
	// Offset of the dynamic name content, relative to the tuple start
	data = appendWord(data, 6*wordSize)
	data = appendWord(data, quantity)
	data = appendWord(data, manufactureTS)

	addr, _ := hex.DecodeString(producer)
	word := make([]byte, wordSize)
	copy(word[wordSize-len(addr):], addr)
	data = append(data, word...)

	data = appendWord(data, statusIdx)

	data = appendWord(data, uint64(len(name)))
	padded := make([]byte, (len(name)+wordSize-1)/wordSize*wordSize)
	copy(padded, name)
	data = append(data, padded...)

	return "0x" + hex.EncodeToString(data)
}

// withWord overwrites one head word of an encoded tuple, for malformed-data
// cases the honest encoder cannot produce
func withWord(encoded string, index int, v uint64) string {
	raw, _ := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	copy(raw[index*wordSize:(index+1)*wordSize], encodeUint256(new(big.Int).SetUint64(v)))
	return "0x" + hex.EncodeToString(raw)
}

func newRPCServer(t *testing.T, handler func(req rpcRequest) (string, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_call", req.Method)

		result, rpcErr := handler(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testClient(url string) *Client {
	return NewClient(config.LedgerConfig{
		RPCURL:          url,
		ContractAddress: "0xCONTRACT",
		RequestTimeout:  2 * time.Second,
		MaxRetries:      2,
		RetryBaseDelay:  time.Millisecond,
	})
}

func TestReadShipmentDecodesTuple(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		return encodeShipmentTuple(7, "Widget", 25, uint64(ts.Unix()), "abcdef0123456789abcdef0123456789abcdef01", 1), nil
	})
	defer server.Close()

	record, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.NoError(t, err)
	require.Equal(t, uint64(7), record.ID)
	require.Equal(t, "Widget", record.Name)
	require.Equal(t, uint64(25), record.Quantity)
	require.Equal(t, ts, record.ManufactureTimestamp)
	require.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", record.Producer)
	require.Equal(t, models.StatusShipped, record.Status)
}

func TestReadShipmentZeroTupleMeansNotOnChain(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		return encodeShipmentTuple(0, "", 0, 0, "0000000000000000000000000000000000000000", 0), nil
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 99)

	require.ErrorIs(t, err, ErrNotOnChain)
}

func TestReadShipmentRevertIsNotRetried(t *testing.T) {
	calls := 0
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		calls++
		return "", &rpcError{Code: 3, Message: "execution reverted"}
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	var rpcErr *rpcError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, 1, calls)
}

func TestReadShipmentRetriesThrottling(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		calls++
		if calls < 3 {
			return "", &rpcError{Code: rpcCodeLimitExceeded, Message: "limit exceeded"}
		}
		return encodeShipmentTuple(7, "Widget", 25, uint64(ts.Unix()), "abcdef0123456789abcdef0123456789abcdef01", 4), nil
	})
	defer server.Close()

	record, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.NoError(t, err)
	require.Equal(t, models.StatusForSale, record.Status)
	require.Equal(t, 3, calls)
}

func TestReadShipmentRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	// Initial attempt plus MaxRetries
	require.Equal(t, 3, calls)
}

func TestReadShipmentTruncatedReturnData(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		return "0x0000", nil
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotOnChain)
}

// A hostile node can return offset and length words near 2^64 so that naive
// "offset+32 > len" guards wrap around and the slice panics. Decoding must
// fail cleanly instead.
func TestReadShipmentRejectsOverflowingNameOffset(t *testing.T) {
	valid := encodeShipmentTuple(7, "Widget", 25, 1709290800, "abcdef0123456789abcdef0123456789abcdef01", 1)
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		// 2^64-16: wraps to 16 under unchecked addition
		return withWord(valid, 1, ^uint64(0)-15), nil
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestReadShipmentRejectsOverflowingNameLength(t *testing.T) {
	valid := encodeShipmentTuple(7, "Widget", 25, 1709290800, "abcdef0123456789abcdef0123456789abcdef01", 1)
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		raw, _ := hex.DecodeString(strings.TrimPrefix(valid, "0x"))
		// The length word sits at the name offset, past the six head words
		copy(raw[6*wordSize:7*wordSize], encodeUint256(new(big.Int).SetUint64(^uint64(0))))
		return "0x" + hex.EncodeToString(raw), nil
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestReadShipmentRejectsTruncatedStatusIndex(t *testing.T) {
	valid := encodeShipmentTuple(7, "Widget", 25, 1709290800, "abcdef0123456789abcdef0123456789abcdef01", 1)
	server := newRPCServer(t, func(req rpcRequest) (string, *rpcError) {
		// 256 would truncate to 0 (CREATED) under a bare uint8 conversion
		return withWord(valid, 5, 256), nil
	})
	defer server.Close()

	_, err := testClient(server.URL).ReadShipment(context.Background(), 7)

	require.Error(t, err)
	require.Contains(t, err.Error(), "status index")
}

func TestSelectorMatchesKeccak(t *testing.T) {
	// keccak256("shipments(uint256)")[:4]
	require.Equal(t, "2ac08a93", hex.EncodeToString(shipmentsSelector))
}
