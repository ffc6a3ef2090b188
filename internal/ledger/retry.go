package ledger

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// JSON-RPC codes that indicate throttling or temporary node overload
const (
	rpcCodeLimitExceeded = -32005
	rpcCodeResourceBusy  = -32002
)

// IsRetryable classifies an error as a transient transport failure. Business
// outcomes (revert, not-on-chain, malformed data) always report false so a
// retry loop never masks them.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotOnChain) {
		return false
	}
	return isRetryableRPCError(err) || isRetryableHTTPError(err) || isRetryableNetworkError(err) || isRetryableSystemError(err)
}

func isRetryableRPCError(err error) bool {
	var rpcErr *rpcError
	if !errors.As(err, &rpcErr) {
		return false
	}
	switch rpcErr.Code {
	case rpcCodeLimitExceeded, rpcCodeResourceBusy:
		return true
	}
	// Reverts, invalid params, method-not-found: never retry
	return false
}

func isRetryableHTTPError(err error) bool {
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	// 5xx: node trouble. 429: throttled. Both worth another attempt.
	return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
}

func isRetryableNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	return false
}

func isRetryableSystemError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}

// withRetry runs fn up to maxRetries+1 times with exponential backoff between
// attempts, retrying only errors IsRetryable accepts. Context cancellation
// stops the loop immediately.
func withRetry(ctx context.Context, maxRetries int, baseWait time.Duration, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseWait <= 0 {
		baseWait = 500 * time.Millisecond
	}

	wait := baseWait
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
