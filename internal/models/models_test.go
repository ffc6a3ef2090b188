package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"CREATED", "SHIPPED", "RECEIVED", "AUDITED", "FOR_SALE"} {
		status, err := ParseStatus(raw)
		require.NoError(t, err)
		require.Equal(t, ShipmentStatus(raw), status)
	}

	_, err := ParseStatus("created")
	require.Error(t, err)
	_, err = ParseStatus("IN_TRANSIT")
	require.Error(t, err)
}

func TestStatusFromIndex(t *testing.T) {
	status, err := StatusFromIndex(0)
	require.NoError(t, err)
	require.Equal(t, StatusCreated, status)

	status, err = StatusFromIndex(4)
	require.NoError(t, err)
	require.Equal(t, StatusForSale, status)

	_, err = StatusFromIndex(5)
	require.Error(t, err)
}

func TestStatusesReturnsLifecycleInOrder(t *testing.T) {
	require.Equal(t,
		[]ShipmentStatus{StatusCreated, StatusShipped, StatusReceived, StatusAudited, StatusForSale},
		Statuses())
}

func TestStatusProgression(t *testing.T) {
	next, ok := StatusCreated.Next()
	require.True(t, ok)
	require.Equal(t, StatusShipped, next)

	_, ok = StatusForSale.Next()
	require.False(t, ok)
	require.True(t, StatusForSale.Terminal())
	require.False(t, StatusAudited.Terminal())
}

func TestTxHash(t *testing.T) {
	var s Shipment
	require.Equal(t, "", s.TxHash())

	hash := "0xfeed"
	s.TransactionHash = &hash
	require.Equal(t, "0xfeed", s.TxHash())
}
