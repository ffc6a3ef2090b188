// Package ledger reads shipment state from the deployed supply-chain
// contract. The contract is externally owned: this service never writes to
// it, it only resolves the on-chain status that a transaction hash has
// already justified.
package ledger

import (
	"context"
	"errors"
	"time"

	"example.com/supplychain/services/tracker/internal/models"
)

// ErrNotOnChain indicates the queried identifier has never been written to
// the contract. It is a business outcome, not a transport failure, and is
// never retried.
var ErrNotOnChain = errors.New("shipment not found on chain")

// ShipmentRecord is the contract's view of a shipment, decoded from the
// public shipments(uint256) getter.
type ShipmentRecord struct {
	ID                   uint64
	Name                 string
	Quantity             uint64
	ManufactureTimestamp time.Time
	Producer             string
	Status               models.ShipmentStatus
}

// Reader resolves a ledger-style numeric identifier to its on-chain record.
type Reader interface {
	ReadShipment(ctx context.Context, id uint64) (*ShipmentRecord, error)
}
