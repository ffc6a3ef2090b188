package models

import "time"

// Shipment lifecycle event types published to the message bus
const (
	EventShipmentCreated       = "shipment.created"
	EventShipmentStatusChanged = "shipment.status_changed"
	EventShipmentReconciled    = "shipment.reconciled"
)

// ShipmentEvent is the message published on shipment lifecycle changes.
type ShipmentEvent struct {
	EventID         string         `json:"event_id"`
	EventType       string         `json:"event_type"`
	ShipmentID      string         `json:"shipment_id"`
	Status          ShipmentStatus `json:"status"`
	PreviousStatus  ShipmentStatus `json:"previous_status,omitempty"`
	TransactionHash string         `json:"transaction_hash,omitempty"`
	ProducerAddress string         `json:"producer_address,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
}
