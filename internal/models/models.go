package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ShipmentStatus is the lifecycle stage of a shipment
type ShipmentStatus string

const (
	StatusCreated  ShipmentStatus = "CREATED"
	StatusShipped  ShipmentStatus = "SHIPPED"
	StatusReceived ShipmentStatus = "RECEIVED"
	StatusAudited  ShipmentStatus = "AUDITED"
	StatusForSale  ShipmentStatus = "FOR_SALE"
)

// statusOrder is the nominal linear progression. The deployed contract
// enforces ordering; this table is used for display and for mapping the
// on-chain status index, not for rejecting transitions.
var statusOrder = []ShipmentStatus{
	StatusCreated,
	StatusShipped,
	StatusReceived,
	StatusAudited,
	StatusForSale,
}

// Statuses returns the lifecycle stages in order.
func Statuses() []ShipmentStatus {
	out := make([]ShipmentStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// ParseStatus validates a raw status string against the closed status set.
func ParseStatus(raw string) (ShipmentStatus, error) {
	s := ShipmentStatus(raw)
	for _, known := range statusOrder {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown shipment status %q", raw)
}

// StatusFromIndex maps the contract's uint8 status index (0..4) onto the enum.
func StatusFromIndex(idx uint8) (ShipmentStatus, error) {
	if int(idx) >= len(statusOrder) {
		return "", fmt.Errorf("on-chain status index %d out of range", idx)
	}
	return statusOrder[idx], nil
}

// Index returns the position of the status in the lifecycle, 0..4.
func (s ShipmentStatus) Index() int {
	for i, known := range statusOrder {
		if s == known {
			return i
		}
	}
	return -1
}

// Next returns the nominal successor status and false when s is terminal.
func (s ShipmentStatus) Next() (ShipmentStatus, bool) {
	i := s.Index()
	if i < 0 || i == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[i+1], true
}

// Terminal reports whether the status is the end of the lifecycle.
func (s ShipmentStatus) Terminal() bool {
	return s == StatusForSale
}

// Shipment is the tracked unit of goods moving through the lifecycle.
//
// ShipmentID is the externally visible identifier, caller supplied and
// immutable. TransactionHash identifies the ledger transaction that most
// recently justified the current status; NULL until the first confirmed
// transition so the unique index only applies when a hash is present.
type Shipment struct {
	Model
	ShipmentID        string               `json:"shipmentId" gorm:"uniqueIndex;Column:shipment_id"`
	ProductName       string               `json:"productName" gorm:"Column:product_name"`
	Quantity          int64                `json:"quantity" gorm:"Column:quantity;check:quantity >= 0"`
	ManufacturingDate time.Time            `json:"manufacturingDate" gorm:"Column:manufacturing_date"`
	Status            ShipmentStatus       `json:"status" gorm:"Column:status;default:CREATED"`
	TransactionHash   *string              `json:"transactionHash,omitempty" gorm:"uniqueIndex;Column:transaction_hash"`
	ProducerAddress   string               `json:"producerAddress" gorm:"index;Column:producer_address"`
	IPFSHash          string               `json:"ipfsHash,omitempty" gorm:"Column:ipfs_hash"`
	StatusHistory     []StatusHistoryEntry `json:"statusHistory" gorm:"foreignKey:ShipmentRecordID"`
}

// StatusHistoryEntry is one confirmed transition. Entries are append-only:
// they are created alongside a status change and never updated.
type StatusHistoryEntry struct {
	ID               uint           `json:"-" gorm:"primarykey"`
	ShipmentRecordID uint           `json:"-" gorm:"index;Column:shipment_record_id"`
	Status           ShipmentStatus `json:"status" gorm:"Column:status"`
	TransactionHash  string         `json:"transactionHash,omitempty" gorm:"Column:transaction_hash"`
	ChangedAt        time.Time      `json:"changedAt" gorm:"Column:changed_at"`
}

// TxHash returns the current transaction hash or the empty string.
func (s *Shipment) TxHash() string {
	if s.TransactionHash == nil {
		return ""
	}
	return *s.TransactionHash
}

// AuthorizationLevel represents the level of access for an API key
type AuthorizationLevel int

const (
	// ViewerAuthLevel represents read-only access
	ViewerAuthLevel AuthorizationLevel = 1
	// WriterAuthLevel represents read-write access
	WriterAuthLevel AuthorizationLevel = 2
	// AdminAuthLevel represents administrative access
	AdminAuthLevel AuthorizationLevel = 3
)

// APIKey represents an API token with associated access level
type APIKey struct {
	Model
	Key                string             `json:"key" gorm:"uniqueIndex;Column:key"`
	Name               string             `json:"name" gorm:"Column:name"`
	AuthorizationLevel AuthorizationLevel `json:"authorization_level" gorm:"Column:authorization_level"`
	ExpiresAt          *time.Time         `json:"expires_at" gorm:"Column:expires_at"`
	LastUsedAt         *time.Time         `json:"last_used_at" gorm:"Column:last_used_at"`
}

// Principal is the authenticated caller derived from a validated API key.
// It is passed explicitly into tracker operations rather than read from
// ambient state.
type Principal struct {
	KeyID uint
	Name  string
	Level AuthorizationLevel
}

// CanWrite reports whether the principal may perform mutating operations.
func (p Principal) CanWrite() bool {
	return p.Level >= WriterAuthLevel
}
