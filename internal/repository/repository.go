package repository

import (
	"context"
	"errors"
	"time"

	"example.com/supplychain/services/tracker/internal/database"
	"example.com/supplychain/services/tracker/internal/models"

	"gorm.io/gorm"
)

// ShipmentFilter narrows ListShipments. Zero values mean "no constraint".
// Page and PageSize are expected to be pre-clamped by the caller.
type ShipmentFilter struct {
	Status          models.ShipmentStatus
	TextQuery       string
	ProducerAddress string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
	Sort            string
}

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// Shipment operations
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	SaveShipment(ctx context.Context, shipment *models.Shipment) error
	FindShipmentByID(ctx context.Context, id uint) (*models.Shipment, error)
	FindShipmentByShipmentID(ctx context.Context, shipmentID string) (*models.Shipment, error)
	FindShipmentByTransactionHash(ctx context.Context, txHash string) (*models.Shipment, error)
	ListShipments(ctx context.Context, filter ShipmentFilter) ([]*models.Shipment, int64, error)
	ListNumericShipments(ctx context.Context, limit int) ([]*models.Shipment, error)
	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	CountShipments(ctx context.Context) (int64, error)
	CountShipmentsByStatus(ctx context.Context, status models.ShipmentStatus) (int64, error)

	// APIKey operations
	CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// Helper type for transaction support
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}

// translateError maps gorm errors onto the repository sentinel errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}

// Shipment operations implementation

func (r *repo) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translateError(gormDB.WithContext(ctx).Create(shipment).Error)
}

func (r *repo) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	// Save would also upsert history associations; the history table is
	// append-only and written through AppendStatusHistory instead.
	return translateError(gormDB.WithContext(ctx).Omit("StatusHistory").Save(shipment).Error)
}

func (r *repo) FindShipmentByID(ctx context.Context, id uint) (*models.Shipment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var shipment models.Shipment
	if err := gormDB.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC, id ASC")
		}).
		First(&shipment, id).Error; err != nil {
		return nil, translateError(err)
	}

	return &shipment, nil
}

func (r *repo) FindShipmentByShipmentID(ctx context.Context, shipmentID string) (*models.Shipment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var shipment models.Shipment
	if err := gormDB.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC, id ASC")
		}).
		Where("shipment_id = ?", shipmentID).
		First(&shipment).Error; err != nil {
		return nil, translateError(err)
	}

	return &shipment, nil
}

func (r *repo) FindShipmentByTransactionHash(ctx context.Context, txHash string) (*models.Shipment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var shipment models.Shipment
	if err := gormDB.WithContext(ctx).
		Where("transaction_hash = ?", txHash).
		First(&shipment).Error; err != nil {
		return nil, translateError(err)
	}

	return &shipment, nil
}

// sortColumns whitelists the sortable columns exposed through the API
var sortColumns = map[string]string{
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
	"manufacturingDate": "manufacturing_date",
	"productName":       "product_name",
	"status":            "status",
}

// orderClause converts an API sort key ("-createdAt", "productName") into a
// SQL ORDER BY clause, defaulting to newest first.
func orderClause(sort string) string {
	desc := false
	if len(sort) > 0 && sort[0] == '-' {
		desc = true
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "created_at DESC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

func (r *repo) ListShipments(ctx context.Context, filter ShipmentFilter) ([]*models.Shipment, int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := gormDB.WithContext(ctx).Model(&models.Shipment{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TextQuery != "" {
		query = query.Where("product_name ILIKE ?", "%"+filter.TextQuery+"%")
	}
	if filter.ProducerAddress != "" {
		query = query.Where("producer_address = ?", filter.ProducerAddress)
	}
	if filter.From != nil {
		query = query.Where("manufacturing_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("manufacturing_date <= ?", *filter.To)
	}

	// Total count is independent of page/pageSize
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shipments []*models.Shipment
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order(orderClause(filter.Sort)).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&shipments).Error; err != nil {
		return nil, 0, err
	}

	return shipments, total, nil
}

// ListNumericShipments returns the most recently updated shipments whose
// external identifier is ledger-style numeric, i.e. candidates for on-chain
// reconciliation. Locally minted placeholder identifiers never match.
func (r *repo) ListNumericShipments(ctx context.Context, limit int) ([]*models.Shipment, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var shipments []*models.Shipment
	if err := gormDB.WithContext(ctx).
		Where("shipment_id ~ '^[0-9]+$'").
		Order("updated_at DESC").
		Limit(limit).
		Find(&shipments).Error; err != nil {
		return nil, err
	}

	return shipments, nil
}

func (r *repo) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translateError(gormDB.WithContext(ctx).Create(entry).Error)
}

func (r *repo) CountShipments(ctx context.Context) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).Model(&models.Shipment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) CountShipmentsByStatus(ctx context.Context, status models.ShipmentStatus) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// APIKey operations implementation

func (r *repo) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translateError(gormDB.WithContext(ctx).Create(apiKey).Error)
}

func (r *repo) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKey models.APIKey
	if err := gormDB.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error; err != nil {
		return nil, translateError(err)
	}

	return &apiKey, nil
}

func (r *repo) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return translateError(gormDB.WithContext(ctx).Save(apiKey).Error)
}

func (r *repo) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var keys []*models.APIKey
	if err := gormDB.WithContext(ctx).Order("id ASC").Find(&keys).Error; err != nil {
		return nil, err
	}

	return keys, nil
}
