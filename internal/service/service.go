package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"example.com/supplychain/services/tracker/internal/cache"
	"example.com/supplychain/services/tracker/internal/documents"
	"example.com/supplychain/services/tracker/internal/ledger"
	"example.com/supplychain/services/tracker/internal/messaging"
	"example.com/supplychain/services/tracker/internal/models"
	"example.com/supplychain/services/tracker/internal/repository"
	"example.com/supplychain/services/tracker/internal/search"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	minPageSize     = 1
	maxPageSize     = 100
	defaultPageSize = 20

	shipmentCacheTTL = 30 * time.Second
	statsCacheTTL    = 30 * time.Second
)

// CreateShipmentInput carries the caller-supplied fields for Create. The
// field set is closed; unknown body fields are rejected at the HTTP layer.
type CreateShipmentInput struct {
	ShipmentID        string
	ProductName       string
	Quantity          *int64
	ManufacturingDate string
	Status            string
	TransactionHash   string
	ProducerAddress   string
}

// FieldUpdate carries the optional fields for UpdateFields. Nil means
// "leave untouched".
type FieldUpdate struct {
	Status          *string
	TransactionHash *string
	IPFSHash        *string
}

// ListQuery narrows and pages the shipment listing
type ListQuery struct {
	Status          string
	TextQuery       string
	ProducerAddress string
	From            string
	To              string
	Page            int
	PageSize        int
	Sort            string
}

// ShipmentStats is the aggregate returned by Stats
type ShipmentStats struct {
	TotalShipments int64                 `json:"totalShipments"`
	FinalStatus    models.ShipmentStatus `json:"finalStatus"`
	FinalShipments int64                 `json:"finalShipments"`
}

// Service defines the shipment lifecycle tracker operations
type Service interface {
	CreateShipment(ctx context.Context, principal models.Principal, input CreateShipmentInput) (*models.Shipment, error)
	GetShipment(ctx context.Context, identifier string) (*models.Shipment, error)
	ListShipments(ctx context.Context, query ListQuery) ([]*models.Shipment, int64, error)
	UpdateShipmentStatus(ctx context.Context, principal models.Principal, shipmentID, newStatus, transactionHash string) (*models.Shipment, error)
	UpdateShipmentFields(ctx context.Context, principal models.Principal, identifier string, update FieldUpdate) (*models.Shipment, error)
	AttachDocument(ctx context.Context, principal models.Principal, identifier string, file io.Reader, filename string) (*models.Shipment, error)
	ShipmentStats(ctx context.Context, finalStatus string) (*ShipmentStats, error)
	SearchShipments(ctx context.Context, text string, size int) ([]json.RawMessage, error)
	ReadOnChain(ctx context.Context, identifier string) (*ledger.ShipmentRecord, error)

	ReconcileWithLedger(ctx context.Context, shipments []*models.Shipment) ([]*models.Shipment, ReconcileReport)
	ReconcileRecent(ctx context.Context) (ReconcileReport, error)
}

// service is an implementation of the Service interface
type service struct {
	repo    repository.Repository
	cache   cache.RedisClient
	bus     messaging.ServiceBusClient
	search  search.Client
	ledger  ledger.Reader
	pinner  documents.Pinner
	log     *logrus.Logger
	persist bool
	batch   int
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository       repository.Repository
	Cache            cache.RedisClient
	MessagingClient  messaging.ServiceBusClient
	SearchClient     search.Client
	LedgerReader     ledger.Reader
	DocumentPinner   documents.Pinner
	Logger           *logrus.Logger
	ReconcilePersist bool
	ReconcileBatch   int
}

// NewService creates a new service instance
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = 50
	}

	return &service{
		repo:    cfg.Repository,
		cache:   cfg.Cache,
		bus:     cfg.MessagingClient,
		search:  cfg.SearchClient,
		ledger:  cfg.LedgerReader,
		pinner:  cfg.DocumentPinner,
		log:     cfg.Logger,
		persist: cfg.ReconcilePersist,
		batch:   cfg.ReconcileBatch,
	}, nil
}

// parseManufacturingDate accepts RFC 3339 timestamps and bare calendar dates
func parseManufacturingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// CreateShipment validates, normalizes and persists a new shipment with
// status CREATED (or the caller-supplied status). Conflict checks and the
// insert run inside one transaction so no partial write survives a failure.
func (s *service) CreateShipment(ctx context.Context, principal models.Principal, input CreateShipmentInput) (*models.Shipment, error) {
	var missing []string
	if strings.TrimSpace(input.ShipmentID) == "" {
		missing = append(missing, "shipmentId")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		missing = append(missing, "productName")
	}
	if input.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if strings.TrimSpace(input.ManufacturingDate) == "" {
		missing = append(missing, "manufacturingDate")
	}
	if strings.TrimSpace(input.ProducerAddress) == "" {
		missing = append(missing, "producerAddress")
	}
	if len(missing) > 0 {
		return nil, NewValidationError("missing required fields", missing...)
	}

	if *input.Quantity < 0 {
		return nil, NewValidationError("quantity must be a non-negative number", "quantity")
	}

	manufacturingDate, err := parseManufacturingDate(input.ManufacturingDate)
	if err != nil {
		return nil, NewValidationError("manufacturingDate must be a valid date", "manufacturingDate")
	}

	status := models.StatusCreated
	if strings.TrimSpace(input.Status) != "" {
		status, err = models.ParseStatus(strings.TrimSpace(input.Status))
		if err != nil {
			return nil, NewValidationError("status must be one of the lifecycle stages", "status")
		}
	}

	shipment := &models.Shipment{
		ShipmentID:        strings.TrimSpace(input.ShipmentID),
		ProductName:       strings.TrimSpace(input.ProductName),
		Quantity:          *input.Quantity,
		ManufacturingDate: manufacturingDate,
		Status:            status,
		ProducerAddress:   strings.ToLower(strings.TrimSpace(input.ProducerAddress)),
	}
	if trimmed := strings.TrimSpace(input.TransactionHash); trimmed != "" {
		shipment.TransactionHash = &trimmed
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if _, err := txRepo.FindShipmentByShipmentID(ctx, shipment.ShipmentID); err == nil {
			return &ConflictError{Field: "shipmentId", Value: shipment.ShipmentID}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if shipment.TransactionHash != nil {
			if _, err := txRepo.FindShipmentByTransactionHash(ctx, *shipment.TransactionHash); err == nil {
				return &ConflictError{Field: "transactionHash", Value: *shipment.TransactionHash}
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		if err := txRepo.CreateShipment(ctx, shipment); err != nil {
			// The unique index is the backstop for races the pre-checks miss
			if errors.Is(err, repository.ErrDuplicateKey) {
				return &ConflictError{Field: "shipmentId", Value: shipment.ShipmentID}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipment.ShipmentID,
		"status":      shipment.Status,
		"principal":   principal.Name,
	}).Info("Shipment created")

	s.invalidateStats(ctx)
	s.publishEvent(ctx, &models.ShipmentEvent{
		EventID:         uuid.NewString(),
		EventType:       models.EventShipmentCreated,
		ShipmentID:      shipment.ShipmentID,
		Status:          shipment.Status,
		TransactionHash: shipment.TxHash(),
		ProducerAddress: shipment.ProducerAddress,
		OccurredAt:      time.Now().UTC(),
	})
	s.indexShipment(ctx, shipment)

	return shipment, nil
}

// GetShipment resolves either the external shipmentId or the internal
// numeric storage key, in that order of preference.
func (s *service) GetShipment(ctx context.Context, identifier string) (*models.Shipment, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewValidationError("missing required fields", "id")
	}

	if cached := s.cachedShipment(ctx, identifier); cached != nil {
		return cached, nil
	}

	shipment, err := s.repo.FindShipmentByShipmentID(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		if key, convErr := strconv.ParseUint(identifier, 10, 64); convErr == nil {
			shipment, err = s.repo.FindShipmentByID(ctx, uint(key))
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Identifier: identifier}
		}
		return nil, err
	}

	s.cacheShipment(ctx, identifier, shipment)
	return shipment, nil
}

// ListShipments applies the filter with clamped pagination. The returned
// total counts every match regardless of paging.
func (s *service) ListShipments(ctx context.Context, query ListQuery) ([]*models.Shipment, int64, error) {
	filter := repository.ShipmentFilter{
		TextQuery:       strings.TrimSpace(query.TextQuery),
		ProducerAddress: strings.ToLower(strings.TrimSpace(query.ProducerAddress)),
		Sort:            query.Sort,
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return nil, 0, NewValidationError("status must be one of the lifecycle stages", "status")
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(query.From); raw != "" {
		from, err := parseManufacturingDate(raw)
		if err != nil {
			return nil, 0, NewValidationError("from must be a valid date", "from")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(query.To); raw != "" {
		to, err := parseManufacturingDate(raw)
		if err != nil {
			return nil, 0, NewValidationError("to must be a valid date", "to")
		}
		// An end bound covers the entire calendar day
		to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), to.Location())
		filter.To = &to
	}

	filter.Page = query.Page
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.PageSize = query.PageSize
	if filter.PageSize == 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize < minPageSize {
		filter.PageSize = minPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	return s.repo.ListShipments(ctx, filter)
}

// EffectivePageSize exposes the clamping rule for the HTTP layer's response
// metadata.
func EffectivePageSize(requested int) int {
	if requested == 0 {
		return defaultPageSize
	}
	if requested < minPageSize {
		return minPageSize
	}
	if requested > maxPageSize {
		return maxPageSize
	}
	return requested
}

// UpdateShipmentStatus applies a ledger-confirmed transition. The caller's
// transaction hash is trusted as proof the transition was authorized and
// confirmed on-chain; ordering is not re-checked locally. Every successful
// call appends exactly one history entry.
func (s *service) UpdateShipmentStatus(ctx context.Context, principal models.Principal, shipmentID, newStatus, transactionHash string) (*models.Shipment, error) {
	var missing []string
	if strings.TrimSpace(shipmentID) == "" {
		missing = append(missing, "shipmentId")
	}
	if strings.TrimSpace(newStatus) == "" {
		missing = append(missing, "newStatus")
	}
	if strings.TrimSpace(transactionHash) == "" {
		missing = append(missing, "transactionHash")
	}
	if len(missing) > 0 {
		return nil, NewValidationError("missing required fields", missing...)
	}

	status, err := models.ParseStatus(strings.TrimSpace(newStatus))
	if err != nil {
		return nil, NewValidationError("newStatus must be one of the lifecycle stages", "newStatus")
	}
	txHash := strings.TrimSpace(transactionHash)
	shipmentID = strings.TrimSpace(shipmentID)

	var shipment *models.Shipment
	var previous models.ShipmentStatus
	err = s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		var err error
		shipment, err = txRepo.FindShipmentByShipmentID(ctx, shipmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Identifier: shipmentID}
			}
			return err
		}

		if owner, err := txRepo.FindShipmentByTransactionHash(ctx, txHash); err == nil {
			if owner.ID != shipment.ID {
				return &ConflictError{Field: "transactionHash", Value: txHash}
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		previous = shipment.Status
		shipment.Status = status
		shipment.TransactionHash = &txHash

		if err := txRepo.SaveShipment(ctx, shipment); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return &ConflictError{Field: "transactionHash", Value: txHash}
			}
			return err
		}

		entry := &models.StatusHistoryEntry{
			ShipmentRecordID: shipment.ID,
			Status:           status,
			TransactionHash:  txHash,
			ChangedAt:        time.Now().UTC(),
		}
		if err := txRepo.AppendStatusHistory(ctx, entry); err != nil {
			return err
		}
		shipment.StatusHistory = append(shipment.StatusHistory, *entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipment.ShipmentID,
		"from":        previous,
		"to":          status,
		"tx_hash":     txHash,
		"principal":   principal.Name,
	}).Info("Shipment status updated")

	s.invalidateShipment(ctx, shipment)
	s.publishEvent(ctx, &models.ShipmentEvent{
		EventID:         uuid.NewString(),
		EventType:       models.EventShipmentStatusChanged,
		ShipmentID:      shipment.ShipmentID,
		Status:          status,
		PreviousStatus:  previous,
		TransactionHash: txHash,
		ProducerAddress: shipment.ProducerAddress,
		OccurredAt:      time.Now().UTC(),
	})
	s.indexShipment(ctx, shipment)

	return shipment, nil
}

// UpdateShipmentFields updates any subset of status, transactionHash and
// ipfsHash. A status change through this path appends a history entry the
// same way UpdateShipmentStatus does: every persisted status change grows
// the history, whichever operation carried it. A supplied transactionHash
// must be non-empty; a hash once recorded is never blanked out.
func (s *service) UpdateShipmentFields(ctx context.Context, principal models.Principal, identifier string, update FieldUpdate) (*models.Shipment, error) {
	if update.Status == nil && update.TransactionHash == nil && update.IPFSHash == nil {
		return nil, NewValidationError("no fields to update; send status, transactionHash or ipfsHash")
	}
	if update.TransactionHash != nil && strings.TrimSpace(*update.TransactionHash) == "" {
		return nil, NewValidationError("transactionHash must not be empty", "transactionHash")
	}

	var status models.ShipmentStatus
	if update.Status != nil {
		var err error
		status, err = models.ParseStatus(strings.TrimSpace(*update.Status))
		if err != nil {
			return nil, NewValidationError("status must be one of the lifecycle stages", "status")
		}
	}

	var shipment *models.Shipment
	var previous models.ShipmentStatus
	statusChanged := false
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		var err error
		shipment, err = findByIdentifier(ctx, txRepo, identifier)
		if err != nil {
			return err
		}

		var appliedTx string
		if update.TransactionHash != nil {
			newTx := strings.TrimSpace(*update.TransactionHash)
			if newTx != shipment.TxHash() {
				if owner, err := txRepo.FindShipmentByTransactionHash(ctx, newTx); err == nil {
					if owner.ID != shipment.ID {
						return &ConflictError{Field: "transactionHash", Value: newTx}
					}
				} else if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				shipment.TransactionHash = &newTx
				appliedTx = newTx
			}
		}

		previous = shipment.Status
		if update.Status != nil && status != shipment.Status {
			shipment.Status = status
			statusChanged = true
		}
		if update.IPFSHash != nil {
			shipment.IPFSHash = strings.TrimSpace(*update.IPFSHash)
		}

		if err := txRepo.SaveShipment(ctx, shipment); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return &ConflictError{Field: "transactionHash", Value: shipment.TxHash()}
			}
			return err
		}

		if statusChanged {
			entry := &models.StatusHistoryEntry{
				ShipmentRecordID: shipment.ID,
				Status:           shipment.Status,
				TransactionHash:  appliedTx,
				ChangedAt:        time.Now().UTC(),
			}
			if err := txRepo.AppendStatusHistory(ctx, entry); err != nil {
				return err
			}
			shipment.StatusHistory = append(shipment.StatusHistory, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipment.ShipmentID,
		"principal":   principal.Name,
	}).Info("Shipment updated")

	s.invalidateShipment(ctx, shipment)
	if statusChanged {
		s.publishEvent(ctx, &models.ShipmentEvent{
			EventID:         uuid.NewString(),
			EventType:       models.EventShipmentStatusChanged,
			ShipmentID:      shipment.ShipmentID,
			Status:          shipment.Status,
			PreviousStatus:  previous,
			TransactionHash: shipment.TxHash(),
			ProducerAddress: shipment.ProducerAddress,
			OccurredAt:      time.Now().UTC(),
		})
	}
	s.indexShipment(ctx, shipment)

	return shipment, nil
}

// AttachDocument pins the uploaded file and stores the resulting content
// identifier on the shipment.
func (s *service) AttachDocument(ctx context.Context, principal models.Principal, identifier string, file io.Reader, filename string) (*models.Shipment, error) {
	if s.pinner == nil {
		return nil, errors.New("document pinning is not configured")
	}

	// Resolve first so an unknown shipment fails before the upload
	shipment, err := s.GetShipment(ctx, identifier)
	if err != nil {
		return nil, err
	}

	cid, err := s.pinner.PinFile(ctx, file, filename)
	if err != nil {
		return nil, &TransientExternalError{Cause: err}
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipment.ShipmentID,
		"ipfs_hash":   cid,
		"principal":   principal.Name,
	}).Info("Document pinned")

	return s.UpdateShipmentFields(ctx, principal, shipment.ShipmentID, FieldUpdate{IPFSHash: &cid})
}

// ShipmentStats returns the total shipment count and the count of shipments
// in the final status (FOR_SALE unless overridden).
func (s *service) ShipmentStats(ctx context.Context, finalStatus string) (*ShipmentStats, error) {
	status := models.StatusForSale
	if raw := strings.TrimSpace(finalStatus); raw != "" {
		var err error
		status, err = models.ParseStatus(raw)
		if err != nil {
			return nil, NewValidationError("finalStatus must be one of the lifecycle stages", "finalStatus")
		}
	}

	cacheKey := "shipments:stats:" + string(status)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
			var stats ShipmentStats
			if json.Unmarshal([]byte(raw), &stats) == nil {
				return &stats, nil
			}
		}
	}

	total, err := s.repo.CountShipments(ctx)
	if err != nil {
		return nil, err
	}
	finalCount, err := s.repo.CountShipmentsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	stats := &ShipmentStats{
		TotalShipments: total,
		FinalStatus:    status,
		FinalShipments: finalCount,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), statsCacheTTL); err != nil {
				s.log.WithError(err).Debug("Failed to cache stats")
			}
		}
	}

	return stats, nil
}

// SearchShipments queries the optional Elasticsearch index
func (s *service) SearchShipments(ctx context.Context, text string, size int) ([]json.RawMessage, error) {
	if s.search == nil {
		return nil, NewValidationError("search is not enabled")
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError("missing required fields", "q")
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return s.search.SearchShipments(ctx, strings.TrimSpace(text), size)
}

// ReadOnChain reads the ledger's view of a numeric shipment identifier
func (s *service) ReadOnChain(ctx context.Context, identifier string) (*ledger.ShipmentRecord, error) {
	if s.ledger == nil {
		return nil, errors.New("ledger reader is not configured")
	}
	id, ok := numericShipmentID(identifier)
	if !ok {
		return nil, NewValidationError("identifier is not a ledger-style numeric id", "id")
	}
	record, err := s.ledger.ReadShipment(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotOnChain) {
			return nil, &NotFoundError{Identifier: identifier}
		}
		return nil, &TransientExternalError{Cause: err}
	}
	return record, nil
}

// findByIdentifier resolves shipmentId first, then the numeric storage key
func findByIdentifier(ctx context.Context, repo repository.Repository, identifier string) (*models.Shipment, error) {
	identifier = strings.TrimSpace(identifier)
	shipment, err := repo.FindShipmentByShipmentID(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		if key, convErr := strconv.ParseUint(identifier, 10, 64); convErr == nil {
			shipment, err = repo.FindShipmentByID(ctx, uint(key))
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Identifier: identifier}
		}
		return nil, err
	}
	return shipment, nil
}

// numericShipmentID reports whether the external identifier is ledger-style
// numeric and returns its value.
func numericShipmentID(identifier string) (uint64, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(identifier, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Best-effort side effects. Failures are logged, never surfaced: the store
// write already succeeded and stays authoritative.

func (s *service) publishEvent(ctx context.Context, event *models.ShipmentEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.SendMessage(ctx, event, event.ShipmentID); err != nil {
		s.log.WithError(err).WithField("event_type", event.EventType).Warn("Failed to publish shipment event")
	}
}

func (s *service) indexShipment(ctx context.Context, shipment *models.Shipment) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexShipment(ctx, shipment); err != nil {
		s.log.WithError(err).WithField("shipment_id", shipment.ShipmentID).Warn("Failed to index shipment")
	}
}

func (s *service) cacheShipment(ctx context.Context, identifier string, shipment *models.Shipment) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(shipment)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, "shipment:"+identifier, string(raw), shipmentCacheTTL); err != nil {
		s.log.WithError(err).Debug("Failed to cache shipment")
	}
}

func (s *service) cachedShipment(ctx context.Context, identifier string) *models.Shipment {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, "shipment:"+identifier)
	if err != nil {
		return nil
	}
	var shipment models.Shipment
	if err := json.Unmarshal([]byte(raw), &shipment); err != nil {
		return nil
	}
	return &shipment
}

func (s *service) invalidateShipment(ctx context.Context, shipment *models.Shipment) {
	if s.cache == nil {
		return
	}
	keys := []string{
		"shipment:" + shipment.ShipmentID,
		"shipment:" + strconv.FormatUint(uint64(shipment.ID), 10),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil && !errors.Is(err, cache.Nil) {
			s.log.WithError(err).Debug("Failed to invalidate shipment cache")
		}
	}
	s.invalidateStats(ctx)
}

// invalidateStats drops every cached stats aggregate; any write can change
// the counts, and the finalStatus the caller cached under is not known here.
func (s *service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, status := range models.Statuses() {
		if err := s.cache.Delete(ctx, "shipments:stats:"+string(status)); err != nil && !errors.Is(err, cache.Nil) {
			s.log.WithError(err).Debug("Failed to invalidate stats cache")
		}
	}
}
