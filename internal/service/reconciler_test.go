package service

import (
	"context"
	"errors"
	"testing"

	"example.com/supplychain/services/tracker/internal/ledger"
	"example.com/supplychain/services/tracker/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeLedger serves canned per-id records and failures
type fakeLedger struct {
	records map[uint64]*ledger.ShipmentRecord
	errs    map[uint64]error
	reads   int
}

func (f *fakeLedger) ReadShipment(ctx context.Context, id uint64) (*ledger.ShipmentRecord, error) {
	f.reads++
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	if rec, ok := f.records[id]; ok {
		return rec, nil
	}
	return nil, ledger.ErrNotOnChain
}

func newReconcileService(repo *MockRepository, reader ledger.Reader, persist bool) Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc, _ := NewService(ServiceConfig{
		Repository:       repo,
		LedgerReader:     reader,
		Logger:           log,
		ReconcilePersist: persist,
	})
	return svc
}

func TestReconcileLedgerWins(t *testing.T) {
	reader := &fakeLedger{records: map[uint64]*ledger.ShipmentRecord{
		1: {ID: 1, Status: models.StatusForSale},
		2: {ID: 2, Status: models.StatusShipped},
	}}

	repo := new(MockRepository)
	svc := newReconcileService(repo, reader, false)

	shipments := []*models.Shipment{
		{Model: models.Model{ID: 10}, ShipmentID: "1", Status: models.StatusShipped},
		{Model: models.Model{ID: 11}, ShipmentID: "2", Status: models.StatusShipped},
	}

	result, report := svc.ReconcileWithLedger(context.Background(), shipments)

	require.Equal(t, 2, report.Checked)
	require.Equal(t, 1, report.Diverged)
	require.Equal(t, 0, report.Failed)

	// Ordering preserved, divergent status adopted from the ledger
	require.Equal(t, "1", result[0].ShipmentID)
	require.Equal(t, models.StatusForSale, result[0].Status)
	require.Equal(t, "2", result[1].ShipmentID)
	require.Equal(t, models.StatusShipped, result[1].Status)
}

func TestReconcileSkipsNonNumericIdentifiers(t *testing.T) {
	reader := &fakeLedger{records: map[uint64]*ledger.ShipmentRecord{}}

	repo := new(MockRepository)
	svc := newReconcileService(repo, reader, false)

	shipments := []*models.Shipment{
		{ShipmentID: "SH-LOCAL-1", Status: models.StatusCreated},
		{ShipmentID: "batch-42", Status: models.StatusCreated},
	}

	_, report := svc.ReconcileWithLedger(context.Background(), shipments)

	require.Equal(t, 0, report.Checked)
	require.Equal(t, 2, report.Skipped)
	require.Equal(t, 0, reader.reads)
}

func TestReconcileIsolatesPerItemFailures(t *testing.T) {
	reader := &fakeLedger{
		records: map[uint64]*ledger.ShipmentRecord{
			1: {ID: 1, Status: models.StatusForSale},
			3: {ID: 3, Status: models.StatusAudited},
		},
		errs: map[uint64]error{
			2: errors.New("rpc endpoint returned HTTP 503"),
		},
	}

	repo := new(MockRepository)
	svc := newReconcileService(repo, reader, false)

	shipments := []*models.Shipment{
		{ShipmentID: "1", Status: models.StatusShipped},
		{ShipmentID: "2", Status: models.StatusShipped},
		{ShipmentID: "3", Status: models.StatusShipped},
	}

	result, report := svc.ReconcileWithLedger(context.Background(), shipments)

	require.Equal(t, 3, report.Checked)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 2, report.Diverged)

	// The failed read keeps its stored status; its neighbors still reconcile
	require.Equal(t, models.StatusForSale, result[0].Status)
	require.Equal(t, models.StatusShipped, result[1].Status)
	require.Equal(t, models.StatusAudited, result[2].Status)
}

func TestReconcilePersistsDivergentStatus(t *testing.T) {
	reader := &fakeLedger{records: map[uint64]*ledger.ShipmentRecord{
		1: {ID: 1, Status: models.StatusReceived},
	}}

	stored := &models.Shipment{Model: models.Model{ID: 10}, ShipmentID: "1", Status: models.StatusShipped}

	repo := new(MockRepository)
	repo.On("FindShipmentByID", mock.Anything, uint(10)).Return(stored, nil)
	repo.On("SaveShipment", mock.Anything, stored).Return(nil)
	repo.On("AppendStatusHistory", mock.Anything, mock.MatchedBy(func(entry *models.StatusHistoryEntry) bool {
		// Observed from the ledger, so no local transaction hash
		return entry.Status == models.StatusReceived && entry.TransactionHash == ""
	})).Return(nil)

	svc := newReconcileService(repo, reader, true)

	_, report := svc.ReconcileWithLedger(context.Background(), []*models.Shipment{
		{Model: models.Model{ID: 10}, ShipmentID: "1", Status: models.StatusShipped},
	})

	require.Equal(t, 1, report.Diverged)
	repo.AssertExpectations(t)
}

func TestReconcileWithoutPersistLeavesStoreAlone(t *testing.T) {
	reader := &fakeLedger{records: map[uint64]*ledger.ShipmentRecord{
		1: {ID: 1, Status: models.StatusReceived},
	}}

	repo := new(MockRepository)
	svc := newReconcileService(repo, reader, false)

	result, _ := svc.ReconcileWithLedger(context.Background(), []*models.Shipment{
		{Model: models.Model{ID: 10}, ShipmentID: "1", Status: models.StatusShipped},
	})

	require.Equal(t, models.StatusReceived, result[0].Status)
	repo.AssertNotCalled(t, "SaveShipment", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "AppendStatusHistory", mock.Anything, mock.Anything)
}

func TestReconcileRecent(t *testing.T) {
	reader := &fakeLedger{records: map[uint64]*ledger.ShipmentRecord{
		1: {ID: 1, Status: models.StatusForSale},
	}}

	repo := new(MockRepository)
	repo.On("ListNumericShipments", mock.Anything, 50).Return([]*models.Shipment{
		{Model: models.Model{ID: 10}, ShipmentID: "1", Status: models.StatusForSale},
	}, nil)

	svc := newReconcileService(repo, reader, false)

	report, err := svc.ReconcileRecent(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, report.Checked)
	require.Equal(t, 0, report.Diverged)
	repo.AssertExpectations(t)
}
