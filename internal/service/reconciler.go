package service

import (
	"context"
	"errors"
	"time"

	"example.com/supplychain/services/tracker/internal/models"
	"example.com/supplychain/services/tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Checked  int `json:"checked"`
	Diverged int `json:"diverged"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// ReconcileWithLedger compares each shipment's stored status against the
// ledger and adopts the ledger's value where they diverge; the ledger wins.
// Shipments without a ledger-style numeric identifier are skipped. A failed
// ledger read is isolated to its shipment: the prior status is kept, the
// failure logged, and the pass continues. Input ordering is preserved.
//
// When persistence-on-reconcile is enabled the divergent status is written
// back with a history entry (no transaction hash; the change was observed,
// not locally justified). Otherwise only the returned copies are patched.
func (s *service) ReconcileWithLedger(ctx context.Context, shipments []*models.Shipment) ([]*models.Shipment, ReconcileReport) {
	var report ReconcileReport

	for _, shipment := range shipments {
		id, ok := numericShipmentID(shipment.ShipmentID)
		if !ok {
			report.Skipped++
			continue
		}
		if s.ledger == nil {
			report.Skipped++
			continue
		}
		report.Checked++

		record, err := s.ledger.ReadShipment(ctx, id)
		if err != nil {
			report.Failed++
			s.log.WithError(err).WithField("shipment_id", shipment.ShipmentID).
				Warn("Ledger read failed, keeping stored status")
			continue
		}

		if record.Status == shipment.Status {
			continue
		}

		report.Diverged++
		previous := shipment.Status
		shipment.Status = record.Status

		s.log.WithFields(logrus.Fields{
			"shipment_id": shipment.ShipmentID,
			"stored":      previous,
			"on_chain":    record.Status,
		}).Info("Adopting ledger status")

		if s.persist {
			if err := s.persistReconciled(ctx, shipment.ID, record.Status); err != nil {
				s.log.WithError(err).WithField("shipment_id", shipment.ShipmentID).
					Warn("Failed to persist reconciled status")
			} else {
				s.invalidateShipment(ctx, shipment)
				s.indexShipment(ctx, shipment)
			}
		}

		s.publishEvent(ctx, &models.ShipmentEvent{
			EventID:        uuid.NewString(),
			EventType:      models.EventShipmentReconciled,
			ShipmentID:     shipment.ShipmentID,
			Status:         record.Status,
			PreviousStatus: previous,
			OccurredAt:     time.Now().UTC(),
		})
	}

	return shipments, report
}

// persistReconciled re-reads the row inside a transaction so a concurrent
// confirmed transition is not clobbered with stale data.
func (s *service) persistReconciled(ctx context.Context, recordID uint, status models.ShipmentStatus) error {
	return s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		current, err := txRepo.FindShipmentByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Identifier: ""}
			}
			return err
		}
		if current.Status == status {
			return nil
		}

		current.Status = status
		if err := txRepo.SaveShipment(ctx, current); err != nil {
			return err
		}
		return txRepo.AppendStatusHistory(ctx, &models.StatusHistoryEntry{
			ShipmentRecordID: current.ID,
			Status:           status,
			ChangedAt:        time.Now().UTC(),
		})
	})
}

// ReconcileRecent reconciles the most recently updated ledger-identified
// shipments. Used by the periodic worker and the on-demand admin endpoint.
func (s *service) ReconcileRecent(ctx context.Context) (ReconcileReport, error) {
	shipments, err := s.repo.ListNumericShipments(ctx, s.batch)
	if err != nil {
		return ReconcileReport{}, err
	}
	_, report := s.ReconcileWithLedger(ctx, shipments)
	return report, nil
}
