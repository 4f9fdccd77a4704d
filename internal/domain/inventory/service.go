// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/pkg/tracing"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
	"go.opentelemetry.io/otel/attribute"
)

// Repository persists stock levels, the ledger and alerts. LockVariant
// must lock the row for the rest of the transaction; UpdateVariantStock
// returns apperror.ErrConflict when the row no longer holds expected.
type Repository interface {
	LockVariant(ctx context.Context, variantID uint) (*StockLevel, error)
	UpdateVariantStock(ctx context.Context, variantID uint, expected, newStock int) error
	CreateMovement(ctx context.Context, m *StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, int64, error)
	SumMovements(ctx context.Context, variantID uint) (int, int64, error)
	GetAlert(ctx context.Context, variantID uint) (*StockAlert, error)
	SaveAlert(ctx context.Context, alert *StockAlert) error
	ListActiveAlerts(ctx context.Context) ([]StockAlert, error)
	ListLowStock(ctx context.Context, defaultThreshold int) ([]LowStockItem, error)
}

// Service is the inventory ledger. Every stock change is one movement
// written in the same transaction as the new stock.
type Service struct {
	repo             Repository
	uow              unitofwork.Manager
	monitor          *AlertMonitor
	defaultThreshold int
	metrics          *metrics.Metrics
	log              logrus.FieldLogger
}

// NewService creates a new inventory service
func NewService(repo Repository, uow unitofwork.Manager, monitor *AlertMonitor, defaultThreshold int, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		repo:             repo,
		uow:              uow,
		monitor:          monitor,
		defaultThreshold: defaultThreshold,
		metrics:          m,
		log:              log,
	}
}

// ChangeOptions carries the audit fields of a movement
type ChangeOptions struct {
	Reference *Reference
	Notes     string
	ActorID   *uint
}

// StockChangeRequest represents a manual stock change
type StockChangeRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

// StockCountRequest represents a physical stock count
type StockCountRequest struct {
	CountedStock *int   `json:"counted_stock" binding:"required,min=0"`
	Notes        string `json:"notes"`
}

// AlertRequest represents alert configuration for a variant
type AlertRequest struct {
	Threshold *int  `json:"threshold" binding:"required,min=0"`
	IsActive  *bool `json:"is_active"`
}

// BulkEntry is one line of a bulk update. Quantity is interpreted per
// type: a magnitude for addition, sale, return and damage, a signed delta
// for adjustment, the counted stock for correction.
type BulkEntry struct {
	VariantID    uint         `json:"variant_id" binding:"required"`
	MovementType MovementType `json:"movement_type" binding:"required"`
	Quantity     int          `json:"quantity"`
	Notes        string       `json:"notes"`
}

// BulkUpdateRequest represents a bulk stock update
type BulkUpdateRequest struct {
	Entries []BulkEntry `json:"entries" binding:"required,min=1,dive"`
}

// MovementListResponse represents a page of ledger entries
type MovementListResponse struct {
	Movements  []StockMovement       `json:"movements"`
	Pagination pagination.Pagination `json:"pagination"`
}

// AddStock records received goods
func (s *Service) AddStock(ctx context.Context, variantID uint, quantity int, opts ChangeOptions) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidQuantity(quantity)
	}
	return s.apply(ctx, variantID, MovementTypeAddition, quantity, false, opts)
}

// ReceiveInitialStock books the opening stock of a newly created variant
func (s *Service) ReceiveInitialStock(ctx context.Context, variantID uint, quantity int, actorID *uint) error {
	_, err := s.AddStock(ctx, variantID, quantity, ChangeOptions{Notes: "initial stock", ActorID: actorID})
	return err
}

// AdjustStock applies a signed manual delta
func (s *Service) AdjustStock(ctx context.Context, variantID uint, delta int, opts ChangeOptions) (*StockMovement, error) {
	if delta == 0 {
		return nil, apperror.InvalidQuantity(delta)
	}
	return s.apply(ctx, variantID, MovementTypeAdjustment, delta, false, opts)
}

// CorrectStock sets the stock to a counted value. A count equal to the
// current stock still records an audit entry.
func (s *Service) CorrectStock(ctx context.Context, variantID uint, countedStock int, opts ChangeOptions) (*StockMovement, error) {
	if countedStock < 0 {
		return nil, apperror.InvalidQuantity(countedStock)
	}
	return s.apply(ctx, variantID, MovementTypeCorrection, countedStock, true, opts)
}

// RecordSale removes sold units
func (s *Service) RecordSale(ctx context.Context, variantID uint, quantity int, opts ChangeOptions) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidQuantity(quantity)
	}
	return s.apply(ctx, variantID, MovementTypeSale, -quantity, false, opts)
}

// RecordReturn puts units back into stock
func (s *Service) RecordReturn(ctx context.Context, variantID uint, quantity int, opts ChangeOptions) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidQuantity(quantity)
	}
	return s.apply(ctx, variantID, MovementTypeReturn, quantity, false, opts)
}

// RecordDamage writes off damaged units
func (s *Service) RecordDamage(ctx context.Context, variantID uint, quantity int, opts ChangeOptions) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidQuantity(quantity)
	}
	return s.apply(ctx, variantID, MovementTypeDamage, -quantity, false, opts)
}

// BulkUpdate applies every entry in one transaction. Any failing entry
// rolls back all of them.
func (s *Service) BulkUpdate(ctx context.Context, entries []BulkEntry, actorID *uint) ([]StockMovement, error) {
	if len(entries) == 0 {
		return nil, apperror.Invalid("bulk update needs at least one entry")
	}

	var movements []StockMovement
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		movements = movements[:0]
		for i, e := range entries {
			opts := ChangeOptions{Notes: e.Notes, ActorID: actorID}
			m, err := s.applyEntry(ctx, e, opts)
			if err != nil {
				return fmt.Errorf("entry %d (variant %d): %w", i, e.VariantID, err)
			}
			movements = append(movements, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"entries":  len(entries),
		"actor_id": actorID,
	}).Info("Bulk stock update applied")
	return movements, nil
}

func (s *Service) applyEntry(ctx context.Context, e BulkEntry, opts ChangeOptions) (*StockMovement, error) {
	switch e.MovementType {
	case MovementTypeAddition:
		return s.AddStock(ctx, e.VariantID, e.Quantity, opts)
	case MovementTypeSale:
		return s.RecordSale(ctx, e.VariantID, e.Quantity, opts)
	case MovementTypeReturn:
		return s.RecordReturn(ctx, e.VariantID, e.Quantity, opts)
	case MovementTypeDamage:
		return s.RecordDamage(ctx, e.VariantID, e.Quantity, opts)
	case MovementTypeAdjustment:
		return s.AdjustStock(ctx, e.VariantID, e.Quantity, opts)
	case MovementTypeCorrection:
		return s.CorrectStock(ctx, e.VariantID, e.Quantity, opts)
	default:
		return nil, apperror.Invalid("unknown movement type %q", e.MovementType)
	}
}

// apply is the single write path of the ledger. With absolute set, value
// is the target stock; otherwise it is the signed delta.
func (s *Service) apply(ctx context.Context, variantID uint, movementType MovementType, value int, absolute bool, opts ChangeOptions) (movement *StockMovement, err error) {
	ctx, span := tracing.Start(ctx, "inventory.apply",
		attribute.Int("variant_id", int(variantID)),
		attribute.String("movement_type", string(movementType)),
	)
	defer func() { tracing.End(span, err) }()

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		level, err := s.repo.LockVariant(ctx, variantID)
		if err != nil {
			return err
		}

		delta := value
		if absolute {
			delta = value - level.Stock
		}
		newStock := level.Stock + delta
		if newStock < 0 {
			return &apperror.InsufficientStockError{
				ProductID:   level.ProductID,
				ProductName: level.ProductName,
				VariantID:   level.VariantID,
				VariantName: level.VariantLabel(),
				Available:   level.Stock,
				Requested:   -delta,
			}
		}

		if delta != 0 {
			if err := s.repo.UpdateVariantStock(ctx, variantID, level.Stock, newStock); err != nil {
				return err
			}
		}

		m := &StockMovement{
			VariantID:     variantID,
			MovementType:  movementType,
			Quantity:      delta,
			PreviousStock: level.Stock,
			NewStock:      newStock,
			Notes:         opts.Notes,
			CreatedBy:     opts.ActorID,
		}
		if opts.Reference != nil {
			refID := opts.Reference.ID
			m.ReferenceType = opts.Reference.Type
			m.ReferenceID = &refID
		}
		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		level.Stock = newStock
		if _, err := s.monitor.Check(ctx, level); err != nil {
			return err
		}

		unitofwork.AfterCommit(ctx, func(context.Context) {
			s.metrics.StockMovement(string(movementType))
		})
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"variant_id":     variantID,
		"movement_type":  movementType,
		"quantity":       movement.Quantity,
		"previous_stock": movement.PreviousStock,
		"new_stock":      movement.NewStock,
	}).Debug("Stock movement recorded")
	return movement, nil
}

// ListMovements returns a page of ledger entries, newest first
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) (*MovementListResponse, error) {
	if filter.MovementType != "" && !filter.MovementType.Valid() {
		return nil, apperror.Invalid("unknown movement type %q", filter.MovementType)
	}
	filter.Page, filter.Limit = pagination.Normalize(filter.Page, filter.Limit)

	movements, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return &MovementListResponse{
		Movements:  movements,
		Pagination: pagination.New(filter.Page, filter.Limit, total),
	}, nil
}

// Reconcile compares the stored stock with the sum of the ledger
func (s *Service) Reconcile(ctx context.Context, variantID uint) (*Reconciliation, error) {
	var result *Reconciliation
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		level, err := s.repo.LockVariant(ctx, variantID)
		if err != nil {
			return err
		}
		sum, count, err := s.repo.SumMovements(ctx, variantID)
		if err != nil {
			return fmt.Errorf("failed to sum stock movements: %w", err)
		}
		result = &Reconciliation{
			VariantID:     variantID,
			Stock:         level.Stock,
			LedgerSum:     sum,
			MovementCount: count,
			Balanced:      sum == level.Stock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Balanced {
		s.log.WithFields(logrus.Fields{
			"variant_id": variantID,
			"stock":      result.Stock,
			"ledger_sum": result.LedgerSum,
		}).Error("Stock ledger out of balance")
	}
	return result, nil
}

// SetAlert creates or updates the variant's alert and evaluates it against
// the current stock in the same transaction
func (s *Service) SetAlert(ctx context.Context, variantID uint, threshold int, isActive bool) (*StockAlert, error) {
	if threshold < 0 {
		return nil, apperror.Invalid("threshold cannot be negative")
	}

	var alert *StockAlert
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		level, err := s.repo.LockVariant(ctx, variantID)
		if err != nil {
			return err
		}

		existing, err := s.repo.GetAlert(ctx, variantID)
		switch {
		case err == nil:
			alert = existing
		case errors.Is(err, apperror.ErrNotFound):
			alert = &StockAlert{VariantID: variantID}
		default:
			return fmt.Errorf("failed to load stock alert: %w", err)
		}

		alert.Threshold = threshold
		alert.IsActive = isActive
		if err := s.repo.SaveAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to save stock alert: %w", err)
		}

		if _, err := s.monitor.Check(ctx, level); err != nil {
			return err
		}
		alert, err = s.repo.GetAlert(ctx, variantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetAlert returns the variant's alert
func (s *Service) GetAlert(ctx context.Context, variantID uint) (*StockAlert, error) {
	return s.repo.GetAlert(ctx, variantID)
}

// ListActiveAlerts returns enabled alerts that are currently breached
func (s *Service) ListActiveAlerts(ctx context.Context) ([]StockAlert, error) {
	alerts, err := s.repo.ListActiveAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock alerts: %w", err)
	}
	return alerts, nil
}

// LowStockReport lists variants at or below their threshold. Variants
// without an alert use the default threshold; disabled alerts are skipped.
func (s *Service) LowStockReport(ctx context.Context) ([]LowStockItem, error) {
	items, err := s.repo.ListLowStock(ctx, s.defaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to build low stock report: %w", err)
	}
	return items, nil
}
