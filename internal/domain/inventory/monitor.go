// internal/domain/inventory/monitor.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
)

// LowStockNotifier is told, after commit, that a variant breached its threshold
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, variantID uint, productName, variantLabel string, stock, threshold int)
}

// Transition is the change an alert check made
type Transition string

const (
	TransitionNone     Transition = "none"
	TransitionNotified Transition = "notified"
	TransitionResolved Transition = "resolved"
)

// AlertMonitor moves stock alerts through their lifecycle. It runs inside
// the ledger's transaction; the notification is deferred until commit.
type AlertMonitor struct {
	repo     Repository
	notifier LowStockNotifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAlertMonitor creates an alert monitor
func NewAlertMonitor(repo Repository, notifier LowStockNotifier, m *metrics.Metrics, log logrus.FieldLogger) *AlertMonitor {
	return &AlertMonitor{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Check evaluates the variant's alert against level.Stock
func (m *AlertMonitor) Check(ctx context.Context, level *StockLevel) (Transition, error) {
	alert, err := m.repo.GetAlert(ctx, level.VariantID)
	if errors.Is(err, apperror.ErrNotFound) {
		return TransitionNone, nil
	}
	if err != nil {
		return TransitionNone, fmt.Errorf("failed to load stock alert: %w", err)
	}
	if !alert.IsActive {
		return TransitionNone, nil
	}

	now := m.now()

	switch {
	case level.Stock <= alert.Threshold && (alert.NotifiedAt == nil || alert.IsResolved):
		alert.NotifiedAt = &now
		alert.IsResolved = false
		alert.ResolvedAt = nil
		if err := m.repo.SaveAlert(ctx, alert); err != nil {
			return TransitionNone, fmt.Errorf("failed to save stock alert: %w", err)
		}

		snapshot := *level
		threshold := alert.Threshold
		unitofwork.AfterCommit(ctx, func(ctx context.Context) {
			m.metrics.StockAlert(string(TransitionNotified))
			m.log.WithFields(logrus.Fields{
				"variant_id": snapshot.VariantID,
				"stock":      snapshot.Stock,
				"threshold":  threshold,
			}).Warn("Variant stock reached alert threshold")
			if m.notifier != nil {
				m.notifier.NotifyLowStock(ctx, snapshot.VariantID, snapshot.ProductName, snapshot.VariantLabel(), snapshot.Stock, threshold)
			}
		})
		return TransitionNotified, nil

	case level.Stock > alert.Threshold && alert.NotifiedAt != nil && !alert.IsResolved:
		alert.IsResolved = true
		alert.ResolvedAt = &now
		if err := m.repo.SaveAlert(ctx, alert); err != nil {
			return TransitionNone, fmt.Errorf("failed to save stock alert: %w", err)
		}
		unitofwork.AfterCommit(ctx, func(ctx context.Context) {
			m.metrics.StockAlert(string(TransitionResolved))
		})
		return TransitionResolved, nil
	}

	return TransitionNone, nil
}
