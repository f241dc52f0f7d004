package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceptionRepository implements ReceptionRepository using GORM
type GormReceptionRepository struct {
	db *gorm.DB
}

// NewGormReceptionRepository creates a new GormReceptionRepository
func NewGormReceptionRepository(db *gorm.DB) *GormReceptionRepository {
	return &GormReceptionRepository{db: db}
}

// FindByIDForTenant finds a reception by ID within a tenant
func (r *GormReceptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Reception, error) {
	var reception procurement.Reception
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reception).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reception, nil
}

// FindByReceptionNumber finds a reception by reception number for a tenant
func (r *GormReceptionRepository) FindByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (*procurement.Reception, error) {
	var reception procurement.Reception
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND reception_number = ?", tenantID, receptionNumber).
		First(&reception).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reception, nil
}

// FindAllForTenant finds all receptions for a tenant with filtering
func (r *GormReceptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.Reception, error) {
	var receptions []procurement.Reception
	query := r.db.WithContext(ctx).Model(&procurement.Reception{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	if err := query.Preload("Lines").Find(&receptions).Error; err != nil {
		return nil, err
	}
	return receptions, nil
}

// FindByOrder finds receptions linked to a purchase order
func (r *GormReceptionRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]procurement.Reception, error) {
	var receptions []procurement.Reception
	query := r.db.WithContext(ctx).Model(&procurement.Reception{}).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID)
	query = r.applyFilter(query, filter)
	if err := query.Preload("Lines").Find(&receptions).Error; err != nil {
		return nil, err
	}
	return receptions, nil
}

// Save creates or updates a reception and its lines
func (r *GormReceptionRepository) Save(ctx context.Context, reception *procurement.Reception) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(reception).Error; err != nil {
			return err
		}
		return r.saveLines(tx, reception)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormReceptionRepository) SaveWithLock(ctx context.Context, reception *procurement.Reception) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveWithLockTx(tx, reception)
	})
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain
// events to the outbox in the same transaction.
func (r *GormReceptionRepository) SaveWithLockAndEvents(ctx context.Context, reception *procurement.Reception, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveWithLockTx(tx, reception); err != nil {
			return err
		}
		return saveEventsToOutbox(tx, events)
	})
}

func (r *GormReceptionRepository) saveWithLockTx(tx *gorm.DB, reception *procurement.Reception) error {
	currentVersion := reception.Version
	reception.Version++
	reception.UpdatedAt = time.Now()

	result := tx.Model(&procurement.Reception{}).
		Where("id = ? AND tenant_id = ? AND version = ?", reception.ID, reception.TenantID, currentVersion).
		Updates(map[string]interface{}{
			"order_id":     reception.OrderID,
			"supplier_id":  reception.SupplierID,
			"warehouse_id": reception.Location.WarehouseID,
			"shop_id":      reception.Location.ShopID,
			"status":       reception.Status,
			"remark":       reception.Remark,
			"completed_at": reception.CompletedAt,
			"cancelled_at": reception.CancelledAt,
			"version":      reception.Version,
			"updated_at":   reception.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		reception.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}

	return r.saveLines(tx, reception)
}

// saveLines upserts every line. Lines are never deleted here: removed lines
// stay as inactive rows for the audit trail.
func (r *GormReceptionRepository) saveLines(tx *gorm.DB, reception *procurement.Reception) error {
	for i := range reception.Lines {
		reception.Lines[i].ReceptionID = reception.ID
		if err := tx.Save(&reception.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// CountForTenant counts receptions for a tenant with optional filters
func (r *GormReceptionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&procurement.Reception{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveByOrder counts non-cancelled receptions linked to an order
func (r *GormReceptionRepository) CountActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&procurement.Reception{}).
		Where("tenant_id = ? AND order_id = ? AND status <> ?", tenantID, orderID, procurement.ReceptionStatusCancelled).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumActiveReceivedByOrderLine sums the quantities of active reception lines
// referencing an order line. This is the authoritative counterpart of the
// cached received counter on the order line. Pass excludeReceptionID to leave
// one reception out, typically the one being mutated in the caller's
// transaction.
func (r *GormReceptionRepository) SumActiveReceivedByOrderLine(ctx context.Context, tenantID, orderLineID uuid.UUID, excludeReceptionID *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&procurement.ReceptionLine{}).
		Joins("JOIN receptions ON receptions.id = reception_lines.reception_id").
		Where("receptions.tenant_id = ? AND reception_lines.order_line_id = ? AND reception_lines.active = ?",
			tenantID, orderLineID, true)
	if excludeReceptionID != nil {
		query = query.Where("reception_lines.reception_id <> ?", *excludeReceptionID)
	}

	var total decimal.Decimal
	if err := query.
		Select("COALESCE(SUM(reception_lines.quantity), 0)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ExistsByReceptionNumber checks if a reception number exists for a tenant
func (r *GormReceptionRepository) ExistsByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&procurement.Reception{}).
		Where("tenant_id = ? AND reception_number = ?", tenantID, receptionNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateReceptionNumber generates a unique reception number for a tenant.
// Format: REC-YYYY-NNNNN (e.g. REC-2026-00001)
func (r *GormReceptionRepository) GenerateReceptionNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("REC-%d-", year)
	return generateSequentialNumber(ctx, r.db, &procurement.Reception{}, "reception_number", tenantID, prefix)
}

// applyFilter applies filter options to the query
func (r *GormReceptionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, ReceptionSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormReceptionRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "shop_id":
			query = query.Where("shop_id = ?", value)
		}
	}
	return query
}

// Ensure GormReceptionRepository implements ReceptionRepository
var _ procurement.ReceptionRepository = (*GormReceptionRepository)(nil)
