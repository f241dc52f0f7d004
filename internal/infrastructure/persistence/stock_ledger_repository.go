package persistence

import (
	"context"
	"errors"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStockLedgerRepository implements stock.LedgerRepository using GORM.
// The table is append-only; this repository exposes no update or delete.
type GormStockLedgerRepository struct {
	db *gorm.DB
}

// NewGormStockLedgerRepository creates a new GormStockLedgerRepository
func NewGormStockLedgerRepository(db *gorm.DB) *GormStockLedgerRepository {
	return &GormStockLedgerRepository{db: db}
}

// Append inserts an immutable ledger entry
func (r *GormStockLedgerRepository) Append(ctx context.Context, entry *stock.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID finds a ledger entry by ID within a tenant
func (r *GormStockLedgerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stock.LedgerEntry, error) {
	var entry stock.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByDocumentLine finds the entries recorded for a document line, oldest first
func (r *GormStockLedgerRepository) FindByDocumentLine(ctx context.Context, tenantID, documentLineID uuid.UUID) ([]stock.LedgerEntry, error) {
	var entries []stock.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_line_id = ?", tenantID, documentLineID).
		Order("moved_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAllForTenant lists ledger entries with filtering and pagination
func (r *GormStockLedgerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stock.LedgerEntry, error) {
	var entries []stock.LedgerEntry
	query := r.db.WithContext(ctx).Model(&stock.LedgerEntry{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountForTenant counts ledger entries for a tenant
func (r *GormStockLedgerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&stock.LedgerEntry{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumDeltas returns the signed sum of deltas for the level key; 0 when no rows exist
func (r *GormStockLedgerRepository) SumDeltas(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&stock.LedgerEntry{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, key.ProductID)

	if key.VariantID != nil {
		query = query.Where("variant_id = ?", *key.VariantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	switch {
	case key.Location.WarehouseID != nil:
		query = query.Where("warehouse_id = ?", *key.Location.WarehouseID)
	case key.Location.ShopID != nil:
		query = query.Where("shop_id = ?", *key.Location.ShopID)
	}

	var total decimal.Decimal
	if err := query.
		Select("COALESCE(SUM(quantity_delta), 0)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// HasEntriesForDocument reports whether any entry references the document
func (r *GormStockLedgerRepository) HasEntriesForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&stock.LedgerEntry{}).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormStockLedgerRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, LedgerEntrySortFields, "moved_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStockLedgerRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "variant_id":
			query = query.Where("variant_id = ?", value)
		case "movement_type":
			query = query.Where("movement_type = ?", value)
		case "document_id":
			query = query.Where("document_id = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "shop_id":
			query = query.Where("shop_id = ?", value)
		case "moved_after":
			query = query.Where("moved_at >= ?", value)
		case "moved_before":
			query = query.Where("moved_at <= ?", value)
		}
	}
	return query
}

// Ensure GormStockLedgerRepository implements LedgerRepository
var _ stock.LedgerRepository = (*GormStockLedgerRepository)(nil)
