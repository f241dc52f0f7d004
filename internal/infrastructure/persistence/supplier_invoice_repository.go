package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// openInvoiceStatuses are the statuses that still bind an invoice to its
// linked orders for deletion checks.
var openInvoiceStatuses = []procurement.SupplierInvoiceStatus{
	procurement.SupplierInvoiceStatusDraft,
	procurement.SupplierInvoiceStatusPendingPayment,
	procurement.SupplierInvoiceStatusPartiallyPaid,
}

// GormSupplierInvoiceRepository implements SupplierInvoiceRepository using GORM
type GormSupplierInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSupplierInvoiceRepository creates a new GormSupplierInvoiceRepository
func NewGormSupplierInvoiceRepository(db *gorm.DB) *GormSupplierInvoiceRepository {
	return &GormSupplierInvoiceRepository{db: db}
}

func (r *GormSupplierInvoiceRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines").
		Preload("OrderLinks").
		Preload("Payments")
}

// FindByIDForTenant finds an invoice by ID within a tenant
func (r *GormSupplierInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.SupplierInvoice, error) {
	var invoice procurement.SupplierInvoice
	if err := r.preloaded(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByInvoiceNumber finds an invoice by number for a tenant
func (r *GormSupplierInvoiceRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*procurement.SupplierInvoice, error) {
	var invoice procurement.SupplierInvoice
	if err := r.preloaded(ctx).
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAllForTenant finds all invoices for a tenant with filtering
func (r *GormSupplierInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	var invoices []procurement.SupplierInvoice
	query := r.db.WithContext(ctx).Model(&procurement.SupplierInvoice{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	if err := query.
		Preload("Lines").
		Preload("OrderLinks").
		Preload("Payments").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByOrder finds invoices linked to a purchase order
func (r *GormSupplierInvoiceRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	var invoices []procurement.SupplierInvoice
	query := r.db.WithContext(ctx).Model(&procurement.SupplierInvoice{}).
		Where("tenant_id = ?", tenantID).
		Where("id IN (?)", r.db.Model(&procurement.InvoiceOrderLink{}).
			Select("invoice_id").
			Where("order_id = ?", orderID))
	query = r.applyFilter(query, filter)
	if err := query.
		Preload("Lines").
		Preload("OrderLinks").
		Preload("Payments").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindBySupplier finds invoices for a supplier
func (r *GormSupplierInvoiceRepository) FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	var invoices []procurement.SupplierInvoice
	query := r.db.WithContext(ctx).Model(&procurement.SupplierInvoice{}).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID)
	query = r.applyFilter(query, filter)
	if err := query.
		Preload("Lines").
		Preload("OrderLinks").
		Preload("Payments").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice, its lines, links and payments
func (r *GormSupplierInvoiceRepository) Save(ctx context.Context, invoice *procurement.SupplierInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines", "OrderLinks", "Payments").Save(invoice).Error; err != nil {
			return err
		}
		return r.saveChildren(tx, invoice)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormSupplierInvoiceRepository) SaveWithLock(ctx context.Context, invoice *procurement.SupplierInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveWithLockTx(tx, invoice)
	})
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain
// events to the outbox in the same transaction.
func (r *GormSupplierInvoiceRepository) SaveWithLockAndEvents(ctx context.Context, invoice *procurement.SupplierInvoice, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveWithLockTx(tx, invoice); err != nil {
			return err
		}
		return saveEventsToOutbox(tx, events)
	})
}

func (r *GormSupplierInvoiceRepository) saveWithLockTx(tx *gorm.DB, invoice *procurement.SupplierInvoice) error {
	currentVersion := invoice.Version
	invoice.Version++
	invoice.UpdatedAt = time.Now()

	result := tx.Model(&procurement.SupplierInvoice{}).
		Where("id = ? AND tenant_id = ? AND version = ?", invoice.ID, invoice.TenantID, currentVersion).
		Updates(map[string]interface{}{
			"supplier_id":    invoice.SupplierID,
			"status":         invoice.Status,
			"total_ht":       invoice.TotalHT,
			"total_vat":      invoice.TotalVAT,
			"total_ttc":      invoice.TotalTTC,
			"notes":          invoice.Notes,
			"attachment_url": invoice.AttachmentURL,
			"due_date":       invoice.DueDate,
			"paid_at":        invoice.PaidAt,
			"cancelled_at":   invoice.CancelledAt,
			"voided_at":      invoice.VoidedAt,
			"version":        invoice.Version,
			"updated_at":     invoice.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		invoice.Version = currentVersion
		return shared.ErrConcurrencyConflict
	}

	return r.saveChildren(tx, invoice)
}

// saveChildren reconciles lines and order links against the aggregate and
// appends any new payments. Payments are never updated or removed.
func (r *GormSupplierInvoiceRepository) saveChildren(tx *gorm.DB, invoice *procurement.SupplierInvoice) error {
	lineIDs := make([]uuid.UUID, 0, len(invoice.Lines))
	for i := range invoice.Lines {
		invoice.Lines[i].InvoiceID = invoice.ID
		lineIDs = append(lineIDs, invoice.Lines[i].ID)
	}
	deleteQuery := tx.Where("invoice_id = ?", invoice.ID)
	if len(lineIDs) > 0 {
		deleteQuery = deleteQuery.Where("id NOT IN ?", lineIDs)
	}
	if err := deleteQuery.Delete(&procurement.InvoiceLine{}).Error; err != nil {
		return err
	}
	for i := range invoice.Lines {
		if err := tx.Save(&invoice.Lines[i]).Error; err != nil {
			return err
		}
	}

	orderIDs := make([]uuid.UUID, 0, len(invoice.OrderLinks))
	for i := range invoice.OrderLinks {
		invoice.OrderLinks[i].InvoiceID = invoice.ID
		orderIDs = append(orderIDs, invoice.OrderLinks[i].OrderID)
	}
	linkDelete := tx.Where("invoice_id = ?", invoice.ID)
	if len(orderIDs) > 0 {
		linkDelete = linkDelete.Where("order_id NOT IN ?", orderIDs)
	}
	if err := linkDelete.Delete(&procurement.InvoiceOrderLink{}).Error; err != nil {
		return err
	}
	for i := range invoice.OrderLinks {
		link := invoice.OrderLinks[i]
		var count int64
		if err := tx.Model(&procurement.InvoiceOrderLink{}).
			Where("invoice_id = ? AND order_id = ?", link.InvoiceID, link.OrderID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
	}

	for i := range invoice.Payments {
		invoice.Payments[i].InvoiceID = invoice.ID
		var count int64
		if err := tx.Model(&procurement.InvoicePayment{}).
			Where("id = ?", invoice.Payments[i].ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(&invoice.Payments[i]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// DeleteForTenant deletes a draft invoice and its children for a tenant
func (r *GormSupplierInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice procurement.SupplierInvoice
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&procurement.InvoiceLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&procurement.InvoiceOrderLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&procurement.InvoicePayment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
}

// CountForTenant counts invoices for a tenant with optional filters
func (r *GormSupplierInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&procurement.SupplierInvoice{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOpenByOrder counts open invoices linked to an order
func (r *GormSupplierInvoiceRepository) CountOpenByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&procurement.SupplierInvoice{}).
		Where("tenant_id = ? AND status IN ?", tenantID, openInvoiceStatuses).
		Where("id IN (?)", r.db.Model(&procurement.InvoiceOrderLink{}).
			Select("invoice_id").
			Where("order_id = ?", orderID)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByInvoiceNumber checks if an invoice number exists for a tenant
func (r *GormSupplierInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&procurement.SupplierInvoice{}).
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormSupplierInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, SupplierInvoiceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSupplierInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "due_before":
			query = query.Where("due_date <= ?", value)
		case "due_after":
			query = query.Where("due_date >= ?", value)
		}
	}
	return query
}

// Ensure GormSupplierInvoiceRepository implements SupplierInvoiceRepository
var _ procurement.SupplierInvoiceRepository = (*GormSupplierInvoiceRepository)(nil)
