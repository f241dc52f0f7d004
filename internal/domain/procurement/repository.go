package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByIDForTenant finds a purchase order by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by order number for a tenant
	FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrder, error)

	// FindAllForTenant finds purchase orders for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PurchaseOrder, error)

	// FindBySupplier finds purchase orders for a supplier
	FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, filter shared.Filter) ([]PurchaseOrder, error)

	// FindByStatus finds purchase orders by status for a tenant
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status PurchaseOrderStatus, filter shared.Filter) ([]PurchaseOrder, error)

	// Save creates or updates a purchase order
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox table in the same transaction
	SaveWithLockAndEvents(ctx context.Context, order *PurchaseOrder, events []shared.DomainEvent) error

	// DeleteForTenant deletes a purchase order and its lines for a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts purchase orders for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountByStatus counts purchase orders by status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID, status PurchaseOrderStatus) (int64, error)

	// ExistsByOrderNumber checks if an order number exists for a tenant
	ExistsByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (bool, error)

	// GenerateOrderNumber generates a unique order number for a tenant
	GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// ReceptionRepository defines the interface for reception persistence
type ReceptionRepository interface {
	// FindByIDForTenant finds a reception by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Reception, error)

	// FindByReceptionNumber finds a reception by number for a tenant
	FindByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (*Reception, error)

	// FindAllForTenant finds receptions for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Reception, error)

	// FindByOrder finds receptions linked to a purchase order
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]Reception, error)

	// Save creates or updates a reception and its lines
	Save(ctx context.Context, reception *Reception) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, reception *Reception) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox table in the same transaction
	SaveWithLockAndEvents(ctx context.Context, reception *Reception, events []shared.DomainEvent) error

	// CountForTenant counts receptions for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountActiveByOrder counts non-cancelled receptions linked to an order.
	// Used for validation before order cancellation or deletion.
	CountActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error)

	// SumActiveReceivedByOrderLine sums the quantities of all active reception
	// lines that reference the order line, across every reception of the
	// tenant. When excludeReceptionID is set, lines of that reception are left
	// out so a reception can re-validate its own pending change.
	SumActiveReceivedByOrderLine(ctx context.Context, tenantID, orderLineID uuid.UUID, excludeReceptionID *uuid.UUID) (decimal.Decimal, error)

	// ExistsByReceptionNumber checks if a reception number exists for a tenant
	ExistsByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (bool, error)

	// GenerateReceptionNumber generates a unique reception number for a tenant
	GenerateReceptionNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// SupplierInvoiceRepository defines the interface for supplier invoice persistence
type SupplierInvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SupplierInvoice, error)

	// FindByInvoiceNumber finds an invoice by number for a tenant
	FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*SupplierInvoice, error)

	// FindAllForTenant finds invoices for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]SupplierInvoice, error)

	// FindByOrder finds invoices linked to a purchase order
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]SupplierInvoice, error)

	// FindBySupplier finds invoices for a supplier
	FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, filter shared.Filter) ([]SupplierInvoice, error)

	// Save creates or updates an invoice, its lines, links and payments
	Save(ctx context.Context, invoice *SupplierInvoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *SupplierInvoice) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox table in the same transaction
	SaveWithLockAndEvents(ctx context.Context, invoice *SupplierInvoice, events []shared.DomainEvent) error

	// DeleteForTenant deletes a draft invoice for a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts invoices for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountOpenByOrder counts non-cancelled, non-voided invoices linked to an
	// order. Used for validation before order deletion.
	CountOpenByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error)

	// ExistsByInvoiceNumber checks if an invoice number exists for a tenant
	ExistsByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (bool, error)
}
