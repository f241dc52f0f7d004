package persistence

import (
	"context"

	appprocurement "github.com/erp/procurement/internal/application/procurement"
	appstock "github.com/erp/procurement/internal/application/stock"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements the procurement TransactionScope using GORM
// transactions. Every repository handed to the callback is bound to the same
// transaction, so a reception, its purchase order and the ledger entries it
// produces commit or roll back as one unit.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appprocurement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) OrderRepo() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReceptionRepo() procurement.ReceptionRepository {
	return NewGormReceptionRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceRepo() procurement.SupplierInvoiceRepository {
	return NewGormSupplierInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) LedgerRepo() stock.LedgerRepository {
	return NewGormStockLedgerRepository(r.tx)
}

// GormStockTransactionScope implements the stock TransactionScope using GORM
// transactions.
type GormStockTransactionScope struct {
	db *gorm.DB
}

// NewGormStockTransactionScope creates a new GormStockTransactionScope
func NewGormStockTransactionScope(db *gorm.DB) *GormStockTransactionScope {
	return &GormStockTransactionScope{db: db}
}

// Execute runs the given function against a ledger repository bound to a
// database transaction
func (s *GormStockTransactionScope) Execute(ctx context.Context, fn func(ledger stock.LedgerRepository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStockLedgerRepository(tx))
	})
}

// Ensure the scopes implement their application interfaces
var _ appprocurement.TransactionScope = (*GormTransactionScope)(nil)
var _ appprocurement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
var _ appstock.TransactionScope = (*GormStockTransactionScope)(nil)
