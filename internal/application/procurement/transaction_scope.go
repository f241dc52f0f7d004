package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/stock"
)

// TransactionScope provides transactional access to procurement repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll back
// atomically. Receiving goods touches the reception, the purchase order and
// the stock ledger in one unit of work; the scope is what keeps the
// quantity-conservation invariant intact under failure.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all procurement repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// OrderRepo returns the purchase order repository scoped to the current transaction
	OrderRepo() procurement.PurchaseOrderRepository
	// ReceptionRepo returns the reception repository scoped to the current transaction
	ReceptionRepo() procurement.ReceptionRepository
	// InvoiceRepo returns the supplier invoice repository scoped to the current transaction
	InvoiceRepo() procurement.SupplierInvoiceRepository
	// LedgerRepo returns the stock ledger repository scoped to the current transaction
	LedgerRepo() stock.LedgerRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	orderRepo     procurement.PurchaseOrderRepository
	receptionRepo procurement.ReceptionRepository
	invoiceRepo   procurement.SupplierInvoiceRepository
	ledgerRepo    stock.LedgerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo procurement.PurchaseOrderRepository,
	receptionRepo procurement.ReceptionRepository,
	invoiceRepo procurement.SupplierInvoiceRepository,
	ledgerRepo stock.LedgerRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:     orderRepo,
		receptionRepo: receptionRepo,
		invoiceRepo:   invoiceRepo,
		ledgerRepo:    ledgerRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the purchase order repository.
func (s *NoOpTransactionScope) OrderRepo() procurement.PurchaseOrderRepository {
	return s.orderRepo
}

// ReceptionRepo returns the reception repository.
func (s *NoOpTransactionScope) ReceptionRepo() procurement.ReceptionRepository {
	return s.receptionRepo
}

// InvoiceRepo returns the supplier invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() procurement.SupplierInvoiceRepository {
	return s.invoiceRepo
}

// LedgerRepo returns the stock ledger repository.
func (s *NoOpTransactionScope) LedgerRepo() stock.LedgerRepository {
	return s.ledgerRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
