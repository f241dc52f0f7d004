package stock

import (
	"context"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionScope provides transactional access to the stock ledger. Manual
// adjustments read the current level and append in the same transaction so the
// non-negativity check cannot race with a concurrent movement.
type TransactionScope interface {
	// Execute runs the given function within a database transaction
	Execute(ctx context.Context, fn func(ledger stock.LedgerRepository) error) error
}

// NoOpTransactionScope runs the function against a plain repository without a
// real transaction. Useful for testing.
type NoOpTransactionScope struct {
	ledger stock.LedgerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(ledger stock.LedgerRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{ledger: ledger}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(ledger stock.LedgerRepository) error) error {
	return fn(s.ledger)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)

// LevelCache caches derived stock levels for read-heavy level queries.
// Writers invalidate after commit; a miss falls through to the ledger sum.
type LevelCache interface {
	GetLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) (decimal.Decimal, bool, error)
	SetLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey, level decimal.Decimal) error
	InvalidateLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) error
}

// StockService exposes the ledger: manual adjustments, reversals, level
// queries and movement history. Reception-driven movements are written by the
// reception flow, not here.
type StockService struct {
	scope      TransactionScope
	ledgerRepo stock.LedgerRepository
	levelCache LevelCache
	logger     *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(scope TransactionScope, ledgerRepo stock.LedgerRepository, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		scope:      scope,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// SetLevelCache sets the optional read cache for stock levels
func (s *StockService) SetLevelCache(cache LevelCache) {
	s.levelCache = cache
}

// RecordAdjustment appends a manual stock correction. The resulting level must
// not go negative.
func (s *StockService) RecordAdjustment(ctx context.Context, tenantID uuid.UUID, req AdjustmentRequest) (*LedgerEntryResponse, error) {
	movement := req.MovementType
	if movement == "" {
		movement = stock.MovementTypeManualAdjustment
	}
	if movement != stock.MovementTypeManualAdjustment && movement != stock.MovementTypeInitialStock {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Only manual adjustments and initial stock may be recorded directly")
	}

	location := stock.Location{WarehouseID: req.WarehouseID, ShopID: req.ShopID}
	entry, err := stock.NewLedgerEntry(tenantID, req.ProductID, req.VariantID, location, req.QuantityDelta, req.UnitCost, movement, stock.DocumentTypeManual)
	if err != nil {
		return nil, err
	}
	entry.WithReason(req.Reason)

	key := stock.LevelKey{ProductID: req.ProductID, VariantID: req.VariantID, Location: location}

	err = s.scope.Execute(ctx, func(ledger stock.LedgerRepository) error {
		current, err := ledger.SumDeltas(ctx, tenantID, key)
		if err != nil {
			return err
		}
		if current.Add(req.QuantityDelta).IsNegative() {
			return shared.NewDomainError("VALIDATION_ERROR", "Adjustment would drive stock level negative")
		}
		return ledger.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, key)

	response := ToLedgerEntryResponse(entry)
	return &response, nil
}

// ReverseEntry appends the compensating entry for a prior movement
func (s *StockService) ReverseEntry(ctx context.Context, tenantID, entryID uuid.UUID, reason string) (*LedgerEntryResponse, error) {
	if reason == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Reversal reason is required")
	}

	var reversal *stock.LedgerEntry
	var key stock.LevelKey

	err := s.scope.Execute(ctx, func(ledger stock.LedgerRepository) error {
		original, err := ledger.FindByID(ctx, tenantID, entryID)
		if err != nil {
			return err
		}

		reversal = original.Reversal(reason)
		key = stock.LevelKey{ProductID: original.ProductID, VariantID: original.VariantID, Location: original.Location}

		current, err := ledger.SumDeltas(ctx, tenantID, key)
		if err != nil {
			return err
		}
		if current.Add(reversal.QuantityDelta).IsNegative() {
			return shared.NewDomainError("VALIDATION_ERROR", "Reversal would drive stock level negative")
		}
		return ledger.Append(ctx, reversal)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, key)

	response := ToLedgerEntryResponse(reversal)
	return &response, nil
}

// CurrentLevel derives the on-hand quantity for a (product, variant, location)
// key by summing the ledger, with an optional read-through cache in front.
func (s *StockService) CurrentLevel(ctx context.Context, tenantID uuid.UUID, query LevelQuery) (*LevelResponse, error) {
	location := stock.Location{WarehouseID: query.WarehouseID, ShopID: query.ShopID}
	if err := location.Validate(); err != nil {
		return nil, err
	}
	key := stock.LevelKey{ProductID: query.ProductID, VariantID: query.VariantID, Location: location}

	if s.levelCache != nil {
		if level, hit, err := s.levelCache.GetLevel(ctx, tenantID, key); err == nil && hit {
			return &LevelResponse{
				ProductID:   query.ProductID,
				VariantID:   query.VariantID,
				WarehouseID: query.WarehouseID,
				ShopID:      query.ShopID,
				Quantity:    level,
				FromCache:   true,
			}, nil
		} else if err != nil {
			s.logger.Warn("stock level cache read failed", zap.Error(err))
		}
	}

	level, err := s.ledgerRepo.SumDeltas(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}

	if s.levelCache != nil {
		if err := s.levelCache.SetLevel(ctx, tenantID, key, level); err != nil {
			s.logger.Warn("stock level cache write failed", zap.Error(err))
		}
	}

	return &LevelResponse{
		ProductID:   query.ProductID,
		VariantID:   query.VariantID,
		WarehouseID: query.WarehouseID,
		ShopID:      query.ShopID,
		Quantity:    level,
	}, nil
}

// ListMovements retrieves ledger entries with filtering and pagination
func (s *StockService) ListMovements(ctx context.Context, tenantID uuid.UUID, filter MovementListFilter) ([]LedgerEntryResponse, int64, error) {
	f := shared.DefaultFilter()
	f.OrderBy = "moved_at"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if filter.MovementType != nil {
		f.Filters["movement_type"] = filter.MovementType.String()
	}
	if filter.DocumentID != nil {
		f.Filters["document_id"] = *filter.DocumentID
	}

	entries, err := s.ledgerRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledgerRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses, total, nil
}

// MovementsForDocumentLine retrieves the ledger trail of one document line
func (s *StockService) MovementsForDocumentLine(ctx context.Context, tenantID, documentLineID uuid.UUID) ([]LedgerEntryResponse, error) {
	entries, err := s.ledgerRepo.FindByDocumentLine(ctx, tenantID, documentLineID)
	if err != nil {
		return nil, err
	}
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses, nil
}

func (s *StockService) invalidate(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) {
	if s.levelCache == nil {
		return
	}
	if err := s.levelCache.InvalidateLevel(ctx, tenantID, key); err != nil {
		s.logger.Warn("failed to invalidate stock level cache", zap.Error(err))
	}
}
