package stock

import (
	"time"

	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentRequest represents a manual stock correction.
// Exactly one of WarehouseID or ShopID must be set.
type AdjustmentRequest struct {
	ProductID     uuid.UUID          `json:"product_id" binding:"required"`
	VariantID     *uuid.UUID         `json:"variant_id"`
	WarehouseID   *uuid.UUID         `json:"warehouse_id"`
	ShopID        *uuid.UUID         `json:"shop_id"`
	QuantityDelta decimal.Decimal    `json:"quantity_delta" binding:"required"`
	UnitCost      decimal.Decimal    `json:"unit_cost"`
	MovementType  stock.MovementType `json:"movement_type"` // defaults to MANUAL_ADJUSTMENT
	Reason        string             `json:"reason" binding:"required,min=1,max=255"`
}

// LevelQuery identifies a stock level to read
type LevelQuery struct {
	ProductID   uuid.UUID  `form:"product_id" binding:"required"`
	VariantID   *uuid.UUID `form:"variant_id"`
	WarehouseID *uuid.UUID `form:"warehouse_id"`
	ShopID      *uuid.UUID `form:"shop_id"`
}

// MovementListFilter represents filtering options for listing ledger entries
type MovementListFilter struct {
	Page         int                 `form:"page"`
	PageSize     int                 `form:"page_size"`
	OrderBy      string              `form:"order_by"`
	OrderDir     string              `form:"order_dir"`
	ProductID    *uuid.UUID          `form:"product_id"`
	MovementType *stock.MovementType `form:"movement_type"`
	DocumentID   *uuid.UUID          `form:"document_id"`
}

// LedgerEntryResponse represents a ledger entry in responses
type LedgerEntryResponse struct {
	ID              uuid.UUID          `json:"id"`
	ProductID       uuid.UUID          `json:"product_id"`
	VariantID       *uuid.UUID         `json:"variant_id,omitempty"`
	WarehouseID     *uuid.UUID         `json:"warehouse_id,omitempty"`
	ShopID          *uuid.UUID         `json:"shop_id,omitempty"`
	QuantityDelta   decimal.Decimal    `json:"quantity_delta"`
	UnitCost        decimal.Decimal    `json:"unit_cost"`
	MovementType    stock.MovementType `json:"movement_type"`
	DocumentType    stock.DocumentType `json:"document_type"`
	DocumentID      *uuid.UUID         `json:"document_id,omitempty"`
	DocumentLineID  *uuid.UUID         `json:"document_line_id,omitempty"`
	ReversedEntryID *uuid.UUID         `json:"reversed_entry_id,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	MovedAt         time.Time          `json:"moved_at"`
}

// ToLedgerEntryResponse converts a domain ledger entry to a response DTO
func ToLedgerEntryResponse(entry *stock.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              entry.ID,
		ProductID:       entry.ProductID,
		VariantID:       entry.VariantID,
		WarehouseID:     entry.Location.WarehouseID,
		ShopID:          entry.Location.ShopID,
		QuantityDelta:   entry.QuantityDelta,
		UnitCost:        entry.UnitCost,
		MovementType:    entry.MovementType,
		DocumentType:    entry.DocumentType,
		DocumentID:      entry.DocumentID,
		DocumentLineID:  entry.DocumentLineID,
		ReversedEntryID: entry.ReversedEntryID,
		Reason:          entry.Reason,
		MovedAt:         entry.MovedAt,
	}
}

// LevelResponse represents a derived stock level
type LevelResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	WarehouseID *uuid.UUID      `json:"warehouse_id,omitempty"`
	ShopID      *uuid.UUID      `json:"shop_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	FromCache   bool            `json:"-"`
}
