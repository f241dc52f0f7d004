package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"supplier_id":  true,
	"status":       true,
	"total_ht":     true,
	"total_ttc":    true,
	"approved_at":  true,
	"sent_at":      true,
	"completed_at": true,
}

// ReceptionSortFields contains allowed sort fields for receptions
var ReceptionSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"reception_number": true,
	"order_id":         true,
	"supplier_id":      true,
	"status":           true,
	"completed_at":     true,
}

// SupplierInvoiceSortFields contains allowed sort fields for supplier invoices
var SupplierInvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"supplier_id":    true,
	"status":         true,
	"total_ttc":      true,
	"due_date":       true,
	"paid_at":        true,
}

// LedgerEntrySortFields contains allowed sort fields for stock ledger entries
var LedgerEntrySortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"moved_at":       true,
	"product_id":     true,
	"movement_type":  true,
	"quantity_delta": true,
}
