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

// UsageRecordSortFields contains allowed sort fields for usage records
var UsageRecordSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"action":        true,
	"model":         true,
	"cost":          true,
	"credits_used":  true,
	"billing_month": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"period_start":  true,
	"billing_month": true,
	"total_cost":    true,
	"status":        true,
	"paid_at":       true,
}

// ConversationSortFields contains allowed sort fields for conversations
var ConversationSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"type":          true,
	"status":        true,
	"message_count": true,
	"total_cost":    true,
	"ended_at":      true,
}

// MessageSortFields contains allowed sort fields for messages
var MessageSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"message_index": true,
	"role":          true,
}

// ShareSortFields contains allowed sort fields for shared analyses
var ShareSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"expires_at": true,
	"view_count": true,
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"file_name":    true,
	"file_size":    true,
	"page_count":   true,
	"extracted_at": true,
}
