// Package billing contains the usage metering, quota enforcement and invoicing
// domain: the billing-owned slice of the user (quota counters and prepaid
// credits), the immutable usage ledger, the pricing rate table, and the
// invoice aggregate built from the ledger at period boundaries.
package billing
