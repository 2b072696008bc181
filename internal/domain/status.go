package domain

import "strings"

// vendorStatuses maps the processor's status vocabulary onto the closed
// internal enum. Anything not listed maps to failed: an unknown vendor status
// must never be treated as money received.
var vendorStatuses = map[string]string{
	"success":    PaymentConfirmed,
	"successful": PaymentConfirmed,
	"completed":  PaymentConfirmed,
	"complete":   PaymentConfirmed,
	"paid":       PaymentConfirmed,

	"pending":    PaymentPending,
	"processing": PaymentPending,
	"queued":     PaymentPending,
	"sent":       PaymentPending,
	"initiated":  PaymentInitiated,

	"failed":             PaymentFailed,
	"failure":            PaymentFailed,
	"cancelled":          PaymentFailed,
	"canceled":           PaymentFailed,
	"declined":           PaymentFailed,
	"timeout":            PaymentFailed,
	"expired":            PaymentFailed,
	"insufficient_funds": PaymentFailed,
}

// MapVendorStatus translates a processor status into an internal payment
// status. Total over all inputs; unknown statuses fail closed.
func MapVendorStatus(vendorStatus string) string {
	if s, ok := vendorStatuses[strings.ToLower(strings.TrimSpace(vendorStatus))]; ok {
		return s
	}
	return PaymentFailed
}
