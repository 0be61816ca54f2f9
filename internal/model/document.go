package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DocumentKind string

const (
	DocumentKindQuote   DocumentKind = "QUOTE"
	DocumentKindInvoice DocumentKind = "INVOICE"
)

type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "DRAFT"
	QuoteStatusSent      QuoteStatus = "SENT"
	QuoteStatusViewed    QuoteStatus = "VIEWED"
	QuoteStatusApproved  QuoteStatus = "APPROVED"
	QuoteStatusRejected  QuoteStatus = "REJECTED"
	QuoteStatusExpired   QuoteStatus = "EXPIRED"
	QuoteStatusConverted QuoteStatus = "CONVERTED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
)

// Document is one immutable quote or invoice snapshot. Editing never mutates a
// row: a revision is a new Document with the same JobID and the next Revision
// index. Customer and vehicle fields are denormalized from the job at creation
// time so later record edits do not rewrite history.
type Document struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	JobID          uuid.UUID
	Kind           DocumentKind
	DocumentNumber string
	Revision       int

	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	VehiclePlate  string
	VehicleMake   string
	VehicleModel  string

	LineItems []CalculatedLineItem `gorm:"-"`

	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal

	// Quote lifecycle.
	Status             QuoteStatus
	RejectionReason    *string
	SignatureRef       *string
	ViewedAt           *time.Time
	ConvertedInvoiceID *uuid.UUID
	SourceQuoteID      *uuid.UUID

	// Invoice payment tracking. PaymentStatus and the remaining amount are
	// derived, never stored.
	PaidAmount decimal.Decimal

	IssueDate  *time.Time
	ValidUntil *time.Time
	DueDate    *time.Time

	Notes         string
	CustomerNotes string

	CreatedByUserID uuid.UUID
	CreatedAt       time.Time
}

func (d *Document) Totals() DocumentTotals {
	return DocumentTotals{
		Subtotal:      d.Subtotal,
		DiscountTotal: d.DiscountTotal,
		TaxTotal:      d.TaxTotal,
		GrandTotal:    d.GrandTotal,
	}
}

// EffectiveStatus resolves lazy quote expiry: a sent or viewed quote past its
// validity date reads as EXPIRED without any background sweep. Terminal
// decisions recorded before expiry win. Invoices pass through unchanged.
func (d *Document) EffectiveStatus(now time.Time) QuoteStatus {
	if d.Kind != DocumentKindQuote {
		return d.Status
	}
	switch d.Status {
	case QuoteStatusSent, QuoteStatusViewed:
		if d.ValidUntil != nil && now.After(*d.ValidUntil) {
			return QuoteStatusExpired
		}
	}
	return d.Status
}

// PaymentState derives the invoice payment status from the paid amount and due
// date. Fully covered wins over overdue.
func (d *Document) PaymentState(now time.Time) PaymentStatus {
	if d.PaidAmount.GreaterThanOrEqual(d.GrandTotal) {
		return PaymentStatusPaid
	}
	if d.DueDate != nil && now.After(*d.DueDate) {
		return PaymentStatusOverdue
	}
	if d.PaidAmount.GreaterThan(decimal.Zero) {
		return PaymentStatusPartial
	}
	return PaymentStatusUnpaid
}

func (d *Document) RemainingAmount() decimal.Decimal {
	remaining := d.GrandTotal.Sub(d.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// QuoteStatusChange is the persisted slice of a quote transition. Fields left
// nil keep their stored value.
type QuoteStatusChange struct {
	Status          QuoteStatus
	IssueDate       *time.Time
	ValidUntil      *time.Time
	ViewedAt        *time.Time
	RejectionReason *string
	SignatureRef    *string
}

// FormatDocumentNumber builds the human-facing number, e.g. QTE-2026-001.
// The sequence is padded to three digits and grows without truncation past 999.
func FormatDocumentNumber(prefix string, year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, sequence)
}
