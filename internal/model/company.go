package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanySettings carries billing defaults and the per-kind numbering
// counters. Counters hold the NEXT number to hand out; they only ever grow,
// and only the document repository touches them, inside the same transaction
// that inserts the document row.
type CompanySettings struct {
	CompanyID         uuid.UUID
	Name              string
	Address           string
	Phone             string
	Email             string
	QuotePrefix       string
	InvoicePrefix     string
	QuoteValidityDays int
	PaymentTermsDays  int
	DefaultTaxRate    decimal.Decimal
	NextQuoteNumber   int64
	NextInvoiceNumber int64
}
