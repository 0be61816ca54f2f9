package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineItemType string

const (
	LineItemTypePart    LineItemType = "PART"
	LineItemTypeService LineItemType = "SERVICE"
	LineItemTypeCustom  LineItemType = "CUSTOM"
)

// LineItem is one editable row of a quote or invoice. ReferenceID points at a
// catalog part/service when the row was picked from the catalog; custom rows
// leave it nil. Percentages are in the range [0, 100].
type LineItem struct {
	ItemID      string
	Type        LineItemType
	ReferenceID *uuid.UUID
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
}

// CalculatedLineItem is a LineItem plus its derived currency fields, all
// rounded to cents. Derived fields are produced only by the pricing package.
type CalculatedLineItem struct {
	LineItem
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

type DocumentTotals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}
