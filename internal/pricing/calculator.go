// Package pricing holds the pure line-item calculator and document totals
// aggregator. Nothing here does I/O or keeps state: the same inputs always
// produce the same cents, so the editor can recalculate on every field edit
// and redisplay identical values.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avtoline/garage-billing/internal/model"
)

// ErrInvalidLineItem marks validation failures on raw line-item input.
// Callers match it with errors.Is; the wrapped message names the field.
var ErrInvalidLineItem = errors.New("invalid line item")

var hundred = decimal.NewFromInt(100)

// CalculateLineItem derives the currency fields for one line. Every derived
// field is rounded to cents exactly once, half away from zero, at the point it
// is produced; intermediate ratios are never pre-rounded. Quantity zero is a
// legal row (all derived fields zero), negative quantity is not.
func CalculateLineItem(item model.LineItem) (model.CalculatedLineItem, error) {
	if err := validateLineItem(item); err != nil {
		return model.CalculatedLineItem{}, err
	}

	subtotal := item.Quantity.Mul(item.UnitPrice).Round(2)
	discountAmount := subtotal.Mul(item.Discount).Div(hundred).Round(2)
	taxable := subtotal.Sub(discountAmount)
	taxAmount := taxable.Mul(item.TaxRate).Div(hundred).Round(2)
	total := taxable.Add(taxAmount)

	return model.CalculatedLineItem{
		LineItem:       item,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxable,
		TaxAmount:      taxAmount,
		Total:          total,
	}, nil
}

// CalculateDocumentTotals sums the per-line cents independently per field, so
// document totals always match what each displayed line contributed. No
// further rounding happens here. An empty document is valid and all-zero.
func CalculateDocumentTotals(items []model.CalculatedLineItem) model.DocumentTotals {
	totals := model.DocumentTotals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for _, item := range items {
		totals.Subtotal = totals.Subtotal.Add(item.Subtotal)
		totals.DiscountTotal = totals.DiscountTotal.Add(item.DiscountAmount)
		totals.TaxTotal = totals.TaxTotal.Add(item.TaxAmount)
		totals.GrandTotal = totals.GrandTotal.Add(item.Total)
	}
	return totals
}

// Recalculate is the editor-facing entry point: it calculates every line and
// the document totals in one call. One invalid line fails the whole call with
// its 1-based position, nothing is dropped silently.
func Recalculate(items []model.LineItem) ([]model.CalculatedLineItem, model.DocumentTotals, error) {
	calculated := make([]model.CalculatedLineItem, 0, len(items))
	for i, item := range items {
		line, err := CalculateLineItem(item)
		if err != nil {
			return nil, model.DocumentTotals{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		calculated = append(calculated, line)
	}
	return calculated, CalculateDocumentTotals(calculated), nil
}

func validateLineItem(item model.LineItem) error {
	if item.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidLineItem)
	}
	switch item.Type {
	case model.LineItemTypePart, model.LineItemTypeService, model.LineItemTypeCustom:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidLineItem, item.Type)
	}
	if item.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidLineItem)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidLineItem)
	}
	if item.Discount.IsNegative() || item.Discount.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidLineItem)
	}
	if item.TaxRate.IsNegative() || item.TaxRate.GreaterThan(hundred) {
		return fmt.Errorf("%w: tax rate must be between 0 and 100", ErrInvalidLineItem)
	}
	return nil
}
