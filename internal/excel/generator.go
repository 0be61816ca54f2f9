package excel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/avtoline/garage-billing/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the document register workbook: summary header, then one
// row per document issued in the period.
func (g *Generator) Generate(register model.DocumentRegister) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Register"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Company")
	set("B1", register.Company.Name)
	set("A2", "Period start")
	set("B2", formatDate(register.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(register.PeriodEnd))
	set("A4", "Documents")
	set("B4", len(register.Documents))
	set("A5", "Total invoiced")
	set("B5", sumGrandTotal(register.Documents, model.DocumentKindInvoice))
	set("A6", "Total quoted")
	set("B6", sumGrandTotal(register.Documents, model.DocumentKindQuote))

	headerRow := 8
	headers := []string{"Number", "Kind", "Status", "Customer", "Vehicle", "Issued", "Subtotal", "Discount", "Tax", "Grand total", "Paid"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, err
		}
		set(cell, header)
	}

	for i, doc := range register.Documents {
		row := headerRow + 1 + i
		values := []interface{}{
			doc.DocumentNumber,
			string(doc.Kind),
			registerStatus(doc),
			doc.CustomerName,
			doc.VehiclePlate,
			issuedOn(doc),
			amount(doc.Subtotal),
			amount(doc.DiscountTotal),
			amount(doc.TaxTotal),
			amount(doc.GrandTotal),
			paidCell(doc),
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return nil, err
			}
			set(cell, value)
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func registerStatus(doc model.Document) string {
	if doc.Kind == model.DocumentKindInvoice {
		return string(doc.PaymentState(time.Now()))
	}
	return string(doc.Status)
}

func issuedOn(doc model.Document) string {
	if doc.IssueDate == nil {
		return ""
	}
	return formatDate(*doc.IssueDate)
}

func paidCell(doc model.Document) interface{} {
	if doc.Kind != model.DocumentKindInvoice {
		return ""
	}
	return amount(doc.PaidAmount)
}

func sumGrandTotal(docs []model.Document, kind model.DocumentKind) string {
	total := decimal.Zero
	for _, doc := range docs {
		if doc.Kind == kind {
			total = total.Add(doc.GrandTotal)
		}
	}
	return total.StringFixed(2)
}

func amount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%d", t.Day(), int(t.Month()), t.Year())
}
