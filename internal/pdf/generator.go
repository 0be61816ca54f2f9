package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/avtoline/garage-billing/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders one quote or invoice as an A4 PDF. Derived values are
// printed as stored; nothing is recalculated here.
func (g *Generator) Generate(doc model.Document, company model.CompanySettings) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	title := "Quote"
	if doc.Kind == model.DocumentKindInvoice {
		title = "Invoice"
	}

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s %s", title, doc.DocumentNumber), "", 1, "L", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	if doc.IssueDate != nil {
		pdf.CellFormat(0, 5, "Issued: "+formatDate(*doc.IssueDate), "", 1, "L", false, 0, "")
	}
	switch doc.Kind {
	case model.DocumentKindQuote:
		if doc.ValidUntil != nil {
			pdf.CellFormat(0, 5, "Valid until: "+formatDate(*doc.ValidUntil), "", 1, "L", false, 0, "")
		}
	case model.DocumentKindInvoice:
		if doc.DueDate != nil {
			pdf.CellFormat(0, 5, "Due: "+formatDate(*doc.DueDate), "", 1, "L", false, 0, "")
		}
	}
	if doc.Revision > 1 {
		pdf.CellFormat(0, 5, fmt.Sprintf("Revision %d", doc.Revision), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	g.addPartyBlock(pdf, "From", []string{company.Name, company.Address, company.Phone, company.Email})
	pdf.Ln(2)
	g.addPartyBlock(pdf, "Customer", []string{
		doc.CustomerName,
		doc.CustomerPhone,
		doc.CustomerEmail,
		fmt.Sprintf("Vehicle: %s %s (%s)", doc.VehicleMake, doc.VehicleModel, doc.VehiclePlate),
	})
	pdf.Ln(4)

	headers := []string{"Description", "Qty", "Unit", "Disc %", "Tax %", "Total"}
	widths := []float64{80, 18, 25, 16, 16, 25}
	g.drawTableRow(pdf, headers, widths, true)
	for _, item := range doc.LineItems {
		row := []string{
			item.Description,
			item.Quantity.String(),
			formatAmount(item.UnitPrice),
			item.Discount.String(),
			item.TaxRate.String(),
			formatAmount(item.Total),
		}
		g.drawTableRow(pdf, row, widths, false)
	}

	pdf.Ln(3)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 5, "Subtotal: "+formatAmount(doc.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, "Discount: "+formatAmount(doc.DiscountTotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, "Tax: "+formatAmount(doc.TaxTotal), "", 1, "R", false, 0, "")
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, "Total: "+formatAmount(doc.GrandTotal), "", 1, "R", false, 0, "")

	if doc.Kind == model.DocumentKindInvoice && doc.PaidAmount.GreaterThan(decimal.Zero) {
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 5, "Paid: "+formatAmount(doc.PaidAmount), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 5, "Balance due: "+formatAmount(doc.RemainingAmount()), "", 1, "R", false, 0, "")
	}

	if doc.CustomerNotes != "" {
		pdf.Ln(4)
		pdf.SetFont(g.fontName, "B", 10)
		pdf.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 9)
		pdf.MultiCell(0, 4, doc.CustomerNotes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) addPartyBlock(pdf *gofpdf.Fpdf, title string, lines []string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(0, 5, title, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 9)
	for _, line := range lines {
		if line == "" {
			continue
		}
		pdf.MultiCell(0, 4, line, "", "L", false)
	}
}

func (g *Generator) drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 9)
	for i, col := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format("02.01.2006")
}
