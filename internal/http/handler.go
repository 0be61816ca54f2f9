package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avtoline/garage-billing/internal/http/middleware"
	"github.com/avtoline/garage-billing/internal/model"
	"github.com/avtoline/garage-billing/internal/service"
)

type Handler struct {
	documents *service.DocumentService
	log       zerolog.Logger
}

func NewHandler(documents *service.DocumentService, log zerolog.Logger) *Handler {
	return &Handler{documents: documents, log: log}
}

type lineItemRequest struct {
	ItemID      string           `json:"item_id" binding:"required"`
	Type        string           `json:"type" binding:"required"`
	ReferenceID *string          `json:"reference_id"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    decimal.Decimal  `json:"discount"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
}

type createDocumentRequest struct {
	JobID         string            `json:"job_id" binding:"required"`
	Items         []lineItemRequest `json:"items"`
	Dispatch      bool              `json:"dispatch"`
	Notes         string            `json:"notes"`
	CustomerNotes string            `json:"customer_notes"`
}

type reviseDocumentRequest struct {
	Items         []lineItemRequest `json:"items"`
	Notes         string            `json:"notes"`
	CustomerNotes string            `json:"customer_notes"`
}

type approveQuoteRequest struct {
	SignatureRef string `json:"signature_ref"`
}

type rejectQuoteRequest struct {
	Reason *string `json:"reason"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *Handler) createQuote(c *gin.Context) {
	h.createDocument(c, model.DocumentKindQuote)
}

func (h *Handler) createInvoice(c *gin.Context) {
	h.createDocument(c, model.DocumentKindInvoice)
}

func (h *Handler) createDocument(c *gin.Context, kind model.DocumentKind) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := uuid.Parse(strings.TrimSpace(req.JobID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	items, err := parseLineItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.CreateDocument(c.Request.Context(), service.CreateDocumentInput{
		JobID:         jobID,
		Kind:          kind,
		Items:         items,
		Dispatch:      req.Dispatch,
		Notes:         req.Notes,
		CustomerNotes: req.CustomerNotes,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, documentResponse(doc))
}

func (h *Handler) reviseDocument(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	var req reviseDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := parseLineItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.ReviseDocument(c.Request.Context(), id, items, req.Notes, req.CustomerNotes, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, documentResponse(doc))
}

func (h *Handler) getDocument(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := h.documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) listJobDocuments(c *gin.Context) {
	jobID, err := uuid.Parse(strings.TrimSpace(c.Param("jobId")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	docs, err := h.documents.VersionChain(c.Request.Context(), jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	responses := make([]gin.H, 0, len(docs))
	for i := range docs {
		responses = append(responses, documentResponse(&docs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"documents": responses})
}

func (h *Handler) sendQuote(c *gin.Context) {
	h.quoteTransition(c, func(id uuid.UUID, principal model.Principal) (*model.Document, error) {
		return h.documents.SendQuote(c.Request.Context(), id, principal)
	})
}

func (h *Handler) convertQuote(c *gin.Context) {
	h.quoteTransition(c, func(id uuid.UUID, principal model.Principal) (*model.Document, error) {
		return h.documents.ConvertQuote(c.Request.Context(), id, principal)
	})
}

func (h *Handler) quoteTransition(c *gin.Context, transition func(uuid.UUID, model.Principal) (*model.Document, error)) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
		return
	}

	doc, err := transition(id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

// viewQuote is hit by the customer opening the public approval link.
func (h *Handler) viewQuote(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
		return
	}

	doc, err := h.documents.MarkQuoteViewed(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) approveQuote(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
		return
	}

	var req approveQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.ApproveQuote(c.Request.Context(), id, req.SignatureRef)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) rejectQuote(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
		return
	}

	var req rejectQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.RejectQuote(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) recordPayment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.RecordPayment(c.Request.Context(), id, req.Amount, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) documentPDF(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	result, err := h.documents.RenderDocumentPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) exportRegister(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	result, err := h.documents.ExportRegister(c.Request.Context(), from, to, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNumberingConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseLineItems(items []lineItemRequest) ([]service.LineItemInput, error) {
	result := make([]service.LineItemInput, 0, len(items))
	for _, item := range items {
		input := service.LineItemInput{
			ItemID:      item.ItemID,
			Type:        model.LineItemType(strings.ToUpper(strings.TrimSpace(item.Type))),
			Code:        item.Code,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxRate:     item.TaxRate,
		}
		if item.ReferenceID != nil {
			refID, err := uuid.Parse(strings.TrimSpace(*item.ReferenceID))
			if err != nil {
				return nil, errors.New("invalid reference_id on line item " + item.ItemID)
			}
			input.ReferenceID = &refID
		}
		result = append(result, input)
	}
	return result, nil
}

func documentResponse(doc *model.Document) gin.H {
	now := time.Now()

	items := make([]gin.H, 0, len(doc.LineItems))
	for _, item := range doc.LineItems {
		items = append(items, gin.H{
			"item_id":         item.ItemID,
			"type":            item.Type,
			"reference_id":    item.ReferenceID,
			"code":            item.Code,
			"description":     item.Description,
			"quantity":        item.Quantity,
			"unit_price":      item.UnitPrice,
			"discount":        item.Discount,
			"tax_rate":        item.TaxRate,
			"subtotal":        item.Subtotal,
			"discount_amount": item.DiscountAmount,
			"taxable_amount":  item.TaxableAmount,
			"tax_amount":      item.TaxAmount,
			"total":           item.Total,
		})
	}

	response := gin.H{
		"id":              doc.ID,
		"company_id":      doc.CompanyID,
		"job_id":          doc.JobID,
		"kind":            doc.Kind,
		"document_number": doc.DocumentNumber,
		"revision":        doc.Revision,
		"customer_name":   doc.CustomerName,
		"customer_phone":  doc.CustomerPhone,
		"customer_email":  doc.CustomerEmail,
		"vehicle_plate":   doc.VehiclePlate,
		"vehicle_make":    doc.VehicleMake,
		"vehicle_model":   doc.VehicleModel,
		"line_items":      items,
		"subtotal":        doc.Subtotal,
		"discount_total":  doc.DiscountTotal,
		"tax_total":       doc.TaxTotal,
		"grand_total":     doc.GrandTotal,
		"issue_date":      doc.IssueDate,
		"notes":           doc.Notes,
		"customer_notes":  doc.CustomerNotes,
		"created_at":      doc.CreatedAt,
	}

	switch doc.Kind {
	case model.DocumentKindQuote:
		response["status"] = doc.EffectiveStatus(now)
		response["valid_until"] = doc.ValidUntil
		response["rejection_reason"] = doc.RejectionReason
		response["converted_invoice_id"] = doc.ConvertedInvoiceID
	case model.DocumentKindInvoice:
		response["due_date"] = doc.DueDate
		response["paid_amount"] = doc.PaidAmount
		response["payment_status"] = doc.PaymentState(now)
		response["remaining_amount"] = doc.RemainingAmount()
		response["source_quote_id"] = doc.SourceQuoteID
	}
	return response
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Param("id")))
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrValidation
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrValidation
}
