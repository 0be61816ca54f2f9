package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avtoline/garage-billing/internal/config"
	"github.com/avtoline/garage-billing/internal/model"
	"github.com/avtoline/garage-billing/internal/pricing"
)

// DocumentStore is the persistence contract the service depends on. The
// repository package provides the Postgres implementation; tests substitute an
// in-memory one. Missing rows surface as gorm.ErrRecordNotFound, duplicate
// document numbers as gorm.ErrDuplicatedKey.
type DocumentStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error)
	GetSettings(ctx context.Context, companyID uuid.UUID) (*model.CompanySettings, error)
	CreateDocument(ctx context.Context, doc *model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.Document, error)
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, change model.QuoteStatusChange) (*model.Document, error)
	ConvertQuote(ctx context.Context, quoteID uuid.UUID, invoice *model.Document) (*model.Document, error)
	AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*model.Document, error)
	ListIssuedBetween(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]model.Document, error)
}

type PDFGenerator interface {
	Generate(doc model.Document, company model.CompanySettings) ([]byte, error)
}

type ExcelGenerator interface {
	Generate(register model.DocumentRegister) ([]byte, error)
}

type DocumentService struct {
	store DocumentStore
	pdf   PDFGenerator
	excel ExcelGenerator
	cfg   *config.Config
	now   func() time.Time
}

func NewDocumentService(store DocumentStore, pdf PDFGenerator, excel ExcelGenerator, cfg *config.Config) *DocumentService {
	return &DocumentService{
		store: store,
		pdf:   pdf,
		excel: excel,
		cfg:   cfg,
		now:   time.Now,
	}
}

// LineItemInput is a raw editor row. TaxRate nil means the company default
// applies; everything else passes through to the calculator untouched.
type LineItemInput struct {
	ItemID      string
	Type        model.LineItemType
	ReferenceID *uuid.UUID
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     *decimal.Decimal
}

type CreateDocumentInput struct {
	JobID         uuid.UUID
	Kind          model.DocumentKind
	Items         []LineItemInput
	Dispatch      bool
	Notes         string
	CustomerNotes string
	Principal     model.Principal
}

type FileResult struct {
	FileName string
	Content  []byte
}

// CreateDocument builds and durably stores a new quote or invoice: validates
// and prices the lines, snapshots customer and vehicle identity from the job,
// and lets the repository allocate the document number atomically with the
// insert.
func (s *DocumentService) CreateDocument(ctx context.Context, input CreateDocumentInput) (*model.Document, error) {
	if !input.Principal.CanIssueDocuments() {
		return nil, ErrPermissionDenied
	}
	if input.Kind != model.DocumentKindQuote && input.Kind != model.DocumentKindInvoice {
		return nil, fmt.Errorf("%w: unknown document kind %q", ErrValidation, input.Kind)
	}

	job, err := s.store.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	settings, err := s.store.GetSettings(ctx, job.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if err := validateJobIdentity(job); err != nil {
		return nil, err
	}

	lines, totals, err := s.priceLines(settings, input.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &model.Document{
		ID:              uuid.New(),
		CompanyID:       job.CompanyID,
		JobID:           job.ID,
		Kind:            input.Kind,
		CustomerName:    job.CustomerName,
		CustomerPhone:   job.CustomerPhone,
		CustomerEmail:   job.CustomerEmail,
		VehiclePlate:    job.VehiclePlate,
		VehicleMake:     job.VehicleMake,
		VehicleModel:    job.VehicleModel,
		LineItems:       lines,
		Subtotal:        totals.Subtotal,
		DiscountTotal:   totals.DiscountTotal,
		TaxTotal:        totals.TaxTotal,
		GrandTotal:      totals.GrandTotal,
		PaidAmount:      decimal.Zero,
		Notes:           input.Notes,
		CustomerNotes:   input.CustomerNotes,
		CreatedByUserID: input.Principal.UserID,
		CreatedAt:       now,
	}

	switch input.Kind {
	case model.DocumentKindQuote:
		doc.Status = model.QuoteStatusDraft
		if input.Dispatch {
			doc.Status = model.QuoteStatusSent
			issue := now
			valid := issue.AddDate(0, 0, s.quoteValidityDays(settings))
			doc.IssueDate = &issue
			doc.ValidUntil = &valid
		}
	case model.DocumentKindInvoice:
		issue := now
		due := issue.AddDate(0, 0, s.paymentTermsDays(settings))
		doc.IssueDate = &issue
		doc.DueDate = &due
	}

	saved, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return saved, nil
}

// ReviseDocument issues a new version of an existing document: a fresh row
// with its own id and number, the same job, and the next revision index. The
// prior row is never touched. Customer and vehicle fields carry over from the
// original snapshot, not from the current job record. A revised quote restarts
// at DRAFT; a revised invoice starts unpaid — payments stay attached to the
// document they were recorded against.
func (s *DocumentService) ReviseDocument(ctx context.Context, documentID uuid.UUID, items []LineItemInput, notes, customerNotes string, principal model.Principal) (*model.Document, error) {
	if !principal.CanIssueDocuments() {
		return nil, ErrPermissionDenied
	}

	prior, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	settings, err := s.store.GetSettings(ctx, prior.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	lines, totals, err := s.priceLines(settings, items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &model.Document{
		ID:              uuid.New(),
		CompanyID:       prior.CompanyID,
		JobID:           prior.JobID,
		Kind:            prior.Kind,
		CustomerName:    prior.CustomerName,
		CustomerPhone:   prior.CustomerPhone,
		CustomerEmail:   prior.CustomerEmail,
		VehiclePlate:    prior.VehiclePlate,
		VehicleMake:     prior.VehicleMake,
		VehicleModel:    prior.VehicleModel,
		LineItems:       lines,
		Subtotal:        totals.Subtotal,
		DiscountTotal:   totals.DiscountTotal,
		TaxTotal:        totals.TaxTotal,
		GrandTotal:      totals.GrandTotal,
		PaidAmount:      decimal.Zero,
		Notes:           notes,
		CustomerNotes:   customerNotes,
		CreatedByUserID: principal.UserID,
		CreatedAt:       now,
	}

	switch prior.Kind {
	case model.DocumentKindQuote:
		doc.Status = model.QuoteStatusDraft
	case model.DocumentKindInvoice:
		issue := now
		due := issue.AddDate(0, 0, s.paymentTermsDays(settings))
		doc.IssueDate = &issue
		doc.DueDate = &due
	}

	saved, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return saved, nil
}

// GetDocument returns one document with quote expiry resolved on read.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	doc.Status = doc.EffectiveStatus(s.now())
	return doc, nil
}

// VersionChain returns every document issued for a job, newest first.
func (s *DocumentService) VersionChain(ctx context.Context, jobID uuid.UUID) ([]model.Document, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, s.mapStoreError(err)
	}
	docs, err := s.store.ListByJob(ctx, jobID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	now := s.now()
	for i := range docs {
		docs[i].Status = docs[i].EffectiveStatus(now)
	}
	return docs, nil
}

// SendQuote dispatches a draft quote: sets the issue date if still unset,
// derives the validity date from company settings and moves the quote to SENT.
func (s *DocumentService) SendQuote(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Document, error) {
	if !principal.CanIssueDocuments() {
		return nil, ErrPermissionDenied
	}
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusDraft {
		return nil, transitionError(quote.Status, model.QuoteStatusSent)
	}

	settings, err := s.store.GetSettings(ctx, quote.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	change := model.QuoteStatusChange{Status: model.QuoteStatusSent}
	issue := s.now()
	if quote.IssueDate != nil {
		issue = *quote.IssueDate
	} else {
		change.IssueDate = &issue
	}
	valid := issue.AddDate(0, 0, s.quoteValidityDays(settings))
	change.ValidUntil = &valid

	return s.updateQuote(ctx, id, change)
}

// MarkQuoteViewed records the first open of the public approval link. Repeat
// opens are a no-op, not an error.
func (s *DocumentService) MarkQuoteViewed(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	switch quote.Status {
	case model.QuoteStatusViewed:
		return quote, nil
	case model.QuoteStatusSent:
	default:
		return nil, transitionError(quote.Status, model.QuoteStatusViewed)
	}

	viewed := s.now()
	return s.updateQuote(ctx, id, model.QuoteStatusChange{
		Status:   model.QuoteStatusViewed,
		ViewedAt: &viewed,
	})
}

// ApproveQuote records a signed customer approval. The signature artifact
// reference is mandatory.
func (s *DocumentService) ApproveQuote(ctx context.Context, id uuid.UUID, signatureRef string) (*model.Document, error) {
	if strings.TrimSpace(signatureRef) == "" {
		return nil, fmt.Errorf("%w: signature is required for approval", ErrValidation)
	}
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusViewed {
		return nil, transitionError(quote.Status, model.QuoteStatusApproved)
	}
	return s.updateQuote(ctx, id, model.QuoteStatusChange{
		Status:       model.QuoteStatusApproved,
		SignatureRef: &signatureRef,
	})
}

// RejectQuote records a customer rejection with an optional reason.
func (s *DocumentService) RejectQuote(ctx context.Context, id uuid.UUID, reason *string) (*model.Document, error) {
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusViewed {
		return nil, transitionError(quote.Status, model.QuoteStatusRejected)
	}
	return s.updateQuote(ctx, id, model.QuoteStatusChange{
		Status:          model.QuoteStatusRejected,
		RejectionReason: reason,
	})
}

// ConvertQuote generates an invoice from an approved quote and marks the quote
// converted, in one transaction. The invoice reuses the quote's priced lines
// and snapshot; it gets its own number from the invoice counter.
func (s *DocumentService) ConvertQuote(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Document, error) {
	if !principal.CanIssueDocuments() {
		return nil, ErrPermissionDenied
	}
	quote, err := s.getQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != model.QuoteStatusApproved {
		return nil, transitionError(quote.Status, model.QuoteStatusConverted)
	}

	settings, err := s.store.GetSettings(ctx, quote.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	now := s.now()
	issue := now
	due := issue.AddDate(0, 0, s.paymentTermsDays(settings))
	invoice := &model.Document{
		ID:              uuid.New(),
		CompanyID:       quote.CompanyID,
		JobID:           quote.JobID,
		Kind:            model.DocumentKindInvoice,
		CustomerName:    quote.CustomerName,
		CustomerPhone:   quote.CustomerPhone,
		CustomerEmail:   quote.CustomerEmail,
		VehiclePlate:    quote.VehiclePlate,
		VehicleMake:     quote.VehicleMake,
		VehicleModel:    quote.VehicleModel,
		LineItems:       quote.LineItems,
		Subtotal:        quote.Subtotal,
		DiscountTotal:   quote.DiscountTotal,
		TaxTotal:        quote.TaxTotal,
		GrandTotal:      quote.GrandTotal,
		PaidAmount:      decimal.Zero,
		SourceQuoteID:   &quote.ID,
		IssueDate:       &issue,
		DueDate:         &due,
		Notes:           quote.Notes,
		CustomerNotes:   quote.CustomerNotes,
		CreatedByUserID: principal.UserID,
		CreatedAt:       now,
	}

	saved, err := s.store.ConvertQuote(ctx, quote.ID, invoice)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return saved, nil
}

// RecordPayment adds a received amount to an invoice. The payment status and
// remaining amount are derived from the new paid total, never stored.
func (s *DocumentService) RecordPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, principal model.Principal) (*model.Document, error) {
	if !principal.CanIssueDocuments() {
		return nil, ErrPermissionDenied
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if doc.Kind != model.DocumentKindInvoice {
		return nil, fmt.Errorf("%w: payments apply to invoices only", ErrValidation)
	}

	updated, err := s.store.AddPayment(ctx, id, amount)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return updated, nil
}

// RenderDocumentPDF renders one document as a downloadable PDF.
func (s *DocumentService) RenderDocumentPDF(ctx context.Context, id uuid.UUID) (*FileResult, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx, doc.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	content, err := s.pdf.Generate(*doc, *settings)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: sanitizeFileName(doc.DocumentNumber) + ".pdf",
		Content:  content,
	}, nil
}

// ExportRegister produces the Excel register of documents issued in a period.
func (s *DocumentService) ExportRegister(ctx context.Context, from, to time.Time, principal model.Principal) (*FileResult, error) {
	if principal.IsMechanic() {
		return nil, ErrPermissionDenied
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrValidation)
	}
	periodStart := dateOnly(from)
	periodEnd := dateOnly(to)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: period start must not be after period end", ErrValidation)
	}
	endExclusive := periodEnd.Add(24 * time.Hour)

	settings, err := s.store.GetSettings(ctx, principal.CompanyID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	docs, err := s.store.ListIssuedBetween(ctx, principal.CompanyID, periodStart, endExclusive)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	now := s.now()
	for i := range docs {
		docs[i].Status = docs[i].EffectiveStatus(now)
	}

	content, err := s.excel.Generate(model.DocumentRegister{
		Company:     *settings,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Documents:   docs,
	})
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(settings.Name)
	if name == "" {
		name = settings.CompanyID.String()
	}
	fileName := fmt.Sprintf("documents-%s-%s-%s.xlsx",
		name, periodStart.Format("20060102"), periodEnd.Format("20060102"))
	return &FileResult{FileName: fileName, Content: content}, nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *DocumentService) priceLines(settings *model.CompanySettings, items []LineItemInput) ([]model.CalculatedLineItem, model.DocumentTotals, error) {
	raw := make([]model.LineItem, 0, len(items))
	for _, in := range items {
		taxRate := settings.DefaultTaxRate
		if in.TaxRate != nil {
			taxRate = *in.TaxRate
		}
		raw = append(raw, model.LineItem{
			ItemID:      in.ItemID,
			Type:        in.Type,
			ReferenceID: in.ReferenceID,
			Code:        in.Code,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Discount:    in.Discount,
			TaxRate:     taxRate,
		})
	}

	lines, totals, err := pricing.Recalculate(raw)
	if err != nil {
		return nil, model.DocumentTotals{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return lines, totals, nil
}

func (s *DocumentService) getQuote(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if doc.Kind != model.DocumentKindQuote {
		return nil, fmt.Errorf("%w: document %s is not a quote", ErrValidation, doc.DocumentNumber)
	}
	doc.Status = doc.EffectiveStatus(s.now())
	return doc, nil
}

func (s *DocumentService) updateQuote(ctx context.Context, id uuid.UUID, change model.QuoteStatusChange) (*model.Document, error) {
	updated, err := s.store.UpdateQuoteStatus(ctx, id, change)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return updated, nil
}

func (s *DocumentService) quoteValidityDays(settings *model.CompanySettings) int {
	if settings.QuoteValidityDays > 0 {
		return settings.QuoteValidityDays
	}
	return s.cfg.Billing.QuoteValidityDays
}

func (s *DocumentService) paymentTermsDays(settings *model.CompanySettings) int {
	if settings.PaymentTermsDays > 0 {
		return settings.PaymentTermsDays
	}
	return s.cfg.Billing.PaymentTermsDays
}

func (s *DocumentService) mapStoreError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrNumberingConflict, err)
	default:
		return err
	}
}

func validateJobIdentity(job *model.Job) error {
	if strings.TrimSpace(job.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if strings.TrimSpace(job.CustomerPhone) == "" {
		return fmt.Errorf("%w: customer phone is required", ErrValidation)
	}
	if strings.TrimSpace(job.VehiclePlate) == "" {
		return fmt.Errorf("%w: vehicle plate is required", ErrValidation)
	}
	return nil
}

func transitionError(from, to model.QuoteStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
