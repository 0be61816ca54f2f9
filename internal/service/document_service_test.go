package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avtoline/garage-billing/internal/config"
	"github.com/avtoline/garage-billing/internal/model"
)

// memoryStore implements DocumentStore with the same contract as the Postgres
// repository: counter allocation is atomic with document creation, missing
// rows surface as gorm.ErrRecordNotFound and duplicate numbers as
// gorm.ErrDuplicatedKey.
type memoryStore struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]model.Job
	settings  map[uuid.UUID]*model.CompanySettings
	documents map[uuid.UUID]*model.Document
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:      make(map[uuid.UUID]model.Job),
		settings:  make(map[uuid.UUID]*model.CompanySettings),
		documents: make(map[uuid.UUID]*model.Document),
	}
}

func (m *memoryStore) GetJob(_ context.Context, id uuid.UUID) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &job, nil
}

func (m *memoryStore) GetSettings(_ context.Context, companyID uuid.UUID) (*model.CompanySettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[companyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *settings
	return &copied, nil
}

func (m *memoryStore) CreateDocument(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(doc)
}

func (m *memoryStore) createLocked(doc *model.Document) (*model.Document, error) {
	settings, ok := m.settings[doc.CompanyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	var sequence int64
	var prefix string
	if doc.Kind == model.DocumentKindInvoice {
		sequence = settings.NextInvoiceNumber
		settings.NextInvoiceNumber++
		prefix = settings.InvoicePrefix
	} else {
		sequence = settings.NextQuoteNumber
		settings.NextQuoteNumber++
		prefix = settings.QuotePrefix
	}

	year := doc.CreatedAt.Year()
	if doc.IssueDate != nil {
		year = doc.IssueDate.Year()
	}

	saved := copyDocument(doc)
	saved.DocumentNumber = model.FormatDocumentNumber(prefix, year, sequence)
	saved.Revision = 1
	for _, existing := range m.documents {
		if existing.DocumentNumber == saved.DocumentNumber && existing.CompanyID == saved.CompanyID {
			return nil, gorm.ErrDuplicatedKey
		}
		if existing.JobID == saved.JobID && existing.Kind == saved.Kind {
			saved.Revision++
		}
	}

	m.documents[saved.ID] = saved
	result := copyDocument(saved)
	return result, nil
}

func (m *memoryStore) GetDocument(_ context.Context, id uuid.UUID) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyDocument(doc), nil
}

func (m *memoryStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []model.Document
	for _, doc := range m.documents {
		if doc.JobID == jobID {
			docs = append(docs, *copyDocument(doc))
		}
	}
	// Newest first, matching the repository's ORDER BY.
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if docs[j].CreatedAt.After(docs[i].CreatedAt) ||
				(docs[j].CreatedAt.Equal(docs[i].CreatedAt) && docs[j].Revision > docs[i].Revision) {
				docs[i], docs[j] = docs[j], docs[i]
			}
		}
	}
	return docs, nil
}

func (m *memoryStore) UpdateQuoteStatus(_ context.Context, id uuid.UUID, change model.QuoteStatusChange) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok || doc.Kind != model.DocumentKindQuote {
		return nil, gorm.ErrRecordNotFound
	}
	doc.Status = change.Status
	if change.IssueDate != nil {
		doc.IssueDate = change.IssueDate
	}
	if change.ValidUntil != nil {
		doc.ValidUntil = change.ValidUntil
	}
	if change.ViewedAt != nil {
		doc.ViewedAt = change.ViewedAt
	}
	if change.RejectionReason != nil {
		doc.RejectionReason = change.RejectionReason
	}
	if change.SignatureRef != nil {
		doc.SignatureRef = change.SignatureRef
	}
	return copyDocument(doc), nil
}

func (m *memoryStore) ConvertQuote(_ context.Context, quoteID uuid.UUID, invoice *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quote, ok := m.documents[quoteID]
	if !ok || quote.Kind != model.DocumentKindQuote || quote.Status != model.QuoteStatusApproved {
		return nil, gorm.ErrRecordNotFound
	}
	saved, err := m.createLocked(invoice)
	if err != nil {
		return nil, err
	}
	quote.Status = model.QuoteStatusConverted
	quote.ConvertedInvoiceID = &saved.ID
	return saved, nil
}

func (m *memoryStore) AddPayment(_ context.Context, id uuid.UUID, amount decimal.Decimal) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok || doc.Kind != model.DocumentKindInvoice {
		return nil, gorm.ErrRecordNotFound
	}
	doc.PaidAmount = doc.PaidAmount.Add(amount)
	return copyDocument(doc), nil
}

func (m *memoryStore) ListIssuedBetween(_ context.Context, companyID uuid.UUID, from, to time.Time) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []model.Document
	for _, doc := range m.documents {
		if doc.CompanyID == companyID && !doc.CreatedAt.Before(from) && doc.CreatedAt.Before(to) {
			docs = append(docs, *copyDocument(doc))
		}
	}
	return docs, nil
}

func (m *memoryStore) storedDocument(t *testing.T, id uuid.UUID) model.Document {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		t.Fatalf("document %s not in store", id)
	}
	return *copyDocument(doc)
}

func copyDocument(doc *model.Document) *model.Document {
	copied := *doc
	copied.LineItems = append([]model.CalculatedLineItem(nil), doc.LineItems...)
	return &copied
}

type stubExcel struct{}

func (stubExcel) Generate(model.DocumentRegister) ([]byte, error) { return []byte("xlsx"), nil }

type stubPDF struct{}

func (stubPDF) Generate(model.Document, model.CompanySettings) ([]byte, error) {
	return []byte("%PDF"), nil
}

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(store *memoryStore) *DocumentService {
	cfg := &config.Config{
		Billing: config.BillingConfig{QuoteValidityDays: 30, PaymentTermsDays: 14},
	}
	svc := NewDocumentService(store, stubPDF{}, stubExcel{}, cfg)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func seedCompanyAndJob(store *memoryStore) (uuid.UUID, uuid.UUID) {
	companyID := uuid.New()
	store.settings[companyID] = &model.CompanySettings{
		CompanyID:         companyID,
		Name:              "Northside Garage",
		QuotePrefix:       "QTE",
		InvoicePrefix:     "INV",
		QuoteValidityDays: 30,
		PaymentTermsDays:  14,
		DefaultTaxRate:    decimal.NewFromInt(20),
		NextQuoteNumber:   1,
		NextInvoiceNumber: 1,
	}

	jobID := uuid.New()
	store.jobs[jobID] = model.Job{
		ID:            jobID,
		CompanyID:     companyID,
		CustomerName:  "Jan Kowalski",
		CustomerPhone: "+48 600 100 200",
		VehiclePlate:  "WX 12345",
		VehicleMake:   "Skoda",
		VehicleModel:  "Octavia",
	}
	return companyID, jobID
}

func office() model.Principal {
	return model.Principal{UserID: uuid.New(), CompanyID: uuid.New(), Role: model.RoleOffice}
}

func lineInput(qty, unit, discount, taxRate string) LineItemInput {
	input := LineItemInput{
		ItemID:      uuid.NewString(),
		Type:        model.LineItemTypeService,
		Description: "labor",
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(unit),
		Discount:    decimal.RequireFromString(discount),
	}
	if taxRate != "" {
		rate := decimal.RequireFromString(taxRate)
		input.TaxRate = &rate
	}
	return input
}

func TestCreateQuoteNumbersAreSequential(t *testing.T) {
	store := newMemoryStore()
	companyID, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)

	var numbers []string
	for i := 0; i < 2; i++ {
		doc, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
			JobID:     jobID,
			Kind:      model.DocumentKindQuote,
			Items:     []LineItemInput{lineInput("1", "100.00", "0", "20")},
			Principal: office(),
		})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		numbers = append(numbers, doc.DocumentNumber)
	}

	if numbers[0] != "QTE-2026-001" || numbers[1] != "QTE-2026-002" {
		t.Errorf("numbers = %v, want [QTE-2026-001 QTE-2026-002]", numbers)
	}
	if next := store.settings[companyID].NextQuoteNumber; next != 3 {
		t.Errorf("counter = %d, want 3", next)
	}
}

func TestCreateDocumentConcurrentNumbering(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)

	const n = 25
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
				JobID:     jobID,
				Kind:      model.DocumentKindQuote,
				Items:     []LineItemInput{lineInput("1", "10.00", "0", "0")},
				Principal: office(),
			})
			if err != nil {
				t.Errorf("CreateDocument: %v", err)
				return
			}
			results <- doc.DocumentNumber
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	for number := range results {
		if _, dup := seen[number]; dup {
			t.Errorf("duplicate document number %s", number)
		}
		seen[number] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("got %d distinct numbers, want %d", len(seen), n)
	}
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
		JobID: jobID,
		Kind:  model.DocumentKindQuote,
		Items: []LineItemInput{
			lineInput("2", "100.00", "10", "20"),
			lineInput("1.5", "45.00", "0", "20"),
			lineInput("3", "10.00", "100", "20"),
		},
		Principal: office(),
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	assertAmount(t, "subtotal", doc.Subtotal, "297.50")
	assertAmount(t, "discountTotal", doc.DiscountTotal, "50.00")
	assertAmount(t, "taxTotal", doc.TaxTotal, "49.50")
	assertAmount(t, "grandTotal", doc.GrandTotal, "297.00")
	if len(doc.LineItems) != 3 {
		t.Fatalf("got %d line items, want 3", len(doc.LineItems))
	}
	assertAmount(t, "free item total", doc.LineItems[2].Total, "0")
}

func TestCreateQuoteAppliesDefaultTaxRate(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("1", "100.00", "0", "")},
		Principal: office(),
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	assertAmount(t, "tax rate", doc.LineItems[0].TaxRate, "20")
	assertAmount(t, "tax amount", doc.LineItems[0].TaxAmount, "20.00")
}

func TestCreateDocumentErrors(t *testing.T) {
	store := newMemoryStore()
	companyID, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)

	t.Run("mechanic denied", func(t *testing.T) {
		_, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
			JobID:     jobID,
			Kind:      model.DocumentKindQuote,
			Principal: model.Principal{Role: model.RoleMechanic},
		})
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("want ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
			JobID:     uuid.New(),
			Kind:      model.DocumentKindQuote,
			Principal: office(),
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid line fails whole call with position", func(t *testing.T) {
		_, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
			JobID: jobID,
			Kind:  model.DocumentKindQuote,
			Items: []LineItemInput{
				lineInput("1", "10.00", "0", "20"),
				lineInput("1", "10.00", "150", "20"),
			},
			Principal: office(),
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("want ErrValidation, got %v", err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error should name line 2: %v", err)
		}
	})

	t.Run("missing vehicle plate", func(t *testing.T) {
		badJobID := uuid.New()
		store.jobs[badJobID] = model.Job{
			ID:            badJobID,
			CompanyID:     companyID,
			CustomerName:  "Anna Nowak",
			CustomerPhone: "+48 500 100 100",
		}
		_, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
			JobID:     badJobID,
			Kind:      model.DocumentKindInvoice,
			Principal: office(),
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("want ErrValidation, got %v", err)
		}
	})
}

func TestQuoteLifecycle(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := office()

	quote, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("2", "100.00", "10", "20")},
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quote.Status != model.QuoteStatusDraft {
		t.Fatalf("status = %s, want DRAFT", quote.Status)
	}
	if quote.IssueDate != nil {
		t.Fatalf("draft should have no issue date")
	}

	sent, err := svc.SendQuote(ctx, quote.ID, principal)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != model.QuoteStatusSent {
		t.Fatalf("status = %s, want SENT", sent.Status)
	}
	if sent.IssueDate == nil || !sent.IssueDate.Equal(fixedNow) {
		t.Fatalf("issue date = %v, want %v", sent.IssueDate, fixedNow)
	}
	wantValid := fixedNow.AddDate(0, 0, 30)
	if sent.ValidUntil == nil || !sent.ValidUntil.Equal(wantValid) {
		t.Fatalf("valid until = %v, want %v", sent.ValidUntil, wantValid)
	}

	viewed, err := svc.MarkQuoteViewed(ctx, quote.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if viewed.Status != model.QuoteStatusViewed || viewed.ViewedAt == nil {
		t.Fatalf("view not recorded: %+v", viewed)
	}

	// Repeat opens of the public link are a no-op.
	again, err := svc.MarkQuoteViewed(ctx, quote.ID)
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if again.Status != model.QuoteStatusViewed {
		t.Fatalf("second view changed status to %s", again.Status)
	}

	approved, err := svc.ApproveQuote(ctx, quote.ID, "sig:abc123")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.QuoteStatusApproved || approved.SignatureRef == nil {
		t.Fatalf("approval not recorded: %+v", approved)
	}

	invoice, err := svc.ConvertQuote(ctx, quote.ID, principal)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if invoice.Kind != model.DocumentKindInvoice {
		t.Fatalf("converted kind = %s", invoice.Kind)
	}
	if !strings.HasPrefix(invoice.DocumentNumber, "INV-2026-") {
		t.Errorf("invoice number = %s", invoice.DocumentNumber)
	}
	assertAmount(t, "invoice grand total", invoice.GrandTotal, "216.00")
	if invoice.DueDate == nil || !invoice.DueDate.Equal(fixedNow.AddDate(0, 0, 14)) {
		t.Errorf("due date = %v", invoice.DueDate)
	}
	if invoice.SourceQuoteID == nil || *invoice.SourceQuoteID != quote.ID {
		t.Errorf("source quote not linked")
	}

	converted := store.storedDocument(t, quote.ID)
	if converted.Status != model.QuoteStatusConverted {
		t.Errorf("quote status = %s, want CONVERTED", converted.Status)
	}
	if converted.ConvertedInvoiceID == nil || *converted.ConvertedInvoiceID != invoice.ID {
		t.Errorf("quote not linked to invoice")
	}
}

func TestQuoteInvalidTransitions(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := office()

	quote, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("1", "50.00", "0", "20")},
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Draft quotes cannot be decided or converted.
	if _, err := svc.ApproveQuote(ctx, quote.ID, "sig:x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve draft: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.RejectQuote(ctx, quote.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reject draft: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.MarkQuoteViewed(ctx, quote.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("view draft: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.ConvertQuote(ctx, quote.ID, principal); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("convert draft: want ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.SendQuote(ctx, quote.ID, principal); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SendQuote(ctx, quote.ID, principal); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double send: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.ApproveQuote(ctx, quote.ID, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("approve without signature: want ErrValidation, got %v", err)
	}

	if _, err := svc.MarkQuoteViewed(ctx, quote.ID); err != nil {
		t.Fatalf("view: %v", err)
	}
	reason := "too expensive"
	if _, err := svc.RejectQuote(ctx, quote.ID, &reason); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.ApproveQuote(ctx, quote.ID, "sig:x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve rejected: want ErrInvalidTransition, got %v", err)
	}
}

func TestQuoteExpiresLazilyOnRead(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := office()

	quote, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("1", "50.00", "0", "20")},
		Dispatch:  true,
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quote.Status != model.QuoteStatusSent {
		t.Fatalf("dispatched quote status = %s, want SENT", quote.Status)
	}

	svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 31) }

	got, err := svc.GetDocument(ctx, quote.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.QuoteStatusExpired {
		t.Errorf("status = %s, want EXPIRED", got.Status)
	}
	// The stored row is untouched; expiry is computed, not persisted.
	if stored := store.storedDocument(t, quote.ID); stored.Status != model.QuoteStatusSent {
		t.Errorf("stored status = %s, want SENT", stored.Status)
	}

	if _, err := svc.ApproveQuote(ctx, quote.ID, "sig:late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve expired: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.MarkQuoteViewed(ctx, quote.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("view expired: want ErrInvalidTransition, got %v", err)
	}
}

func TestReviseDocumentKeepsPriorVersionIntact(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := office()

	original, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("1", "100.00", "0", "20")},
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	revised, err := svc.ReviseDocument(ctx, original.ID, []LineItemInput{
		lineInput("2", "100.00", "0", "20"),
	}, "", "", principal)
	if err != nil {
		t.Fatalf("revise: %v", err)
	}

	if revised.ID == original.ID {
		t.Fatal("revision reused the original id")
	}
	if revised.DocumentNumber == original.DocumentNumber {
		t.Errorf("revision reused number %s", original.DocumentNumber)
	}
	if revised.Revision != 2 {
		t.Errorf("revision index = %d, want 2", revised.Revision)
	}
	assertAmount(t, "revised grand total", revised.GrandTotal, "240.00")

	stored := store.storedDocument(t, original.ID)
	assertAmount(t, "original grand total", stored.GrandTotal, "120.00")
	if stored.DocumentNumber != original.DocumentNumber {
		t.Errorf("original number changed")
	}

	chain, err := svc.VersionChain(ctx, jobID)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].ID != revised.ID || chain[1].ID != original.ID {
		t.Errorf("chain order wrong: %s, %s", chain[0].ID, chain[1].ID)
	}
}

func TestRecordPayment(t *testing.T) {
	store := newMemoryStore()
	_, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := office()

	invoice, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindInvoice,
		Items:     []LineItemInput{lineInput("2", "100.00", "10", "20")},
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := invoice.PaymentState(fixedNow); got != model.PaymentStatusUnpaid {
		t.Fatalf("initial payment status = %s", got)
	}

	partial, err := svc.RecordPayment(ctx, invoice.ID, decimal.RequireFromString("100.00"), principal)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got := partial.PaymentState(fixedNow); got != model.PaymentStatusPartial {
		t.Errorf("payment status = %s, want PARTIAL", got)
	}
	assertAmount(t, "remaining", partial.RemainingAmount(), "116.00")

	paid, err := svc.RecordPayment(ctx, invoice.ID, decimal.RequireFromString("116.00"), principal)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got := paid.PaymentState(fixedNow); got != model.PaymentStatusPaid {
		t.Errorf("payment status = %s, want PAID", got)
	}
	assertAmount(t, "remaining", paid.RemainingAmount(), "0")

	if _, err := svc.RecordPayment(ctx, invoice.ID, decimal.Zero, principal); !errors.Is(err, ErrValidation) {
		t.Errorf("zero payment: want ErrValidation, got %v", err)
	}

	quote, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindQuote,
		Items:     []LineItemInput{lineInput("1", "10.00", "0", "0")},
		Principal: principal,
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, quote.ID, decimal.NewFromInt(10), principal); !errors.Is(err, ErrValidation) {
		t.Errorf("payment on quote: want ErrValidation, got %v", err)
	}
}

func TestExportRegister(t *testing.T) {
	store := newMemoryStore()
	companyID, jobID := seedCompanyAndJob(store)
	svc := newTestService(store)
	ctx := context.Background()
	principal := model.Principal{UserID: uuid.New(), CompanyID: companyID, Role: model.RoleManager}

	if _, err := svc.CreateDocument(ctx, CreateDocumentInput{
		JobID:     jobID,
		Kind:      model.DocumentKindInvoice,
		Items:     []LineItemInput{lineInput("1", "100.00", "0", "20")},
		Principal: principal,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.ExportRegister(ctx, fixedNow.AddDate(0, 0, -1), fixedNow, principal)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "documents-Northside-Garage-20260314-20260315.xlsx"
	if result.FileName != want {
		t.Errorf("file name = %s, want %s", result.FileName, want)
	}
	if len(result.Content) == 0 {
		t.Errorf("empty export content")
	}

	mechanic := model.Principal{UserID: uuid.New(), CompanyID: companyID, Role: model.RoleMechanic}
	if _, err := svc.ExportRegister(ctx, fixedNow, fixedNow, mechanic); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("mechanic export: want ErrPermissionDenied, got %v", err)
	}
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}
