package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avtoline/garage-billing/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument inserts a document together with its number allocation. The
// counter row update, the revision computation and the insert run in one
// transaction: the counter can never advance without a durably created row,
// and concurrent creations serialize on the company_settings row lock.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	var savedID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := createDocumentTx(tx, doc)
		if err != nil {
			return err
		}
		savedID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetDocument(ctx, savedID)
}

// ConvertQuote marks an approved quote converted and creates its invoice in
// the same transaction.
func (r *DocumentRepository) ConvertQuote(ctx context.Context, quoteID uuid.UUID, invoice *model.Document) (*model.Document, error) {
	var savedID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := createDocumentTx(tx, invoice)
		if err != nil {
			return err
		}
		savedID = id

		result := tx.Exec(`
			UPDATE documents
			SET status = ?, converted_invoice_id = ?
			WHERE id = ? AND kind = ? AND status = ?
		`, model.QuoteStatusConverted, id, quoteID, model.DocumentKindQuote, model.QuoteStatusApproved)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetDocument(ctx, savedID)
}

func createDocumentTx(tx *gorm.DB, doc *model.Document) (uuid.UUID, error) {
	allocQuery := `
		UPDATE company_settings
		SET next_quote_number = next_quote_number + 1
		WHERE company_id = ?
		RETURNING next_quote_number - 1 AS sequence, quote_prefix AS prefix
	`
	if doc.Kind == model.DocumentKindInvoice {
		allocQuery = `
			UPDATE company_settings
			SET next_invoice_number = next_invoice_number + 1
			WHERE company_id = ?
			RETURNING next_invoice_number - 1 AS sequence, invoice_prefix AS prefix
		`
	}

	var alloc struct {
		Sequence int64
		Prefix   string
	}
	if err := tx.Raw(allocQuery, doc.CompanyID).Scan(&alloc).Error; err != nil {
		return uuid.Nil, err
	}
	if alloc.Sequence == 0 {
		return uuid.Nil, gorm.ErrRecordNotFound
	}

	year := doc.CreatedAt.Year()
	if doc.IssueDate != nil {
		year = doc.IssueDate.Year()
	}
	documentNumber := model.FormatDocumentNumber(alloc.Prefix, year, alloc.Sequence)

	var revision int
	if err := tx.Raw(`
		SELECT COUNT(*) + 1 FROM documents WHERE job_id = ? AND kind = ?
	`, doc.JobID, doc.Kind).Scan(&revision).Error; err != nil {
		return uuid.Nil, err
	}

	if err := tx.Exec(`
		INSERT INTO documents (
			id,
			company_id,
			job_id,
			kind,
			document_number,
			revision,
			customer_name,
			customer_phone,
			customer_email,
			vehicle_plate,
			vehicle_make,
			vehicle_model,
			subtotal,
			discount_total,
			tax_total,
			grand_total,
			status,
			rejection_reason,
			signature_ref,
			viewed_at,
			converted_invoice_id,
			source_quote_id,
			paid_amount,
			issue_date,
			valid_until,
			due_date,
			notes,
			customer_notes,
			created_by_user_id,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.CompanyID,
		doc.JobID,
		doc.Kind,
		documentNumber,
		revision,
		doc.CustomerName,
		doc.CustomerPhone,
		doc.CustomerEmail,
		doc.VehiclePlate,
		doc.VehicleMake,
		doc.VehicleModel,
		doc.Subtotal,
		doc.DiscountTotal,
		doc.TaxTotal,
		doc.GrandTotal,
		nullableStatus(doc),
		doc.RejectionReason,
		doc.SignatureRef,
		doc.ViewedAt,
		doc.ConvertedInvoiceID,
		doc.SourceQuoteID,
		doc.PaidAmount,
		doc.IssueDate,
		doc.ValidUntil,
		doc.DueDate,
		doc.Notes,
		doc.CustomerNotes,
		doc.CreatedByUserID,
		doc.CreatedAt,
	).Error; err != nil {
		return uuid.Nil, err
	}

	for position, item := range doc.LineItems {
		if err := tx.Exec(`
			INSERT INTO document_line_items (
				document_id,
				position,
				item_id,
				type,
				reference_id,
				code,
				description,
				quantity,
				unit_price,
				discount,
				tax_rate,
				subtotal,
				discount_amount,
				taxable_amount,
				tax_amount,
				total
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			doc.ID,
			position,
			item.ItemID,
			item.Type,
			item.ReferenceID,
			item.Code,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Discount,
			item.TaxRate,
			item.Subtotal,
			item.DiscountAmount,
			item.TaxableAmount,
			item.TaxAmount,
			item.Total,
		).Error; err != nil {
			return uuid.Nil, err
		}
	}

	return doc.ID, nil
}

const documentColumns = `
	id,
	company_id,
	job_id,
	kind,
	document_number,
	revision,
	customer_name,
	customer_phone,
	customer_email,
	vehicle_plate,
	vehicle_make,
	vehicle_model,
	subtotal,
	discount_total,
	tax_total,
	grand_total,
	status,
	rejection_reason,
	signature_ref,
	viewed_at,
	converted_invoice_id,
	source_quote_id,
	paid_amount,
	issue_date,
	valid_until,
	due_date,
	notes,
	customer_notes,
	created_by_user_id,
	created_at
`

func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	items, err := r.listLineItems(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.LineItems = items
	return &doc, nil
}

// ListByJob returns the version chain for a job, newest first.
func (r *DocumentRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE job_id = ?
		ORDER BY created_at DESC, revision DESC
	`, jobID).Scan(&docs).Error
	if err != nil {
		return nil, err
	}

	for i := range docs {
		items, err := r.listLineItems(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].LineItems = items
	}
	return docs, nil
}

func (r *DocumentRepository) ListIssuedBetween(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE company_id = ?
			AND created_at >= ?
			AND created_at < ?
		ORDER BY created_at DESC
	`, companyID, from, to).Scan(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, change model.QuoteStatusChange) (*model.Document, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE documents
		SET
			status = ?,
			issue_date = COALESCE(?, issue_date),
			valid_until = COALESCE(?, valid_until),
			viewed_at = COALESCE(?, viewed_at),
			rejection_reason = COALESCE(?, rejection_reason),
			signature_ref = COALESCE(?, signature_ref)
		WHERE id = ? AND kind = ?
	`,
		change.Status,
		change.IssueDate,
		change.ValidUntil,
		change.ViewedAt,
		change.RejectionReason,
		change.SignatureRef,
		id,
		model.DocumentKindQuote,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetDocument(ctx, id)
}

func (r *DocumentRepository) AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*model.Document, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE documents
		SET paid_amount = paid_amount + ?
		WHERE id = ? AND kind = ?
	`, amount, id, model.DocumentKindInvoice)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetDocument(ctx, id)
}

func (r *DocumentRepository) listLineItems(ctx context.Context, documentID uuid.UUID) ([]model.CalculatedLineItem, error) {
	var rows []struct {
		ItemID         string
		Type           string
		ReferenceID    *uuid.UUID
		Code           string
		Description    string
		Quantity       decimal.Decimal
		UnitPrice      decimal.Decimal
		Discount       decimal.Decimal
		TaxRate        decimal.Decimal
		Subtotal       decimal.Decimal
		DiscountAmount decimal.Decimal
		TaxableAmount  decimal.Decimal
		TaxAmount      decimal.Decimal
		Total          decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			item_id,
			type,
			reference_id,
			code,
			description,
			quantity,
			unit_price,
			discount,
			tax_rate,
			subtotal,
			discount_amount,
			taxable_amount,
			tax_amount,
			total
		FROM document_line_items
		WHERE document_id = ?
		ORDER BY position ASC
	`, documentID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]model.CalculatedLineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.CalculatedLineItem{
			LineItem: model.LineItem{
				ItemID:      row.ItemID,
				Type:        model.LineItemType(row.Type),
				ReferenceID: row.ReferenceID,
				Code:        row.Code,
				Description: row.Description,
				Quantity:    row.Quantity,
				UnitPrice:   row.UnitPrice,
				Discount:    row.Discount,
				TaxRate:     row.TaxRate,
			},
			Subtotal:       row.Subtotal,
			DiscountAmount: row.DiscountAmount,
			TaxableAmount:  row.TaxableAmount,
			TaxAmount:      row.TaxAmount,
			Total:          row.Total,
		})
	}
	return items, nil
}

func nullableStatus(doc *model.Document) interface{} {
	if doc.Kind != model.DocumentKindQuote {
		return nil
	}
	return doc.Status
}
