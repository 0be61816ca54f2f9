package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avtoline/garage-billing/internal/model"
)

func (r *DocumentRepository) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			company_id,
			customer_name,
			customer_phone,
			customer_email,
			vehicle_plate,
			vehicle_make,
			vehicle_model,
			description,
			status,
			created_at
		FROM jobs
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &job, nil
}

func (r *DocumentRepository) GetSettings(ctx context.Context, companyID uuid.UUID) (*model.CompanySettings, error) {
	var settings model.CompanySettings
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			company_id,
			name,
			address,
			phone,
			email,
			quote_prefix,
			invoice_prefix,
			quote_validity_days,
			payment_terms_days,
			default_tax_rate,
			next_quote_number,
			next_invoice_number
		FROM company_settings
		WHERE company_id = ?
		LIMIT 1
	`, companyID).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.CompanyID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &settings, nil
}
