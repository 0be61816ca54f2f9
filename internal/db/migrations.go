package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'document_kind') THEN
			CREATE TYPE document_kind AS ENUM ('QUOTE', 'INVOICE');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'quote_status') THEN
			CREATE TYPE quote_status AS ENUM ('DRAFT', 'SENT', 'VIEWED', 'APPROVED', 'REJECTED', 'EXPIRED', 'CONVERTED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'line_item_type') THEN
			CREATE TYPE line_item_type AS ENUM ('PART', 'SERVICE', 'CUSTOM');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS company_settings (
		company_id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		quote_prefix VARCHAR(16) NOT NULL DEFAULT 'QTE',
		invoice_prefix VARCHAR(16) NOT NULL DEFAULT 'INV',
		quote_validity_days INT NOT NULL DEFAULT 30,
		payment_terms_days INT NOT NULL DEFAULT 14,
		default_tax_rate NUMERIC(5,2) NOT NULL DEFAULT 20,
		next_quote_number BIGINT NOT NULL DEFAULT 1 CHECK (next_quote_number > 0),
		next_invoice_number BIGINT NOT NULL DEFAULT 1 CHECK (next_invoice_number > 0)
	);`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES company_settings(company_id),
		customer_name VARCHAR(255) NOT NULL,
		customer_phone VARCHAR(64) NOT NULL,
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		vehicle_plate VARCHAR(32) NOT NULL,
		vehicle_make VARCHAR(64) NOT NULL DEFAULT '',
		vehicle_model VARCHAR(64) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES company_settings(company_id),
		job_id UUID NOT NULL REFERENCES jobs(id),
		kind document_kind NOT NULL,
		document_number VARCHAR(64) NOT NULL,
		revision INT NOT NULL DEFAULT 1,
		customer_name VARCHAR(255) NOT NULL,
		customer_phone VARCHAR(64) NOT NULL,
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		vehicle_plate VARCHAR(32) NOT NULL,
		vehicle_make VARCHAR(64) NOT NULL DEFAULT '',
		vehicle_model VARCHAR(64) NOT NULL DEFAULT '',
		subtotal NUMERIC(18,2) NOT NULL,
		discount_total NUMERIC(18,2) NOT NULL,
		tax_total NUMERIC(18,2) NOT NULL,
		grand_total NUMERIC(18,2) NOT NULL,
		status quote_status,
		rejection_reason TEXT,
		signature_ref TEXT,
		viewed_at TIMESTAMPTZ,
		converted_invoice_id UUID REFERENCES documents(id),
		source_quote_id UUID REFERENCES documents(id),
		paid_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		issue_date TIMESTAMPTZ,
		valid_until TIMESTAMPTZ,
		due_date TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT '',
		customer_notes TEXT NOT NULL DEFAULT '',
		created_by_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_company_number ON documents (company_id, document_number);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_job_id ON documents (job_id);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_company_created ON documents (company_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS document_line_items (
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		position INT NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		type line_item_type NOT NULL,
		reference_id UUID,
		code VARCHAR(64) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		quantity NUMERIC(12,3) NOT NULL CHECK (quantity >= 0),
		unit_price NUMERIC(18,2) NOT NULL CHECK (unit_price >= 0),
		discount NUMERIC(5,2) NOT NULL CHECK (discount >= 0 AND discount <= 100),
		tax_rate NUMERIC(5,2) NOT NULL CHECK (tax_rate >= 0 AND tax_rate <= 100),
		subtotal NUMERIC(18,2) NOT NULL,
		discount_amount NUMERIC(18,2) NOT NULL,
		taxable_amount NUMERIC(18,2) NOT NULL,
		tax_amount NUMERIC(18,2) NOT NULL,
		total NUMERIC(18,2) NOT NULL CHECK (total >= 0),
		PRIMARY KEY (document_id, position)
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
