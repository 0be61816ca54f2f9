package model

import "time"

// DocumentRegister is the input for the Excel register export: every document
// a company issued in a period, newest first.
type DocumentRegister struct {
	Company     CompanySettings
	PeriodStart time.Time
	PeriodEnd   time.Time
	Documents   []Document
}
