package model

import (
	"time"

	"github.com/google/uuid"
)

// Job is the workshop job a document is issued against. Only the identity
// fields below are copied onto documents; the rest of the job record stays in
// the jobs service.
type Job struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	VehiclePlate  string
	VehicleMake   string
	VehicleModel  string
	Description   string
	Status        string
	CreatedAt     time.Time
}
