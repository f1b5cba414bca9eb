package models

import (
	"time"
)

// Tenant is a company registered in the control-plane database. Each tenant
// owns a separate data store holding its users, rights and login attempts.
type Tenant struct {
	ID         int64     `json:"id" db:"id"`
	UniqueCode string    `json:"unique_code" db:"unique_code"` // Sent by clients in the companyUniqueCode header
	Name       string    `json:"name" db:"name"`
	DataStore  string    `json:"data_store" db:"data_store"`
	Active     bool      `json:"active" db:"active"` // Tenant preference; inactive tenants cannot log in
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active Tenant instance
func NewTenant(id int64, uniqueCode, name, dataStore string) *Tenant {
	now := time.Now()
	return &Tenant{
		ID:         id,
		UniqueCode: uniqueCode,
		Name:       name,
		DataStore:  dataStore,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
