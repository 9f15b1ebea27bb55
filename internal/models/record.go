// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle flag every record carries.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

// Record holds the identity and audit columns shared by every entity.
// ID is the storage key and never leaves the process; RefID is the only
// externally addressable identifier.
type Record struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	RefID     string     `gorm:"size:36;uniqueIndex;not null" json:"refId"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy *string    `gorm:"size:36;index" json:"createdBy"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
	UpdatedBy *string    `gorm:"size:36" json:"updatedBy"`
	DeletedAt *time.Time `json:"deletedAt"`
	DeletedBy *string    `gorm:"size:36" json:"deletedBy"`
	Status    Status     `gorm:"size:16;index;not null;default:ACTIVE" json:"status"`
}

// Lifecycle exposes the embedded record to generic repositories.
func (r *Record) Lifecycle() *Record { return r }

// NewRefID returns a fresh random reference identifier.
func NewRefID() string {
	return uuid.NewString()
}

// Init applies creation defaults. An existing RefID is kept.
func (r *Record) Init(actor string) {
	if r.RefID == "" {
		r.RefID = NewRefID()
	}
	r.Status = StatusActive
	r.CreatedAt = time.Now().UTC()
	r.CreatedBy = actorRef(actor)
	r.UpdatedAt = nil
	r.UpdatedBy = nil
	r.DeletedAt = nil
	r.DeletedBy = nil
}

// Touch stamps an update.
func (r *Record) Touch(actor string, at time.Time) {
	r.UpdatedAt = &at
	r.UpdatedBy = actorRef(actor)
}

// MarkDeleted stamps a soft delete.
func (r *Record) MarkDeleted(actor string, at time.Time) {
	r.Status = StatusDeleted
	r.DeletedAt = &at
	r.DeletedBy = actorRef(actor)
}

// IsActive reports whether the record is visible to standard reads.
func (r *Record) IsActive() bool {
	return r.Status == StatusActive
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
