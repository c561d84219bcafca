package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
)

// Row holds the identity and audit columns every billing table has.
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Row) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r *Row) SetEntity(e shared.BaseEntity) {
	r.ID, r.CreatedAt, r.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// VersionedRow is a Row whose version column guards concurrent updates of an aggregate.
type VersionedRow struct {
	Row
	Version int `gorm:"not null;default:1"`
}

func (r *VersionedRow) Root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: r.Entity(), Version: r.Version}
}

func (r *VersionedRow) SetRoot(a shared.BaseAggregateRoot) {
	r.SetEntity(a.BaseEntity)
	r.Version = a.Version
}
