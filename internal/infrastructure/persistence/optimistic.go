package persistence

import (
	"context"

	"github.com/meterbill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// versioned is implemented by every aggregate root
type versioned interface {
	GetVersion() int
	IncrementVersion()
}

// saveWithVersion writes all columns of model except omit if the row still
// carries the aggregate's version, then bumps the version on both. model must
// be built from aggregate and point at its primary key.
func saveWithVersion(ctx context.Context, db *gorm.DB, model any, setVersion func(int), aggregate versioned, what string, omit ...string) error {
	current := aggregate.GetVersion()
	setVersion(current + 1)

	result := db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit(append([]string{"created_at"}, omit...)...).
		Where("version = ?", current).
		Updates(model)
	if result.Error != nil {
		setVersion(current)
		return result.Error
	}
	if result.RowsAffected == 0 {
		setVersion(current)
		return shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
			"The "+what+" has been modified by another transaction")
	}
	aggregate.IncrementVersion()
	return nil
}
