package relation

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Favorite, ShoppingCart and Subscription rows are all bare (owner, target)
// pairs guarded by a composite unique index. The three toggles share the
// same add/remove shape and differ only in the table and the errors they
// report, so the pattern lives here once.

// Add creates the pair row unless the pair already exists. A concurrent
// insert losing the unique-index race is reported as alreadyExists too,
// never as a raw constraint violation.
func Add[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}, row *T, alreadyExists error) error {
	var count int64
	if err := db.WithContext(ctx).Model(new(T)).Where(cond).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return alreadyExists
	}

	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return alreadyExists
		}
		return err
	}
	return nil
}

// Remove deletes the pair row; a missing pair is the caller's notFound error.
func Remove[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}, notFound error) error {
	res := db.WithContext(ctx).Where(cond).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}

// Exists reports whether the pair row is present.
func Exists[T any](ctx context.Context, db *gorm.DB, cond map[string]interface{}) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(new(T)).Where(cond).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
