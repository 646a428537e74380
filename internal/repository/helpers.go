package repository

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm's not-found and unique-violation errors onto
// ErrNotFound and ErrDuplicate.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func paginate(q *gorm.DB, page, limit int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return q.Limit(limit).Offset((page - 1) * limit)
}
